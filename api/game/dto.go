// Package gameapi exposes the match-launch endpoints: starting a load
// attempt, reporting load progress, and feeding rally-point latency reports.
package gameapi

import (
	"github.com/beka-birhanu/gameloader-api/domain"
)

// LoadGameRequest asks the loader to launch a configured match.
type LoadGameRequest struct {
	MapID      string            `json:"map_id" binding:"required"`
	GameConfig domain.GameConfig `json:"game_config" binding:"required"`
}

// PingReportRequest carries one round-trip measurement from the
// authenticated user to a rally-point server.
type PingReportRequest struct {
	ServerID int   `json:"server_id"`
	PingMS   int64 `json:"ping_ms" binding:"required"`
}

// RallyPointServersResponse lists the relay servers a client should ping
// before joining a match.
type RallyPointServersResponse struct {
	Servers []domain.RallyPointServer `json:"servers"`
}
