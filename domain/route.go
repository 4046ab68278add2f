package domain

import (
	"time"

	"github.com/google/uuid"
)

// RallyPointServer describes one relay server that clients can route
// peer-to-peer traffic through.
type RallyPointServer struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Hostname    string `json:"hostname"`
	Port        int    `json:"port"`
}

// NegotiatedRoute is the result of creating one route between a pair of
// participants. P1Handle/P2Handle are the locally-scoped peer handles each
// side uses to identify itself to the rally-point server.
type NegotiatedRoute struct {
	P1               uuid.UUID
	P2               uuid.UUID
	Server           RallyPointServer
	RouteID          string
	P1Handle         uint32
	P2Handle         uint32
	EstimatedLatency time.Duration // one-way estimate between the two peers
}

// AssignedRoute is the per-participant view of a negotiated route: the peer
// it connects to, and that participant's own handle on the route.
type AssignedRoute struct {
	For     uuid.UUID        `json:"forUserId"`
	Server  RallyPointServer `json:"server"`
	RouteID string           `json:"routeId"`
	Handle  uint32           `json:"localPeerHandle"`
}
