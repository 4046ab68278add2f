package i

import (
	"context"
	"time"

	"github.com/beka-birhanu/gameloader-api/domain"
	"github.com/google/uuid"
)

// GameLoader drives one match-launch attempt end to end and accepts load
// reports for attempts in progress.
type GameLoader interface {
	// LoadGame blocks until the match has launched or the attempt aborted.
	LoadGame(ctx context.Context, mapID string, cfg *domain.GameConfig) error

	// RegisterPlayerLoaded marks a pending participant as loaded.
	RegisterPlayerLoaded(gameID, userID uuid.UUID) error

	// RegisterPlayerFailed aborts the named attempt on behalf of a
	// participant.
	RegisterPlayerFailed(gameID, userID uuid.UUID) error
}

// Registrar persists a new match and mints one result code per human
// participant.
type Registrar interface {
	Register(ctx context.Context, mapID string, cfg *domain.GameConfig, startTime time.Time) (uuid.UUID, map[uuid.UUID]string, error)
}
