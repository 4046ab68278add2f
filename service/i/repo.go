package i

import (
	"context"

	"github.com/beka-birhanu/gameloader-api/domain"
	"github.com/google/uuid"
)

// GameRepo persists match records and their per-participant records.
type GameRepo interface {
	// CreateGame writes the game record and all participant records in a
	// single transaction. Either everything is written or nothing is.
	CreateGame(ctx context.Context, game *domain.GameRecord, users []*domain.GameUserRecord) error

	// DeleteGame removes the game record. Returns an error only on storage
	// failure; deleting an absent record is not an error.
	DeleteGame(ctx context.Context, gameID uuid.UUID) error

	// DeleteGameUsers removes every participant record for a game.
	DeleteGameUsers(ctx context.Context, gameID uuid.UUID) error
}

// UserRepo resolves participant identities.
type UserRepo interface {
	// ByIDs returns the users matching the given IDs. Unknown IDs are
	// omitted from the result rather than reported as errors.
	ByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.User, error)
}
