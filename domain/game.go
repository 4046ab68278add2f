package domain

import (
	"time"

	"github.com/google/uuid"
)

// GameRecord is the persisted record of a launched (or launching) match.
type GameRecord struct {
	ID        uuid.UUID  `bson:"_id"`
	StartTime time.Time  `bson:"startTime"`
	MapID     string     `bson:"mapId"`
	Config    GameConfig `bson:"config"`
}

// GameUserRecord links one human participant to a game. ResultCode is the
// opaque credential the participant must present when submitting results.
type GameUserRecord struct {
	GameID       uuid.UUID `bson:"gameId"`
	UserID       uuid.UUID `bson:"userId"`
	StartTime    time.Time `bson:"startTime"`
	SelectedRace Race      `bson:"selectedRace"`
	ResultCode   string    `bson:"resultCode"`
}
