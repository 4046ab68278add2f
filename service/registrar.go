package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/beka-birhanu/gameloader-api/domain"
	"github.com/beka-birhanu/gameloader-api/service/i"
	general_i "github.com/beka-birhanu/vinom-interfaces/general"
	"github.com/google/uuid"
)

// resultCodeBytes is the entropy per result code. 12 random bytes gives a
// space large enough that duplicate codes within a match are not a concern.
const resultCodeBytes = 12

// Registrar persists new matches so results can be collected for them later.
type Registrar struct {
	games  i.GameRepo
	logger general_i.Logger
}

func NewRegistrar(games i.GameRepo, logger general_i.Logger) (*Registrar, error) {
	return &Registrar{
		games:  games,
		logger: logger,
	}, nil
}

// Register creates the match record plus one participant record per human
// player, each carrying a freshly minted result code. The writes happen in a
// single transaction; on any failure nothing is persisted.
func (r *Registrar) Register(ctx context.Context, mapID string, cfg *domain.GameConfig, startTime time.Time) (uuid.UUID, map[uuid.UUID]string, error) {
	humans := cfg.HumanPlayers()
	codes, err := genResultCodes(len(humans))
	if err != nil {
		return uuid.Nil, nil, err
	}

	gameID := uuid.New()
	resultCodes := make(map[uuid.UUID]string, len(humans))
	users := make([]*domain.GameUserRecord, 0, len(humans))
	for idx, p := range humans {
		resultCodes[p.ID] = codes[idx]
		users = append(users, &domain.GameUserRecord{
			GameID:       gameID,
			UserID:       p.ID,
			StartTime:    startTime,
			SelectedRace: p.Race,
			ResultCode:   codes[idx],
		})
	}

	game := &domain.GameRecord{
		ID:        gameID,
		StartTime: startTime,
		MapID:     mapID,
		Config:    *cfg,
	}
	if err := r.games.CreateGame(ctx, game, users); err != nil {
		r.logger.Error(fmt.Sprintf("registering game %s: %s", gameID, err))
		return uuid.Nil, nil, err
	}

	r.logger.Info(fmt.Sprintf("registered game %s with %d player(s)", gameID, len(humans)))
	return gameID, resultCodes, nil
}

// genResultCodes mints amount opaque result codes from a single read of the
// system CSPRNG.
func genResultCodes(amount int) ([]string, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("invalid result code amount: %d", amount)
	}

	buf := make([]byte, resultCodeBytes*amount)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}

	codes := make([]string, 0, amount)
	for idx := 0; idx < amount; idx++ {
		codes = append(codes, base64.StdEncoding.EncodeToString(buf[idx*resultCodeBytes:(idx+1)*resultCodeBytes]))
	}
	return codes, nil
}
