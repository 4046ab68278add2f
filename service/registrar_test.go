package service

import (
	"context"
	"testing"
	"time"

	"github.com/beka-birhanu/gameloader-api/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrarRegister(t *testing.T) {
	games := &fakeGameRepo{}
	registrar, err := NewRegistrar(games, nopLogger{})
	require.NoError(t, err)

	p1, p2 := uuid.New(), uuid.New()
	cfg := &domain.GameConfig{
		GameSource: domain.SourceLobby,
		GameType:   domain.TypeMelee,
		Teams: [][]domain.Player{
			{{ID: p1, Race: domain.RaceTerran}},
			{{ID: p2, Race: domain.RaceZerg}, {IsComputer: true, Race: domain.RaceRandom}},
		},
	}
	startTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	gameID, codes, err := registrar.Register(context.Background(), "map-7", cfg, startTime)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, gameID)

	t.Run("persists the game record", func(t *testing.T) {
		require.Len(t, games.created, 1)
		assert.Equal(t, gameID, games.created[0].ID)
		assert.Equal(t, "map-7", games.created[0].MapID)
		assert.Equal(t, startTime, games.created[0].StartTime)
	})

	t.Run("mints one code per human", func(t *testing.T) {
		require.Len(t, codes, 2)
		assert.NotEmpty(t, codes[p1])
		assert.NotEmpty(t, codes[p2])
		assert.NotEqual(t, codes[p1], codes[p2])
	})
}

func TestGenResultCodes(t *testing.T) {
	t.Run("codes are distinct and non-empty", func(t *testing.T) {
		codes, err := genResultCodes(8)
		require.NoError(t, err)
		require.Len(t, codes, 8)

		seen := make(map[string]bool)
		for _, code := range codes {
			assert.NotEmpty(t, code)
			assert.False(t, seen[code])
			seen[code] = true
		}
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, err := genResultCodes(0)
		assert.Error(t, err)
	})
}
