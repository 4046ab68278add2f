// Package domain holds the data model shared by the loader service and its
// adapters: game configurations, match records, negotiated routes and the
// events broadcast to clients while a match is launching.
package domain

import (
	"github.com/google/uuid"
)

// GameSource identifies which system produced a game configuration.
type GameSource string

const (
	SourceLobby       GameSource = "LOBBY"
	SourceMatchmaking GameSource = "MATCHMAKING"
)

// GameType is the in-game mode the match will be played with.
type GameType string

const (
	TypeMelee          GameType = "melee"
	TypeFreeForAll     GameType = "ffa"
	TypeOneVsOne       GameType = "oneVOne"
	TypeTopVsBottom    GameType = "topVBottom"
	TypeTeamMelee      GameType = "teamMelee"
	TypeUseMapSettings GameType = "ums"
)

// Race is a single-character race selection.
type Race string

const (
	RaceProtoss Race = "p"
	RaceTerran  Race = "t"
	RaceZerg    Race = "z"
	RaceRandom  Race = "r"
)

// Player is one slot of a game configuration. Computer slots carry a nil
// user ID and never take part in networking.
type Player struct {
	ID         uuid.UUID `json:"id" bson:"id"`
	Race       Race      `json:"race" bson:"race"`
	IsComputer bool      `json:"isComputer" bson:"isComputer"`
	SlotNumber int       `json:"slotNumber" bson:"slotNumber"`
}

// GameConfig describes the match to launch. The roster (Teams) is fixed for
// the lifetime of one launch attempt.
type GameConfig struct {
	GameSource  GameSource `json:"gameSource" bson:"gameSource"`
	GameType    GameType   `json:"gameType" bson:"gameType"`
	GameSubType int        `json:"gameSubType" bson:"gameSubType"`
	Teams       [][]Player `json:"teams" bson:"teams"`
}

// HumanPlayers returns the non-computer slots of every team, in roster order.
func (c *GameConfig) HumanPlayers() []Player {
	var humans []Player
	for _, team := range c.Teams {
		for _, p := range team {
			if !p.IsComputer {
				humans = append(humans, p)
			}
		}
	}
	return humans
}
