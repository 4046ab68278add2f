package repo

import (
	"context"

	"github.com/beka-birhanu/gameloader-api/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// GameRepo handles the persistence of game and game-user records.
type GameRepo struct {
	client    *mongo.Client
	games     *mongo.Collection
	gameUsers *mongo.Collection
}

// NewGameRepo creates a new GameRepo backed by the given MongoDB client and
// database name.
func NewGameRepo(client *mongo.Client, dbName string) *GameRepo {
	db := client.Database(dbName)
	return &GameRepo{
		client:    client,
		games:     db.Collection("games"),
		gameUsers: db.Collection("game_users"),
	}
}

// CreateGame writes the game record and all of its participant records
// inside a single transaction, so a failed write leaves nothing behind.
func (r *GameRepo) CreateGame(ctx context.Context, game *domain.GameRecord, users []*domain.GameUserRecord) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.games.InsertOne(sc, game); err != nil {
			return nil, err
		}

		docs := make([]interface{}, 0, len(users))
		for _, u := range users {
			docs = append(docs, u)
		}
		if _, err := r.gameUsers.InsertMany(sc, docs); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// DeleteGame removes the game record. Absent records are not an error.
func (r *GameRepo) DeleteGame(ctx context.Context, gameID uuid.UUID) error {
	_, err := r.games.DeleteOne(ctx, bson.M{"_id": gameID})
	return err
}

// DeleteGameUsers removes every participant record for a game.
func (r *GameRepo) DeleteGameUsers(ctx context.Context, gameID uuid.UUID) error {
	_, err := r.gameUsers.DeleteMany(ctx, bson.M{"gameId": gameID})
	return err
}
