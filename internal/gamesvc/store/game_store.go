package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/monopoly-services/internal/gamesvc/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const GamesCollection = "games"

// GameStore keeps each game as a single document in MongoDB.
type GameStore struct {
	coll *mongo.Collection
}

func NewGameStore(db *mongo.Database) *GameStore {
	return &GameStore{coll: db.Collection(GamesCollection)}
}

func (s *GameStore) Load(ctx context.Context, gameId uint64) (*models.Game, error) {
	game := &models.Game{}
	err := s.coll.FindOne(ctx, bson.M{"_id": gameId}).Decode(game)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to load game %d: %w", gameId, err)
	}

	return game, nil
}

// Save replaces the whole document, inserting it on first save.
func (s *GameStore) Save(ctx context.Context, game *models.Game) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": game.ID}, game, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save game %d: %w", game.ID, err)
	}

	return nil
}
