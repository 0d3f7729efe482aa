package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultDatabase = "monopoly"

// ConnectToDB connects and pings MongoDB. The database name is taken from the
// URI path, e.g. mongodb://localhost:27017/monopoly.
func ConnectToDB(ctx context.Context, mongoURI string) (*mongo.Database, error) {
	uri, err := url.Parse(mongoURI)
	if err != nil {
		return nil, fmt.Errorf("parse mongodb uri: %w", err)
	}

	dbName := strings.TrimPrefix(uri.Path, "/")
	if dbName == "" {
		dbName = defaultDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return client.Database(dbName), nil
}

// EnsureGameIndexes creates the lookup indexes of the games collection.
func EnsureGameIndexes(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection("games")

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "players.player_id", Value: 1}}},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create game indexes: %w", err)
	}
	return nil
}
