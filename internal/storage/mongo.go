package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names used across the repositories.
const (
	CollUsers         = "users"
	CollGoals         = "users_goals"
	CollDailyProgress = "daily_progress"
	CollMood          = "users_mood"
	CollConversations = "conversations"
)

// Store owns the process-wide MongoDB client. It is constructed once at
// startup, handed to every repository, and disposed on shutdown.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect establishes the MongoDB connection and bootstraps the indexes the
// repositories rely on. The unique compound index on daily_progress is the
// sole guard against duplicate per-day documents, so failing to create it is
// a startup failure, not a warning.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	userDate := bson.D{
		{Key: "telegram_id", Value: 1},
		{Key: "date", Value: 1},
	}

	_, err := s.db.Collection(CollDailyProgress).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    userDate,
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create daily_progress index: %w", err)
	}

	_, err = s.db.Collection(CollMood).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    userDate,
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users_mood index: %w", err)
	}

	return nil
}

// Collection returns a handle to a named collection.
func (s *Store) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Disconnect closes the MongoDB connection.
func (s *Store) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}
