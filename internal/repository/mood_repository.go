package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"habit-coach/internal/clock"
	"habit-coach/internal/model"
	"habit-coach/internal/storage"
)

// MoodRepository handles the users_mood collection. Entries are written once
// per (user, date) and read back as already-computed summaries.
type MoodRepository struct {
	col   *mongo.Collection
	clock clock.Clock
}

func NewMoodRepository(store *storage.Store, clk clock.Clock) *MoodRepository {
	return &MoodRepository{col: store.Collection(storage.CollMood), clock: clk}
}

func (r *MoodRepository) Get(ctx context.Context, telegramID, date string) (*model.DailyMood, error) {
	var entry model.DailyMood
	err := r.col.FindOne(ctx, bson.M{"telegram_id": telegramID, "date": date}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("mood for %s on %s: %w", telegramID, date, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load mood entry: %w", err)
	}
	return &entry, nil
}

// Insert stores a freshly computed entry. The unique (telegram_id, date)
// index turns a concurrent double-compute into ErrDuplicate.
func (r *MoodRepository) Insert(ctx context.Context, entry *model.DailyMood) error {
	now := r.clock.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	_, err := r.col.InsertOne(ctx, entry)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("mood for %s on %s: %w", entry.TelegramID, entry.Date, model.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert mood entry: %w", err)
	}
	return nil
}

// LoadRecent returns up to n most recent mood entries, newest first.
func (r *MoodRepository) LoadRecent(ctx context.Context, telegramID string, n int) ([]model.DailyMood, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}}).SetLimit(int64(n))
	cursor, err := r.col.Find(ctx, bson.M{"telegram_id": telegramID}, opts)
	if err != nil {
		return nil, fmt.Errorf("load recent moods: %w", err)
	}
	var entries []model.DailyMood
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode recent moods: %w", err)
	}
	return entries, nil
}
