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

// ConversationRepository handles the per-user append-only transcript.
type ConversationRepository struct {
	col   *mongo.Collection
	clock clock.Clock
}

func NewConversationRepository(store *storage.Store, clk clock.Clock) *ConversationRepository {
	return &ConversationRepository{col: store.Collection(storage.CollConversations), clock: clk}
}

// History returns the full transcript, oldest first. A user with no
// conversation yet gets an empty slice, not an error.
func (r *ConversationRepository) History(ctx context.Context, telegramID string) ([]model.Message, error) {
	var convo model.Conversation
	err := r.col.FindOne(ctx, bson.M{"_id": telegramID}).Decode(&convo)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return convo.Messages, nil
}

// AppendTurn records one completed reply turn: the user's message followed
// by the assistant's, pushed in a single atomic update so a failed turn can
// never leave half a turn behind.
func (r *ConversationRepository) AppendTurn(ctx context.Context, telegramID, userText, assistantText string) error {
	now := r.clock.Now()
	turn := []model.Message{
		{Role: model.RoleUser, Text: userText, Timestamp: now},
		{Role: model.RoleAssistant, Text: assistantText, Timestamp: now},
	}

	update := bson.M{
		"$push":        bson.M{"messages": bson.M{"$each": turn}},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": telegramID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("append conversation turn: %w", err)
	}
	return nil
}
