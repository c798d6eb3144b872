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

// UserRepository handles the users collection.
type UserRepository struct {
	col   *mongo.Collection
	clock clock.Clock
}

func NewUserRepository(store *storage.Store, clk clock.Clock) *UserRepository {
	return &UserRepository{col: store.Collection(storage.CollUsers), clock: clk}
}

// EnsureRegistered creates the user on first contact. The insert races
// against concurrent registrations; losing the race returns the existing
// record untouched, so registration is idempotent and never overwrites an
// existing profile.
func (r *UserRepository) EnsureRegistered(ctx context.Context, telegramID string, p model.Profile) (*model.User, bool, error) {
	if telegramID == "" {
		return nil, false, fmt.Errorf("%w: telegram id is required", model.ErrInvalid)
	}

	now := r.clock.Now()
	user := model.User{
		TelegramID: telegramID,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Username:   p.Username,
		Language:   p.Language,
		Exp:        0,
		Level:      1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := r.col.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		existing, getErr := r.Get(ctx, telegramID)
		if getErr != nil {
			return nil, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return &user, true, nil
}

func (r *UserRepository) Get(ctx context.Context, telegramID string) (*model.User, error) {
	var user model.User
	err := r.col.FindOne(ctx, bson.M{"_id": telegramID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("user %s: %w", telegramID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	cursor, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var users []model.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

// AdjustExperience applies a signed exp delta in one atomic update pipeline:
// the new exp is clamped at zero and the level recomputed from it inside the
// same document update, so the level invariant holds at every point other
// writers can observe.
func (r *UserRepository) AdjustExperience(ctx context.Context, telegramID string, delta int) (*model.User, error) {
	now := r.clock.Now()
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.M{
			"exp":        bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{"$exp", delta}}}},
			"updated_at": now,
		}}},
		bson.D{{Key: "$set", Value: bson.M{
			"level": bson.M{"$add": bson.A{bson.M{"$floor": bson.M{"$divide": bson.A{"$exp", 100}}}, 1}},
		}}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated model.User
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": telegramID}, pipeline, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("user %s: %w", telegramID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("adjust exp: %w", err)
	}
	return &updated, nil
}

// ReplaceLegacyGoals overwrites the free-form goal strings kept on the user
// document for the legacy bulk endpoint.
func (r *UserRepository) ReplaceLegacyGoals(ctx context.Context, telegramID string, goals []string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": telegramID}, bson.M{
		"$set": bson.M{"long_term_goals": goals, "updated_at": r.clock.Now()},
	})
	if err != nil {
		return fmt.Errorf("replace legacy goals: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", telegramID, model.ErrNotFound)
	}
	return nil
}
