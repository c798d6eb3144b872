package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"habit-coach/internal/clock"
	"habit-coach/internal/model"
	"habit-coach/internal/storage"
)

// GoalRepository handles the users_goals collection: one document per user
// holding the long-term goal and its daily task templates.
type GoalRepository struct {
	col   *mongo.Collection
	clock clock.Clock
}

func NewGoalRepository(store *storage.Store, clk clock.Clock) *GoalRepository {
	return &GoalRepository{col: store.Collection(storage.CollGoals), clock: clk}
}

func (r *GoalRepository) Load(ctx context.Context, telegramID string) (*model.UserGoal, error) {
	var goal model.UserGoal
	err := r.col.FindOne(ctx, bson.M{"_id": telegramID}).Decode(&goal)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("goal record for %s: %w", telegramID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load goal record: %w", err)
	}
	return &goal, nil
}

// Replace overwrites the whole long-term-goal + task-list pair. The last
// agreed plan wins; nothing is merged. Templates without an id get a fresh
// uuid, and duplicate ids are rejected before any write happens.
func (r *GoalRepository) Replace(ctx context.Context, telegramID string, longTerm model.LongTermGoal, tasks []model.DailyTask) error {
	now := r.clock.Now()

	seen := make(map[string]struct{}, len(tasks))
	for i := range tasks {
		if tasks[i].Title == "" {
			return fmt.Errorf("%w: task title is required", model.ErrInvalid)
		}
		if tasks[i].MinRequiredCompletion < 1 {
			tasks[i].MinRequiredCompletion = 1
		}
		if tasks[i].ID == "" {
			tasks[i].ID = uuid.NewString()
		}
		if _, dup := seen[tasks[i].ID]; dup {
			return fmt.Errorf("%w: duplicate task id %q", model.ErrInvalid, tasks[i].ID)
		}
		seen[tasks[i].ID] = struct{}{}
		if tasks[i].CreatedAt.IsZero() {
			tasks[i].CreatedAt = now
		}
		tasks[i].UpdatedAt = now
	}

	if longTerm.Status == "" {
		longTerm.Status = model.GoalStatusActive
	}
	if longTerm.CreatedAt.IsZero() {
		longTerm.CreatedAt = now
	}
	longTerm.UpdatedAt = now

	update := bson.M{
		"$set": bson.M{
			"long_term_goal": longTerm,
			"daily_tasks":    tasks,
			"updated_at":     now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": telegramID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace goal record: %w", err)
	}
	return nil
}

// AppendTask adds one template without disturbing the rest of the list. A
// single $push keeps the append atomic; the record is created if absent.
func (r *GoalRepository) AppendTask(ctx context.Context, telegramID, title, note string, minRequired int, unit string) (*model.DailyTask, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: task title is required", model.ErrInvalid)
	}
	if minRequired < 1 {
		return nil, fmt.Errorf("%w: min required completion must be positive", model.ErrInvalid)
	}

	now := r.clock.Now()
	task := model.DailyTask{
		ID:                    uuid.NewString(),
		Title:                 title,
		Note:                  note,
		MinRequiredCompletion: minRequired,
		CompletionUnit:        unit,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	update := bson.M{
		"$push":        bson.M{"daily_tasks": task},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": telegramID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("append task: %w", err)
	}
	return &task, nil
}
