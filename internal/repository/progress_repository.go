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

// ProgressRepository handles the daily_progress ledger. It also reads the
// goal record, because creating a day's document means snapshotting the
// current template list.
type ProgressRepository struct {
	col   *mongo.Collection
	goals *GoalRepository
	clock clock.Clock
}

func NewProgressRepository(store *storage.Store, goals *GoalRepository, clk clock.Clock) *ProgressRepository {
	return &ProgressRepository{
		col:   store.Collection(storage.CollDailyProgress),
		goals: goals,
		clock: clk,
	}
}

// CreateForToday snapshots the user's current templates into a fresh
// progress document for the current local day. A user with no goal record or
// no templates yields (false, nil): there is nothing to create, which is not
// a failure. The (telegram_id, date) unique index is the only duplicate
// guard; when the rollover job and an on-demand call race, exactly one
// insert wins and the other sees ErrDuplicate.
func (r *ProgressRepository) CreateForToday(ctx context.Context, telegramID string) (bool, error) {
	goal, err := r.goals.Load(ctx, telegramID)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(goal.DailyTasks) == 0 {
		return false, nil
	}

	now := r.clock.Now()
	date := clock.DayKey(now)

	tasks := make([]model.TaskProgress, 0, len(goal.DailyTasks))
	for _, tmpl := range goal.DailyTasks {
		tasks = append(tasks, model.TaskProgress{
			TaskID:    tmpl.ID,
			Title:     tmpl.Title,
			Completed: false,
		})
	}

	doc := model.DailyProgress{
		TelegramID: telegramID,
		Date:       date,
		Tasks:      tasks,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err = r.col.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return false, fmt.Errorf("progress for %s on %s: %w", telegramID, date, model.ErrDuplicate)
	}
	if err != nil {
		return false, fmt.Errorf("insert daily progress: %w", err)
	}
	return true, nil
}

// MarkTask flips one task entry in today's document. Completing stamps
// completed_at, un-completing clears it. Repeated actions on the same task
// overwrite each other: last action wins. Missing document or unknown task
// id is ErrNotFound, never a silent no-op.
func (r *ProgressRepository) MarkTask(ctx context.Context, telegramID, taskID string, completed bool) error {
	now := r.clock.Now()
	date := clock.DayKey(now)

	set := bson.M{
		"tasks.$.completed": completed,
		"updated_at":        now,
	}
	if completed {
		set["tasks.$.completed_at"] = now
	} else {
		set["tasks.$.completed_at"] = nil
	}

	filter := bson.M{"telegram_id": telegramID, "date": date, "tasks.task_id": taskID}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("mark task: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("task %s for %s on %s: %w", taskID, telegramID, date, model.ErrNotFound)
	}
	return nil
}

// LoadToday returns the current local day's progress document.
func (r *ProgressRepository) LoadToday(ctx context.Context, telegramID string) (*model.DailyProgress, error) {
	date := clock.DayKey(r.clock.Now())
	var doc model.DailyProgress
	err := r.col.FindOne(ctx, bson.M{"telegram_id": telegramID, "date": date}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("progress for %s on %s: %w", telegramID, date, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load daily progress: %w", err)
	}
	return &doc, nil
}

// LoadRecent returns up to n most recent progress documents, newest first.
func (r *ProgressRepository) LoadRecent(ctx context.Context, telegramID string, n int) ([]model.DailyProgress, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}}).SetLimit(int64(n))
	cursor, err := r.col.Find(ctx, bson.M{"telegram_id": telegramID}, opts)
	if err != nil {
		return nil, fmt.Errorf("load recent progress: %w", err)
	}
	var docs []model.DailyProgress
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode recent progress: %w", err)
	}
	return docs, nil
}
