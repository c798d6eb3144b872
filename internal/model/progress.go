package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskProgress is one task entry inside a daily progress document. Title is
// a denormalized copy frozen at creation time; the entry is never
// re-validated against the template list afterwards.
type TaskProgress struct {
	TaskID      string     `bson:"task_id"`
	Title       string     `bson:"title"`
	Completed   bool       `bson:"completed"`
	CompletedAt *time.Time `bson:"completed_at,omitempty"`
	SkipReason  string     `bson:"skip_reason,omitempty"`
	Obstacles   []string   `bson:"obstacles,omitempty"`
	Notes       string     `bson:"notes,omitempty"`
}

// DailyProgress holds one user's task completion state for one calendar day.
// At most one document exists per (telegram_id, date); the collection's
// unique compound index enforces that.
type DailyProgress struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	TelegramID       string             `bson:"telegram_id"`
	Date             string             `bson:"date"`
	Tasks            []TaskProgress     `bson:"tasks"`
	OverallDayRating *int               `bson:"overall_day_rating,omitempty"`
	MoodAfterTasks   string             `bson:"mood_after_tasks,omitempty"`
	CreatedAt        time.Time          `bson:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at"`
}
