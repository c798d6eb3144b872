package model

import "time"

// GoalStatus is the lifecycle state of a long-term goal.
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusAbandoned GoalStatus = "abandoned"
)

// LongTermGoal is the user's agreed overarching goal.
type LongTermGoal struct {
	Summary    string     `bson:"summary"`
	TargetDate *time.Time `bson:"target_date,omitempty"`
	Status     GoalStatus `bson:"status"`
	CreatedAt  time.Time  `bson:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at"`
}

// DailyTask is one recurring task template decomposed from the long-term
// goal. Ids are unique within a user's template list.
type DailyTask struct {
	ID                    string    `bson:"id"`
	Title                 string    `bson:"title"`
	Note                  string    `bson:"note"`
	MinRequiredCompletion int       `bson:"min_required_completion"`
	CompletionUnit        string    `bson:"completion_unit"`
	CreatedAt             time.Time `bson:"created_at"`
	UpdatedAt             time.Time `bson:"updated_at"`
}

// UserGoal is the per-user goal document: one long-term goal plus its
// ordered daily task templates. The template list is the single source of
// truth for which tasks exist.
type UserGoal struct {
	TelegramID   string       `bson:"_id"`
	LongTermGoal LongTermGoal `bson:"long_term_goal"`
	DailyTasks   []DailyTask  `bson:"daily_tasks"`
	CreatedAt    time.Time    `bson:"created_at"`
	UpdatedAt    time.Time    `bson:"updated_at"`
}
