package coach

import (
	"context"

	"habit-coach/internal/model"
)

// GoalStore is the slice of the goal repository the coach needs.
type GoalStore interface {
	Load(ctx context.Context, telegramID string) (*model.UserGoal, error)
	Replace(ctx context.Context, telegramID string, longTerm model.LongTermGoal, tasks []model.DailyTask) error
}

// ConversationLog is the transcript the reply pipeline reads and appends to.
type ConversationLog interface {
	History(ctx context.Context, telegramID string) ([]model.Message, error)
	AppendTurn(ctx context.Context, telegramID, userText, assistantText string) error
}

// MoodStore persists derived daily mood entries.
type MoodStore interface {
	Get(ctx context.Context, telegramID, date string) (*model.DailyMood, error)
	Insert(ctx context.Context, entry *model.DailyMood) error
	LoadRecent(ctx context.Context, telegramID string, n int) ([]model.DailyMood, error)
}
