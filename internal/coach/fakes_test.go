package coach

import (
	"context"
	"fmt"
	"time"

	"habit-coach/internal/llm"
	"habit-coach/internal/model"
)

// fixedClock pins "now" for deterministic day-boundary behavior.
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time           { return c.now }
func (c *fixedClock) Location() *time.Location { return c.now.Location() }

// scriptedLLM returns queued responses in order and counts calls per task.
type scriptedLLM struct {
	responses []string
	err       error
	calls     map[llm.Task]int
}

func newScriptedLLM(responses ...string) *scriptedLLM {
	return &scriptedLLM{responses: responses, calls: make(map[llm.Task]int)}
}

func (m *scriptedLLM) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	m.calls[req.Task]++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return &llm.Response{Text: ""}, nil
	}
	text := m.responses[0]
	m.responses = m.responses[1:]
	return &llm.Response{Text: text}, nil
}

func (m *scriptedLLM) totalCalls() int {
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// memGoals is an in-memory GoalStore.
type memGoals struct {
	records map[string]*model.UserGoal
}

func newMemGoals() *memGoals {
	return &memGoals{records: make(map[string]*model.UserGoal)}
}

func (g *memGoals) Load(_ context.Context, id string) (*model.UserGoal, error) {
	rec, ok := g.records[id]
	if !ok {
		return nil, fmt.Errorf("goal record for %s: %w", id, model.ErrNotFound)
	}
	return rec, nil
}

func (g *memGoals) Replace(_ context.Context, id string, longTerm model.LongTermGoal, tasks []model.DailyTask) error {
	g.records[id] = &model.UserGoal{TelegramID: id, LongTermGoal: longTerm, DailyTasks: tasks}
	return nil
}

// memConvos is an in-memory ConversationLog.
type memConvos struct {
	messages  map[string][]model.Message
	appendErr error
	now       time.Time
}

func newMemConvos(now time.Time) *memConvos {
	return &memConvos{messages: make(map[string][]model.Message), now: now}
}

func (c *memConvos) History(_ context.Context, id string) ([]model.Message, error) {
	return c.messages[id], nil
}

func (c *memConvos) AppendTurn(_ context.Context, id, userText, assistantText string) error {
	if c.appendErr != nil {
		return c.appendErr
	}
	c.messages[id] = append(c.messages[id],
		model.Message{Role: model.RoleUser, Text: userText, Timestamp: c.now},
		model.Message{Role: model.RoleAssistant, Text: assistantText, Timestamp: c.now},
	)
	return nil
}

// memMoods is an in-memory MoodStore.
type memMoods struct {
	entries map[string]*model.DailyMood
}

func newMemMoods() *memMoods {
	return &memMoods{entries: make(map[string]*model.DailyMood)}
}

func moodKey(id, date string) string { return id + "|" + date }

func (m *memMoods) Get(_ context.Context, id, date string) (*model.DailyMood, error) {
	entry, ok := m.entries[moodKey(id, date)]
	if !ok {
		return nil, fmt.Errorf("mood for %s on %s: %w", id, date, model.ErrNotFound)
	}
	return entry, nil
}

func (m *memMoods) Insert(_ context.Context, entry *model.DailyMood) error {
	key := moodKey(entry.TelegramID, entry.Date)
	if _, exists := m.entries[key]; exists {
		return fmt.Errorf("mood for %s on %s: %w", entry.TelegramID, entry.Date, model.ErrDuplicate)
	}
	m.entries[key] = entry
	return nil
}

func (m *memMoods) LoadRecent(_ context.Context, id string, n int) ([]model.DailyMood, error) {
	var out []model.DailyMood
	for _, entry := range m.entries {
		if entry.TelegramID == id {
			out = append(out, *entry)
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}
