package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habit-coach/internal/model"
	"habit-coach/internal/storage"
)

// These tests run against a live MongoDB and are skipped unless MONGODB_URI
// is set. They exercise the behavior that depends on the store itself: the
// unique compound index, atomic update pipelines, and positional updates.

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time           { return c.now }
func (c *fixedClock) Location() *time.Location { return c.now.Location() }

var testStore *storage.Store

func TestMain(m *testing.M) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		os.Exit(m.Run()) // individual tests skip themselves
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	testStore, err = storage.Connect(ctx, uri, "habit_coach_test")
	if err != nil {
		fmt.Println("mongo connect failed:", err)
		os.Exit(1)
	}
	code := m.Run()
	_ = testStore.Disconnect(context.Background())
	os.Exit(code)
}

func requireStore(t *testing.T) *storage.Store {
	t.Helper()
	if testStore == nil {
		t.Skip("MONGODB_URI not set")
	}
	return testStore
}

func newID(t *testing.T) string {
	return fmt.Sprintf("test-%s-%d", t.Name(), time.Now().UnixNano())
}

func TestAdjustExperienceClampsAndLevels(t *testing.T) {
	store := requireStore(t)
	clk := &fixedClock{now: time.Now()}
	users := NewUserRepository(store, clk)
	ctx := context.Background()
	id := newID(t)

	_, created, err := users.EnsureRegistered(ctx, id, model.Profile{FirstName: "Ada", Username: "ada"})
	require.NoError(t, err)
	require.True(t, created)

	u, err := users.AdjustExperience(ctx, id, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, u.Exp)
	assert.Equal(t, 1, u.Level)

	u, err = users.AdjustExperience(ctx, id, -50)
	require.NoError(t, err)
	assert.Equal(t, 0, u.Exp)
	assert.Equal(t, 1, u.Level)

	u, err = users.AdjustExperience(ctx, id, 250)
	require.NoError(t, err)
	assert.Equal(t, 250, u.Exp)
	assert.Equal(t, 3, u.Level)
}

func TestAdjustExperienceUnknownUser(t *testing.T) {
	store := requireStore(t)
	users := NewUserRepository(store, &fixedClock{now: time.Now()})

	_, err := users.AdjustExperience(context.Background(), newID(t), 10)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestEnsureRegisteredIdempotent(t *testing.T) {
	store := requireStore(t)
	users := NewUserRepository(store, &fixedClock{now: time.Now()})
	ctx := context.Background()
	id := newID(t)

	_, created, err := users.EnsureRegistered(ctx, id, model.Profile{FirstName: "Ada"})
	require.NoError(t, err)
	assert.True(t, created)

	// Second attempt must not overwrite the existing profile.
	u, created, err := users.EnsureRegistered(ctx, id, model.Profile{FirstName: "Someone Else"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Ada", u.FirstName)
}

func TestGoalRoundTrip(t *testing.T) {
	store := requireStore(t)
	clk := &fixedClock{now: time.Now()}
	goals := NewGoalRepository(store, clk)
	ctx := context.Background()
	id := newID(t)

	longTerm := model.LongTermGoal{Summary: "Learn Spanish fluently"}
	tasks := []model.DailyTask{
		{Title: "Duolingo practice", Note: "2 lessons", MinRequiredCompletion: 2, CompletionUnit: "times"},
		{Title: "Vocabulary flashcards", Note: "10 new words", MinRequiredCompletion: 15, CompletionUnit: "minutes"},
	}
	require.NoError(t, goals.Replace(ctx, id, longTerm, tasks))

	got, err := goals.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Learn Spanish fluently", got.LongTermGoal.Summary)
	assert.Equal(t, model.GoalStatusActive, got.LongTermGoal.Status)
	require.Len(t, got.DailyTasks, 2)
	assert.Equal(t, "Duolingo practice", got.DailyTasks[0].Title)
	assert.Equal(t, 2, got.DailyTasks[0].MinRequiredCompletion)
	assert.Equal(t, "times", got.DailyTasks[0].CompletionUnit)
	assert.Equal(t, "Vocabulary flashcards", got.DailyTasks[1].Title)
	assert.NotEmpty(t, got.DailyTasks[0].ID)
	assert.NotEqual(t, got.DailyTasks[0].ID, got.DailyTasks[1].ID)
}

func TestReplaceRejectsDuplicateTaskIDs(t *testing.T) {
	store := requireStore(t)
	goals := NewGoalRepository(store, &fixedClock{now: time.Now()})

	tasks := []model.DailyTask{
		{ID: "same", Title: "A", MinRequiredCompletion: 1},
		{ID: "same", Title: "B", MinRequiredCompletion: 1},
	}
	err := goals.Replace(context.Background(), newID(t), model.LongTermGoal{Summary: "g"}, tasks)
	assert.ErrorIs(t, err, model.ErrInvalid)
}

func TestCreateForTodayDuplicate(t *testing.T) {
	store := requireStore(t)
	clk := &fixedClock{now: time.Now()}
	goals := NewGoalRepository(store, clk)
	progress := NewProgressRepository(store, goals, clk)
	ctx := context.Background()
	id := newID(t)

	tasks := []model.DailyTask{{Title: "Run", MinRequiredCompletion: 1, CompletionUnit: "times"}}
	require.NoError(t, goals.Replace(ctx, id, model.LongTermGoal{Summary: "fit"}, tasks))

	created, err := progress.CreateForToday(ctx, id)
	require.NoError(t, err)
	assert.True(t, created)

	_, err = progress.CreateForToday(ctx, id)
	assert.ErrorIs(t, err, model.ErrDuplicate)

	// Exactly one document for the day.
	docs, err := progress.LoadRecent(ctx, id, 10)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestCreateForTodayNothingToCreate(t *testing.T) {
	store := requireStore(t)
	clk := &fixedClock{now: time.Now()}
	goals := NewGoalRepository(store, clk)
	progress := NewProgressRepository(store, goals, clk)

	created, err := progress.CreateForToday(context.Background(), newID(t))
	require.NoError(t, err)
	assert.False(t, created)
}

func TestTemplateSnapshotIsolation(t *testing.T) {
	store := requireStore(t)
	clk := &fixedClock{now: time.Now()}
	goals := NewGoalRepository(store, clk)
	progress := NewProgressRepository(store, goals, clk)
	ctx := context.Background()
	id := newID(t)

	tasks := []model.DailyTask{
		{Title: "A", MinRequiredCompletion: 1},
		{Title: "B", MinRequiredCompletion: 1},
	}
	require.NoError(t, goals.Replace(ctx, id, model.LongTermGoal{Summary: "g"}, tasks))

	created, err := progress.CreateForToday(ctx, id)
	require.NoError(t, err)
	require.True(t, created)

	_, err = goals.AppendTask(ctx, id, "C", "added later", 1, "times")
	require.NoError(t, err)

	today, err := progress.LoadToday(ctx, id)
	require.NoError(t, err)
	require.Len(t, today.Tasks, 2)
	assert.Equal(t, "A", today.Tasks[0].Title)
	assert.Equal(t, "B", today.Tasks[1].Title)
}

func TestMarkTaskLastWriteWins(t *testing.T) {
	store := requireStore(t)
	clk := &fixedClock{now: time.Now()}
	goals := NewGoalRepository(store, clk)
	progress := NewProgressRepository(store, goals, clk)
	ctx := context.Background()
	id := newID(t)

	require.NoError(t, goals.Replace(ctx, id, model.LongTermGoal{Summary: "g"},
		[]model.DailyTask{{Title: "A", MinRequiredCompletion: 1}}))
	_, err := progress.CreateForToday(ctx, id)
	require.NoError(t, err)

	today, err := progress.LoadToday(ctx, id)
	require.NoError(t, err)
	taskID := today.Tasks[0].TaskID

	require.NoError(t, progress.MarkTask(ctx, id, taskID, true))
	require.NoError(t, progress.MarkTask(ctx, id, taskID, false))
	require.NoError(t, progress.MarkTask(ctx, id, taskID, true))

	today, err = progress.LoadToday(ctx, id)
	require.NoError(t, err)
	assert.True(t, today.Tasks[0].Completed)
	assert.NotNil(t, today.Tasks[0].CompletedAt)
}

func TestMarkTaskUnknownID(t *testing.T) {
	store := requireStore(t)
	clk := &fixedClock{now: time.Now()}
	goals := NewGoalRepository(store, clk)
	progress := NewProgressRepository(store, goals, clk)

	err := progress.MarkTask(context.Background(), newID(t), "no-such-task", true)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestConversationAppendTurn(t *testing.T) {
	store := requireStore(t)
	convos := NewConversationRepository(store, &fixedClock{now: time.Now()})
	ctx := context.Background()
	id := newID(t)

	msgs, err := convos.History(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, convos.AppendTurn(ctx, id, "hello", "hi there"))

	msgs, err = convos.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
}

func TestMoodInsertAndDuplicate(t *testing.T) {
	store := requireStore(t)
	moods := NewMoodRepository(store, &fixedClock{now: time.Now()})
	ctx := context.Background()
	id := newID(t)

	entry := &model.DailyMood{
		TelegramID: id,
		Date:       "2025-06-01",
		Summary:    "steady day",
		Polarity:   model.MoodNeutral,
		Motivation: model.ScaleModerate,
		Energy:     model.ScaleModerate,
	}
	require.NoError(t, moods.Insert(ctx, entry))

	dup := *entry
	err := moods.Insert(ctx, &dup)
	assert.ErrorIs(t, err, model.ErrDuplicate)

	got, err := moods.Get(ctx, id, "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, "steady day", got.Summary)
}
