package coach

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habit-coach/internal/model"
)

func testUser() *model.User {
	return &model.User{TelegramID: "u1", FirstName: "Ada", Language: "en"}
}

func replyFixture(client *scriptedLLM) (*ReplyService, *memGoals, *memConvos) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	goals := newMemGoals()
	convos := newMemConvos(now)
	svc := NewReplyService(client, goals, convos, &fixedClock{now: now})
	return svc, goals, convos
}

func TestReplyGreetingAppendsTurn(t *testing.T) {
	client := newScriptedLLM(
		`{"classification": "greeting"}`,
		"Hello Ada! What goal are you working toward?",
	)
	svc, _, convos := replyFixture(client)

	reply, err := svc.Reply(context.Background(), testUser(), "hi there")
	require.NoError(t, err)
	assert.Contains(t, reply, "Hello Ada")

	msgs := convos.messages["u1"]
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi there", msgs[0].Text)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
}

func TestReplyUnknownClassificationFallsBack(t *testing.T) {
	client := newScriptedLLM(`{"classification": "something_else"}`)
	svc, _, convos := replyFixture(client)

	reply, err := svc.Reply(context.Background(), testUser(), "asdf")
	require.NoError(t, err)
	assert.Equal(t, fallbackReply, reply)
	// Fallback still counts as a completed turn.
	assert.Len(t, convos.messages["u1"], 2)
}

func TestReplyGarbageClassifierOutputFallsBack(t *testing.T) {
	client := newScriptedLLM("no json here at all")
	svc, _, _ := replyFixture(client)

	reply, err := svc.Reply(context.Background(), testUser(), "hello?")
	require.NoError(t, err)
	assert.Equal(t, fallbackReply, reply)
}

func TestReplySaveGoalsReplacesRecord(t *testing.T) {
	planJSON := `{
		"long_term_goal": {"summary": "Learn Spanish", "target_date": "2025-12-01", "status": "active"},
		"daily_tasks": [
			{"title": "Duolingo practice", "note": "2 lessons", "min_required_completion": 2, "completion_unit": "times"},
			{"title": "Flashcards", "note": "", "min_required_completion": 0, "completion_unit": ""}
		]
	}`
	client := newScriptedLLM(
		`{"classification": "save_discussed_goals"}`,
		planJSON,
		"All set! Your goals are saved.",
	)
	svc, goals, _ := replyFixture(client)

	reply, err := svc.Reply(context.Background(), testUser(), "yes, let's go with that plan")
	require.NoError(t, err)
	assert.Contains(t, reply, "saved")

	rec, err := goals.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Learn Spanish", rec.LongTermGoal.Summary)
	require.NotNil(t, rec.LongTermGoal.TargetDate)
	require.Len(t, rec.DailyTasks, 2)
	// Missing numbers and units get sensible defaults.
	assert.Equal(t, 1, rec.DailyTasks[1].MinRequiredCompletion)
	assert.Equal(t, "times", rec.DailyTasks[1].CompletionUnit)
}

func TestReplySaveGoalsBadPlanApologizes(t *testing.T) {
	client := newScriptedLLM(
		`{"classification": "save_discussed_goals"}`,
		`{"long_term_goal": {"summary": ""}, "daily_tasks": []}`,
		"Sorry, I could not save that. Please try again shortly.",
	)
	svc, goals, _ := replyFixture(client)

	reply, err := svc.Reply(context.Background(), testUser(), "save it")
	require.NoError(t, err)
	assert.Contains(t, reply, "Sorry")

	_, err = goals.Load(context.Background(), "u1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestReplyFailedTurnAppendsNothing(t *testing.T) {
	client := newScriptedLLM(`{"classification": "greeting"}`, "hello!")
	svc, _, convos := replyFixture(client)
	convos.appendErr = errors.New("mongo down")

	_, err := svc.Reply(context.Background(), testUser(), "hi")
	require.Error(t, err)
	assert.Empty(t, convos.messages["u1"])
}
