package coach

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habit-coach/internal/model"
)

const moodJSON = `{
	"summary": "A productive, upbeat day.",
	"mood_label": ["focused", "optimistic"],
	"mood_polarity": "positive",
	"motivation_level": "high",
	"energy_level": "moderate"
}`

func moodFixture(t *testing.T) (*MoodService, *scriptedLLM, *memConvos) {
	t.Helper()
	now := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)
	client := newScriptedLLM(moodJSON, moodJSON)
	convos := newMemConvos(now)
	svc := NewMoodService(client, newMemMoods(), convos, newMemGoals(), &fixedClock{now: now})
	return svc, client, convos
}

func TestGetOrComputeIsLazy(t *testing.T) {
	svc, client, convos := moodFixture(t)
	ctx := context.Background()
	require.NoError(t, convos.AppendTurn(ctx, "u1", "today went great", "glad to hear it"))

	first, err := svc.GetOrCompute(ctx, "u1", "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, model.MoodPositive, first.Polarity)
	assert.Equal(t, model.ScaleHigh, first.Motivation)
	assert.Equal(t, 1, client.totalCalls())

	second, err := svc.GetOrCompute(ctx, "u1", "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, 1, client.totalCalls(), "second call must hit the cache")
}

func TestGetOrComputeEmptyDaySkipsModel(t *testing.T) {
	svc, client, convos := moodFixture(t)
	ctx := context.Background()
	require.NoError(t, convos.AppendTurn(ctx, "u1", "hello", "hi"))

	// Conversation exists, but not on the queried day.
	_, err := svc.GetOrCompute(ctx, "u1", "2025-06-02")
	assert.ErrorIs(t, err, ErrNoTranscript)
	assert.Zero(t, client.totalCalls())
}

func TestGetOrComputeRejectsBadPolarity(t *testing.T) {
	now := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)
	client := newScriptedLLM(`{"summary": "x", "mood_polarity": "ecstatic", "motivation_level": "high", "energy_level": "high"}`)
	convos := newMemConvos(now)
	svc := NewMoodService(client, newMemMoods(), convos, newMemGoals(), &fixedClock{now: now})

	ctx := context.Background()
	require.NoError(t, convos.AppendTurn(ctx, "u1", "hey", "hello"))

	_, err := svc.GetOrCompute(ctx, "u1", "2025-06-01")
	assert.Error(t, err)
}

func TestSummarizeRecent(t *testing.T) {
	svc, _, convos := moodFixture(t)
	ctx := context.Background()
	require.NoError(t, convos.AppendTurn(ctx, "u1", "today went great", "nice"))

	_, err := svc.GetOrCompute(ctx, "u1", "2025-06-01")
	require.NoError(t, err)

	digest, err := svc.SummarizeRecent(ctx, "u1", 7)
	require.NoError(t, err)
	assert.Contains(t, digest, "2025-06-01")
	assert.Contains(t, digest, "positive")
}

func TestSummarizeRecentEmpty(t *testing.T) {
	svc, _, _ := moodFixture(t)
	digest, err := svc.SummarizeRecent(context.Background(), "nobody", 7)
	require.NoError(t, err)
	assert.Equal(t, "No mood entries yet.", digest)
}
