package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"habit-coach/internal/clock"
	"habit-coach/internal/llm"
	"habit-coach/internal/model"
)

// ErrNoTranscript means the user had no conversation on the requested day,
// so there is nothing to analyze.
var ErrNoTranscript = errors.New("no conversation for that day")

// MoodService derives and stores one sentiment summary per user per day.
type MoodService struct {
	llm    llm.Client
	moods  MoodStore
	convos ConversationLog
	goals  GoalStore
	clock  clock.Clock
}

func NewMoodService(client llm.Client, moods MoodStore, convos ConversationLog, goals GoalStore, clk clock.Clock) *MoodService {
	return &MoodService{llm: client, moods: moods, convos: convos, goals: goals, clock: clk}
}

// moodPrediction mirrors the JSON shape requested by moodPrompt.
type moodPrediction struct {
	Summary       string   `json:"summary"`
	MoodLabels    []string `json:"mood_label"`
	Polarity      string   `json:"mood_polarity"`
	Motivation    string   `json:"motivation_level"`
	Energy        string   `json:"energy_level"`
	TaskCompleted *int     `json:"task_completed,omitempty"`
	TaskSkipped   *int     `json:"task_skipped,omitempty"`
}

func validateMoodPrediction(p moodPrediction) error {
	switch model.MoodPolarity(p.Polarity) {
	case model.MoodPositive, model.MoodNegative, model.MoodNeutral, model.MoodMixed:
	default:
		return fmt.Errorf("unknown polarity %q", p.Polarity)
	}
	for _, level := range []string{p.Motivation, p.Energy} {
		switch model.MoodScale(level) {
		case model.ScaleLow, model.ScaleModerate, model.ScaleHigh:
		default:
			return fmt.Errorf("unknown level %q", level)
		}
	}
	return nil
}

// GetOrCompute returns the stored entry for (user, date), computing and
// persisting it on first access. An empty transcript window for the day
// yields ErrNoTranscript without touching the language model, so repeated
// queries for a quiet day stay free.
func (s *MoodService) GetOrCompute(ctx context.Context, telegramID, date string) (*model.DailyMood, error) {
	entry, err := s.moods.Get(ctx, telegramID, date)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	history, err := s.convos.History(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	window := messagesOn(history, date, s.clock.Location())
	if len(window) == 0 {
		return nil, ErrNoTranscript
	}

	goal, err := s.goals.Load(ctx, telegramID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	resp, err := s.llm.Generate(ctx, llm.Request{
		Task:   llm.TaskMood,
		System: moodPrompt(goal, window),
		Prompt: "Analyze the day.",
	})
	if err != nil {
		return nil, err
	}
	pred, err := llm.ExtractJSON[moodPrediction](resp.Text, validateMoodPrediction)
	if err != nil {
		return nil, err
	}

	entry = &model.DailyMood{
		TelegramID:     telegramID,
		Date:           date,
		Summary:        pred.Summary,
		MoodLabels:     pred.MoodLabels,
		Polarity:       model.MoodPolarity(pred.Polarity),
		Motivation:     model.MoodScale(pred.Motivation),
		Energy:         model.MoodScale(pred.Energy),
		TasksCompleted: pred.TaskCompleted,
		TasksSkipped:   pred.TaskSkipped,
	}
	if err := s.moods.Insert(ctx, entry); err != nil {
		// A concurrent compute won the insert; its entry is authoritative.
		if errors.Is(err, model.ErrDuplicate) {
			return s.moods.Get(ctx, telegramID, date)
		}
		return nil, err
	}
	return entry, nil
}

// SummarizeRecent formats the last n mood entries as a plain-text digest.
// It stores nothing; the digest feeds multi-day reflection prompts.
func (s *MoodService) SummarizeRecent(ctx context.Context, telegramID string, n int) (string, error) {
	entries, err := s.moods.LoadRecent(ctx, telegramID, n)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "No mood entries yet.", nil
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s: %s mood, motivation %s, energy %s", e.Date, e.Polarity, e.Motivation, e.Energy)
		if len(e.MoodLabels) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(e.MoodLabels, ", "))
		}
		if e.Summary != "" {
			b.WriteString("\n  ")
			b.WriteString(e.Summary)
		}
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String()), nil
}

// FormatEntry renders one entry for chat display.
func FormatEntry(e *model.DailyMood) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🪞 *Mood for %s*\n\n%s\n\n", e.Date, e.Summary)
	if len(e.MoodLabels) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(e.MoodLabels, ", "))
	}
	fmt.Fprintf(&b, "Polarity: %s\nMotivation: %s\nEnergy: %s", e.Polarity, e.Motivation, e.Energy)
	if e.TasksCompleted != nil || e.TasksSkipped != nil {
		b.WriteByte('\n')
		if e.TasksCompleted != nil {
			fmt.Fprintf(&b, "Tasks completed: %d ", *e.TasksCompleted)
		}
		if e.TasksSkipped != nil {
			fmt.Fprintf(&b, "Tasks skipped: %d", *e.TasksSkipped)
		}
	}
	return strings.TrimSpace(b.String())
}

// messagesOn filters the transcript down to the given local calendar day.
func messagesOn(messages []model.Message, date string, loc *time.Location) []model.Message {
	var window []model.Message
	for _, m := range messages {
		if clock.DayKey(m.Timestamp.In(loc)) == date {
			window = append(window, m)
		}
	}
	return window
}
