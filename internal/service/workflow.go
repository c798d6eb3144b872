package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"habit-coach/internal/clock"
	"habit-coach/internal/coach"
	"habit-coach/internal/model"
)

// Task actions accepted by HandleTaskAction. They match the callback-data
// prefixes used by the chat transport.
const (
	ActionComplete = "complete"
	ActionSkip     = "skip"
)

// UserDirectory is the slice of the user repository the workflow needs.
type UserDirectory interface {
	ListAll(ctx context.Context) ([]model.User, error)
	Get(ctx context.Context, telegramID string) (*model.User, error)
	AdjustExperience(ctx context.Context, telegramID string, delta int) (*model.User, error)
}

// GoalStore loads a user's goal record with its daily task templates.
type GoalStore interface {
	Load(ctx context.Context, telegramID string) (*model.UserGoal, error)
}

// ProgressLedger is the slice of the progress repository the workflow needs.
type ProgressLedger interface {
	CreateForToday(ctx context.Context, telegramID string) (bool, error)
	MarkTask(ctx context.Context, telegramID, taskID string, completed bool) error
	LoadToday(ctx context.Context, telegramID string) (*model.DailyProgress, error)
}

// TaskView is one task as presented to a user: the template joined with
// today's completion state.
type TaskView struct {
	TaskID      string
	Title       string
	Note        string
	MinRequired int
	Unit        string
	Completed   bool
}

// Messenger delivers workflow output to the chat transport.
type Messenger interface {
	SendText(ctx context.Context, telegramID, text string) error
	SendTask(ctx context.Context, telegramID string, ordinal int, task TaskView) error
}

// SharePrompter composes the evening check-in message.
type SharePrompter interface {
	DailyShare(ctx context.Context, user *model.User) (string, error)
}

// MoodJournal computes or returns a cached mood entry for one day.
type MoodJournal interface {
	GetOrCompute(ctx context.Context, telegramID, date string) (*model.DailyMood, error)
}

// BatchReport counts the outcome of one all-users sweep.
type BatchReport struct {
	Succeeded int
	Failed    int
}

// Workflow drives the daily cycle: midnight rollover, task reminders, the
// evening share prompt, and the nightly mood sweep. Batch methods never fail
// as a whole; a broken user is logged, counted, and skipped.
type Workflow struct {
	users     UserDirectory
	goals     GoalStore
	ledger    ProgressLedger
	messenger Messenger
	share     SharePrompter
	moods     MoodJournal
	clock     clock.Clock

	rewardExp int
	sendPause time.Duration
}

func NewWorkflow(users UserDirectory, goals GoalStore, ledger ProgressLedger, messenger Messenger,
	share SharePrompter, moods MoodJournal, clk clock.Clock, rewardExp int, sendPause time.Duration) *Workflow {
	return &Workflow{
		users:     users,
		goals:     goals,
		ledger:    ledger,
		messenger: messenger,
		share:     share,
		moods:     moods,
		clock:     clk,
		rewardExp: rewardExp,
		sendPause: sendPause,
	}
}

// RolloverAllUsers creates today's progress document for every registered
// user. Users without task templates are no-ops, not failures.
func (w *Workflow) RolloverAllUsers(ctx context.Context) (BatchReport, error) {
	users, err := w.users.ListAll(ctx)
	if err != nil {
		return BatchReport{}, fmt.Errorf("list users: %w", err)
	}

	var report BatchReport
	for _, user := range users {
		created, err := w.ledger.CreateForToday(ctx, user.TelegramID)
		switch {
		case errors.Is(err, model.ErrDuplicate):
			// Already rolled over, e.g. by the on-demand HTTP endpoint.
			report.Succeeded++
		case err != nil:
			log.Printf("[warn] rollover for %s: %v", user.TelegramID, err)
			report.Failed++
		default:
			if !created {
				log.Printf("[info] rollover for %s: no task templates, nothing to create", user.TelegramID)
			}
			report.Succeeded++
		}
	}
	log.Printf("[info] rollover done: %d succeeded, %d failed", report.Succeeded, report.Failed)
	return report, nil
}

// SendRemindersAllUsers sends each user their outstanding task list. One
// user's delivery failure never stops the batch.
func (w *Workflow) SendRemindersAllUsers(ctx context.Context) (BatchReport, error) {
	users, err := w.users.ListAll(ctx)
	if err != nil {
		return BatchReport{}, fmt.Errorf("list users: %w", err)
	}

	var report BatchReport
	for _, user := range users {
		if err := w.RemindUser(ctx, &user); err != nil {
			log.Printf("[warn] reminder for %s: %v", user.TelegramID, err)
			report.Failed++
			continue
		}
		report.Succeeded++
	}
	log.Printf("[info] reminders done: %d succeeded, %d failed", report.Succeeded, report.Failed)
	return report, nil
}

// RemindUser sends one user their tasks for today: a header, then one message
// per task in template order, with a pacing pause between sends. A user with
// no goal or no document today gets nothing and that is not an error.
func (w *Workflow) RemindUser(ctx context.Context, user *model.User) error {
	views, err := w.todayViews(ctx, user.TelegramID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		return err
	}
	if len(views) == 0 {
		return nil
	}

	header := fmt.Sprintf("Good day, %s! Here are your tasks for today:", user.FirstName)
	if err := w.messenger.SendText(ctx, user.TelegramID, header); err != nil {
		return fmt.Errorf("send header: %w", err)
	}
	for i, view := range views {
		if err := w.pause(ctx); err != nil {
			return err
		}
		if err := w.messenger.SendTask(ctx, user.TelegramID, i+1, view); err != nil {
			return fmt.Errorf("send task %s: %w", view.TaskID, err)
		}
	}
	return nil
}

// todayViews joins the task templates with today's progress entries on task
// id, preserving template order. A template with no matching entry is a
// data inconsistency: it is logged and omitted rather than shown unmarkable.
func (w *Workflow) todayViews(ctx context.Context, telegramID string) ([]TaskView, error) {
	goal, err := w.goals.Load(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	progress, err := w.ledger.LoadToday(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.TaskProgress, len(progress.Tasks))
	for _, entry := range progress.Tasks {
		byID[entry.TaskID] = entry
	}

	views := make([]TaskView, 0, len(goal.DailyTasks))
	for _, tmpl := range goal.DailyTasks {
		entry, ok := byID[tmpl.ID]
		if !ok {
			log.Printf("[warn] task %s for %s has no progress entry today, skipping", tmpl.ID, telegramID)
			continue
		}
		views = append(views, TaskView{
			TaskID:      tmpl.ID,
			Title:       tmpl.Title,
			Note:        tmpl.Note,
			MinRequired: tmpl.MinRequiredCompletion,
			Unit:        tmpl.CompletionUnit,
			Completed:   entry.Completed,
		})
	}
	return views, nil
}

// ActionResult is what the transport needs to confirm a task action.
type ActionResult struct {
	TaskID    string
	Title     string
	Completed bool
	// RewardedExp is nonzero only when the action granted experience.
	RewardedExp int
	Level       int
}

// HandleTaskAction applies a complete or skip callback. Completing a task
// marks it done and grants the configured experience reward; skipping only
// marks it. The mark and the reward are separate writes, so a reward failure
// after a successful mark is reported as an inconsistency instead of being
// rolled back.
func (w *Workflow) HandleTaskAction(ctx context.Context, telegramID, taskID, action string) (*ActionResult, error) {
	var completed bool
	switch action {
	case ActionComplete:
		completed = true
	case ActionSkip:
		completed = false
	default:
		return nil, fmt.Errorf("unknown task action %q: %w", action, model.ErrInvalid)
	}

	if err := w.ledger.MarkTask(ctx, telegramID, taskID, completed); err != nil {
		return nil, fmt.Errorf("mark task %s: %w", taskID, err)
	}

	result := &ActionResult{TaskID: taskID, Completed: completed}
	if progress, err := w.ledger.LoadToday(ctx, telegramID); err == nil {
		for _, entry := range progress.Tasks {
			if entry.TaskID == taskID {
				result.Title = entry.Title
				break
			}
		}
	}

	if completed {
		user, err := w.users.AdjustExperience(ctx, telegramID, w.rewardExp)
		if err != nil {
			return result, fmt.Errorf("task %s marked but experience not granted for %s: %w", taskID, telegramID, err)
		}
		result.RewardedExp = w.rewardExp
		result.Level = user.Level
	}
	return result, nil
}

// AskDailyShareAllUsers sends every user the evening check-in question.
func (w *Workflow) AskDailyShareAllUsers(ctx context.Context) (BatchReport, error) {
	users, err := w.users.ListAll(ctx)
	if err != nil {
		return BatchReport{}, fmt.Errorf("list users: %w", err)
	}

	var report BatchReport
	for i, user := range users {
		if i > 0 {
			if err := w.pause(ctx); err != nil {
				return report, err
			}
		}
		text, err := w.share.DailyShare(ctx, &user)
		if err != nil {
			log.Printf("[warn] daily share for %s: %v", user.TelegramID, err)
			report.Failed++
			continue
		}
		if err := w.messenger.SendText(ctx, user.TelegramID, text); err != nil {
			log.Printf("[warn] daily share delivery for %s: %v", user.TelegramID, err)
			report.Failed++
			continue
		}
		report.Succeeded++
	}
	log.Printf("[info] daily share done: %d succeeded, %d failed", report.Succeeded, report.Failed)
	return report, nil
}

// AnalyzeMoodAllUsers computes yesterday's mood entry for every user. Users
// with no conversation that day are skipped, not failed.
func (w *Workflow) AnalyzeMoodAllUsers(ctx context.Context) (BatchReport, error) {
	users, err := w.users.ListAll(ctx)
	if err != nil {
		return BatchReport{}, fmt.Errorf("list users: %w", err)
	}
	date := clock.DayKey(w.clock.Now().In(w.clock.Location()).AddDate(0, 0, -1))

	var report BatchReport
	for _, user := range users {
		_, err := w.moods.GetOrCompute(ctx, user.TelegramID, date)
		switch {
		case errors.Is(err, coach.ErrNoTranscript):
			report.Succeeded++
		case err != nil:
			log.Printf("[warn] mood analysis for %s on %s: %v", user.TelegramID, date, err)
			report.Failed++
		default:
			report.Succeeded++
		}
	}
	log.Printf("[info] mood analysis for %s done: %d succeeded, %d failed", date, report.Succeeded, report.Failed)
	return report, nil
}

// pause waits the configured send delay, aborting early on context cancel.
func (w *Workflow) pause(ctx context.Context) error {
	if w.sendPause <= 0 {
		return nil
	}
	timer := time.NewTimer(w.sendPause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
