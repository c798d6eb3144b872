package coach

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"habit-coach/internal/clock"
	"habit-coach/internal/llm"
	"habit-coach/internal/model"
)

const fallbackReply = "I didn't quite follow that, but I'm here for you. " +
	"Tell me about a goal you'd like to work on, or ask me anything about your daily tasks."

// ReplyService runs the conversation pipeline: classify the message into a
// closed intent set, run the matching handler, and record the turn in the
// transcript only after the reply succeeded.
type ReplyService struct {
	llm    llm.Client
	goals  GoalStore
	convos ConversationLog
	clock  clock.Clock
}

func NewReplyService(client llm.Client, goals GoalStore, convos ConversationLog, clk clock.Clock) *ReplyService {
	return &ReplyService{llm: client, goals: goals, convos: convos, clock: clk}
}

// Reply handles one inbound user message and returns the assistant's reply.
// On success exactly two messages are appended to the transcript; on failure
// none are.
func (s *ReplyService) Reply(ctx context.Context, user *model.User, text string) (string, error) {
	history, err := s.convos.History(ctx, user.TelegramID)
	if err != nil {
		return "", err
	}

	intent := s.classify(ctx, user, history, text)
	log.Printf("[info] classified message from %s as %q", user.TelegramID, intent)

	var reply string
	switch intent {
	case IntentGreeting:
		reply, err = s.replyGreeting(ctx, user, history, text)
	case IntentGoalSuggestions:
		reply, err = s.generate(ctx, llm.TaskReply, suggestionsPrompt(user, history), text)
	case IntentSaveGoals:
		reply, err = s.replySaveGoals(ctx, user, history, text)
	case IntentUnknown:
		reply = fallbackReply
	}
	if err != nil {
		return "", err
	}

	if err := s.convos.AppendTurn(ctx, user.TelegramID, text, reply); err != nil {
		return "", err
	}
	return reply, nil
}

// Greeting produces the /start welcome for a new or returning user.
func (s *ReplyService) Greeting(ctx context.Context, user *model.User, isNew bool) (string, error) {
	return s.generate(ctx, llm.TaskGreeting, startGreetingPrompt(user, isNew), "Say hello.")
}

// DailyShare produces the evening check-in question for the share job.
func (s *ReplyService) DailyShare(ctx context.Context, user *model.User) (string, error) {
	return s.generate(ctx, llm.TaskReply, dailySharePrompt(user), "Write the check-in message.")
}

// classify never fails the turn: a broken classifier response degrades to
// IntentUnknown and the fallback handler.
func (s *ReplyService) classify(ctx context.Context, user *model.User, history []model.Message, text string) Intent {
	resp, err := s.llm.Generate(ctx, llm.Request{
		Task:   llm.TaskClassify,
		System: classifierPrompt(user, history),
		Prompt: text,
	})
	if err != nil {
		log.Printf("[warn] classify for %s: %v", user.TelegramID, err)
		return IntentUnknown
	}
	cls, err := llm.ExtractJSON[classification](resp.Text, nil)
	if err != nil {
		log.Printf("[warn] classify parse for %s: %v", user.TelegramID, err)
		return IntentUnknown
	}
	return ParseIntent(cls.Classification)
}

func (s *ReplyService) replyGreeting(ctx context.Context, user *model.User, history []model.Message, text string) (string, error) {
	goal, err := s.goals.Load(ctx, user.TelegramID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return "", err
	}
	return s.generate(ctx, llm.TaskReply, greetingReplyPrompt(user, goal, history), text)
}

// goalPlan mirrors the JSON shape requested by goalPlanPrompt.
type goalPlan struct {
	LongTermGoal struct {
		Summary    string `json:"summary"`
		TargetDate string `json:"target_date"`
		Status     string `json:"status"`
	} `json:"long_term_goal"`
	DailyTasks []struct {
		Title                 string `json:"title"`
		Note                  string `json:"note"`
		MinRequiredCompletion int    `json:"min_required_completion"`
		CompletionUnit        string `json:"completion_unit"`
	} `json:"daily_tasks"`
}

func validateGoalPlan(p goalPlan) error {
	if p.LongTermGoal.Summary == "" {
		return fmt.Errorf("long-term goal summary is empty")
	}
	if len(p.DailyTasks) == 0 {
		return fmt.Errorf("no daily tasks")
	}
	for i, task := range p.DailyTasks {
		if task.Title == "" {
			return fmt.Errorf("task %d has no title", i+1)
		}
	}
	return nil
}

func (s *ReplyService) replySaveGoals(ctx context.Context, user *model.User, history []model.Message, text string) (string, error) {
	plan, err := s.extractPlan(ctx, user, history, text)
	if err != nil {
		log.Printf("[warn] goal plan for %s: %v", user.TelegramID, err)
		return s.generate(ctx, llm.TaskReply, goalsNotSavedPrompt(user, history), text)
	}

	longTerm, tasks := planToModel(plan)
	if err := s.goals.Replace(ctx, user.TelegramID, longTerm, tasks); err != nil {
		log.Printf("[warn] save goals for %s: %v", user.TelegramID, err)
		return s.generate(ctx, llm.TaskReply, goalsNotSavedPrompt(user, history), text)
	}
	return s.generate(ctx, llm.TaskReply, goalsSavedPrompt(user, history), text)
}

func (s *ReplyService) extractPlan(ctx context.Context, user *model.User, history []model.Message, text string) (goalPlan, error) {
	resp, err := s.llm.Generate(ctx, llm.Request{
		Task:   llm.TaskGoalPlan,
		System: goalPlanPrompt(user, history),
		Prompt: text,
	})
	if err != nil {
		return goalPlan{}, err
	}
	return llm.ExtractJSON[goalPlan](resp.Text, validateGoalPlan)
}

func planToModel(plan goalPlan) (model.LongTermGoal, []model.DailyTask) {
	longTerm := model.LongTermGoal{
		Summary: plan.LongTermGoal.Summary,
		Status:  model.GoalStatus(plan.LongTermGoal.Status),
	}
	if plan.LongTermGoal.Status == "" {
		longTerm.Status = model.GoalStatusActive
	}
	if plan.LongTermGoal.TargetDate != "" {
		if date, err := time.Parse("2006-01-02", plan.LongTermGoal.TargetDate); err == nil {
			longTerm.TargetDate = &date
		}
	}

	tasks := make([]model.DailyTask, 0, len(plan.DailyTasks))
	for _, task := range plan.DailyTasks {
		minRequired := task.MinRequiredCompletion
		if minRequired < 1 {
			minRequired = 1
		}
		unit := task.CompletionUnit
		if unit == "" {
			unit = "times"
		}
		tasks = append(tasks, model.DailyTask{
			Title:                 task.Title,
			Note:                  task.Note,
			MinRequiredCompletion: minRequired,
			CompletionUnit:        unit,
		})
	}
	return longTerm, tasks
}

func (s *ReplyService) generate(ctx context.Context, task llm.Task, system, prompt string) (string, error) {
	resp, err := s.llm.Generate(ctx, llm.Request{Task: task, System: system, Prompt: prompt})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
