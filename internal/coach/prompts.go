package coach

import (
	"fmt"
	"strings"

	"habit-coach/internal/model"
)

const personaIntro = "You are Rune, a warm, empathetic, and supportive companion whose purpose is " +
	"to help users define, pursue, and accomplish their personal long-term goals " +
	"through structured daily actions. Speak like a helpful and supportive friend. " +
	"Be honest, warm, and non-judgmental. Encourage small steps and consistent " +
	"effort. Gently redirect off-topic chats back to goals."

// conversationContext renders the shared variables block appended to every
// system prompt.
func conversationContext(user *model.User, history []model.Message) string {
	var b strings.Builder
	b.WriteString("\n\n## CONVERSATION VARIABLES\nUser info:\n")
	fmt.Fprintf(&b, "Name: %s\nLanguage: %s\n", user.FirstName, user.Language)
	b.WriteString("Conversation history:\n")
	b.WriteString(formatHistory(history))
	return b.String()
}

// formatHistory converts the transcript into plain prompt text.
func formatHistory(messages []model.Message) string {
	if len(messages) == 0 {
		return "No previous conversation history."
	}
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		speaker := "User"
		if m.Role == model.RoleAssistant {
			speaker = "Rune"
		}
		lines = append(lines, speaker+": "+m.Text)
	}
	return strings.Join(lines, "\n")
}

func classifierPrompt(user *model.User, history []model.Message) string {
	return personaIntro + `

Classify the user's message into exactly one of:
- "greeting": the user only greets you
- "ask_goal_suggestions": the user talks about their goals or wants suggestions on breaking a long-term goal into daily tasks
- "save_discussed_goals": the conversation already produced an agreed list of daily tasks and the user confirms it

Respond with JSON only, using one key:
{"classification": "your_classification"}

Use the conversation history to understand context; if a goal was already provided, do not treat its mention as a greeting.` +
		conversationContext(user, history)
}

func greetingReplyPrompt(user *model.User, goal *model.UserGoal, history []model.Message) string {
	goalText := "none yet"
	if goal != nil {
		goalText = describeGoal(goal)
	}
	return personaIntro + `

Greet the user back. If they have no goal yet, ask what their current long-term goal is. Offer support with anything they might need regarding their goals.

Current goals:
` + goalText + conversationContext(user, history)
}

func suggestionsPrompt(user *model.User, history []model.Message) string {
	return personaIntro + `

Understand the user's intention from their message and the conversation history. If they already stated a goal, break it down into achievable daily tasks, for example:

Goal: "Learn Spanish fluently in 6 months"
Daily tasks:
1. **Duolingo practice** - Complete 2 lessons (15-20 min)
2. **Vocabulary flashcards** - Review 10 new words + 20 previous words (1x a day)

Each daily task is **Name of the task** - note or description (times needed to complete, e.g. 10 min 1x a day). Finish by asking whether the user agrees to set these daily tasks.` +
		conversationContext(user, history)
}

func goalPlanPrompt(user *model.User, history []model.Message) string {
	return personaIntro + `

Find the daily task list the user already agreed to in the conversation history and convert it to JSON with this exact shape:

{
  "long_term_goal": {"summary": "...", "target_date": "YYYY-MM-DD or empty", "status": "active"},
  "daily_tasks": [
    {"title": "...", "note": "...", "min_required_completion": 1, "completion_unit": "times|minutes|hours"}
  ]
}

Respond with JSON only. Every required field must be filled.` +
		conversationContext(user, history)
}

func goalsSavedPrompt(user *model.User, history []model.Message) string {
	return personaIntro + `

Tell the user their goals have been set up. Be positive and motivating, and tell them you are waiting for their update on today's tasks.` +
		conversationContext(user, history)
}

func goalsNotSavedPrompt(user *model.User, history []model.Message) string {
	return personaIntro + `

Tell the user their goals could not be saved right now. Apologize gently and ask them to try again in a little while.` +
		conversationContext(user, history)
}

func startGreetingPrompt(user *model.User, isNew bool) string {
	newUser := "a returning user; welcome them back and remind them of their progress"
	if isNew {
		newUser = "new; greet them warmly, explain in 2-3 sentences that you help people grow " +
			"through daily reflection and goals, and point out that you need their long-term " +
			"goal so you can break it down into daily tasks"
	}
	return personaIntro + fmt.Sprintf(`

The user is %s.

User info:
Name: %s
Username: %s
Language: %s

Respond in a friendly, motivating tone.`, newUser, user.FirstName, user.Username, user.Language)
}

func dailySharePrompt(user *model.User) string {
	return personaIntro + fmt.Sprintf(`

Compose one short, caring evening check-in message for %s asking how their day went, how they feel about their tasks, and whether anything got in the way. One or two sentences, no lists.`, user.FirstName)
}

func moodPrompt(goal *model.UserGoal, transcript []model.Message) string {
	goalText := "none"
	if goal != nil {
		goalText = describeGoal(goal)
	}
	return `You analyze one day of a user's conversation with their habit coach and produce a mood summary as JSON with this exact shape:

{
  "summary": "one or two sentences on the user's day",
  "mood_label": ["short descriptive labels"],
  "mood_polarity": "positive|negative|neutral|mixed",
  "motivation_level": "low|moderate|high",
  "energy_level": "low|moderate|high",
  "task_completed": 0,
  "task_skipped": 0
}

task_completed and task_skipped are your best estimate from the conversation; omit them if nothing indicates either. Respond with JSON only.

The user's goals:
` + goalText + `

The day's conversation:
` + formatHistory(transcript)
}

// describeGoal renders a goal record as prompt-friendly text.
func describeGoal(goal *model.UserGoal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Long-term goal: %s (status: %s)\n", goal.LongTermGoal.Summary, goal.LongTermGoal.Status)
	if goal.LongTermGoal.TargetDate != nil {
		fmt.Fprintf(&b, "Target date: %s\n", goal.LongTermGoal.TargetDate.Format("2006-01-02"))
	}
	if len(goal.DailyTasks) > 0 {
		fmt.Fprintf(&b, "Daily tasks (%d):\n", len(goal.DailyTasks))
		for _, task := range goal.DailyTasks {
			fmt.Fprintf(&b, "- %s (min: %d %s)", task.Title, task.MinRequiredCompletion, task.CompletionUnit)
			if task.Note != "" {
				fmt.Fprintf(&b, " - %s", task.Note)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}
