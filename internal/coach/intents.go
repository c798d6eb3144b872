package coach

// Intent enumerates the conversation states the classifier may produce.
// Anything outside the known set maps to IntentUnknown, which gets its own
// handler instead of falling through with an empty instruction.
type Intent string

const (
	IntentGreeting        Intent = "greeting"
	IntentGoalSuggestions Intent = "ask_goal_suggestions"
	IntentSaveGoals       Intent = "save_discussed_goals"
	IntentUnknown         Intent = "unknown"
)

var knownIntents = map[Intent]bool{
	IntentGreeting:        true,
	IntentGoalSuggestions: true,
	IntentSaveGoals:       true,
}

// ParseIntent maps a raw classification label onto the closed intent set.
func ParseIntent(label string) Intent {
	intent := Intent(label)
	if knownIntents[intent] {
		return intent
	}
	return IntentUnknown
}

// classification is the structured output of the classifier call.
type classification struct {
	Classification string `json:"classification"`
}
