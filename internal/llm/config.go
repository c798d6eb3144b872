package llm

import (
	"os"
	"strconv"
)

// Task identifies the kind of generation being performed. Each task carries
// its own temperature, token budget, and timeout.
type Task string

const (
	TaskClassify Task = "classify"
	TaskReply    Task = "reply"
	TaskGoalPlan Task = "goal_plan"
	TaskMood     Task = "mood"
	TaskGreeting Task = "greeting"
)

// TaskConfig holds per-task generation parameters.
type TaskConfig struct {
	Temperature float64
	MaxTokens   int
	TimeoutMs   int // overrides the global timeout if > 0
}

// Config holds the settings for the chat-completions client.
type Config struct {
	Endpoint   string
	APIKey     string
	Model      string
	TimeoutMs  int
	MaxRetries int
	Tasks      map[Task]TaskConfig
}

// DefaultConfig returns settings matching a local OpenAI-compatible server.
func DefaultConfig() Config {
	return Config{
		Endpoint:   "https://api.openai.com",
		Model:      "gpt-3.5-turbo",
		TimeoutMs:  15000,
		MaxRetries: 1,
		Tasks: map[Task]TaskConfig{
			TaskClassify: {Temperature: 0.0, MaxTokens: 128, TimeoutMs: 10000},
			TaskReply:    {Temperature: 0.7, MaxTokens: 1024},
			TaskGoalPlan: {Temperature: 0.2, MaxTokens: 2048},
			TaskMood:     {Temperature: 0.1, MaxTokens: 512},
			TaskGreeting: {Temperature: 0.7, MaxTokens: 512},
		},
	}
}

// LoadConfig reads client settings from environment variables, falling back
// to defaults for anything unset.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("LLM_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("LLM_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutMs = n
		}
	}
	if v := os.Getenv("LLM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}
	return cfg
}

// TaskTimeout returns the effective timeout for a task in milliseconds.
func (c Config) TaskTimeout(task Task) int {
	if tc, ok := c.Tasks[task]; ok && tc.TimeoutMs > 0 {
		return tc.TimeoutMs
	}
	return c.TimeoutMs
}
