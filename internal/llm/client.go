package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Request holds the parameters for one generation call.
type Request struct {
	Task   Task
	System string
	Prompt string
}

// Response holds the result of one generation call.
type Response struct {
	Text      string
	Model     string
	LatencyMs int64
}

// Client provides access to a language model for text generation.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// chatClient implements Client against an OpenAI-compatible chat-completions
// endpoint.
type chatClient struct {
	cfg  Config
	http *http.Client
}

// NewChatClient creates a Client for an OpenAI-compatible API.
func NewChatClient(cfg Config) Client {
	return &chatClient{
		cfg:  cfg,
		http: &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *chatClient) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	taskCfg := c.cfg.Tasks[req.Task]
	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TaskTimeout(req.Task))*time.Millisecond)
	defer cancel()

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	if req.Prompt != "" {
		messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})
	}

	body := chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: taskCfg.Temperature,
		MaxTokens:   taskCfg.MaxTokens,
	}

	var lastErr error
	attempts := 1 + c.cfg.MaxRetries
	for i := 0; i < attempts; i++ {
		text, modelName, err := c.doRequest(ctx, body)
		if err == nil {
			return &Response{
				Text:      text,
				Model:     modelName,
				LatencyMs: time.Since(start).Milliseconds(),
			}, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *chatClient) doRequest(ctx context.Context, body chatRequest) (string, string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", "", err
	}

	url := c.cfg.Endpoint + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", "", err
	}
	if parsed.Error != nil {
		return "", "", fmt.Errorf("api error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", "", fmt.Errorf("empty choices")
	}
	return parsed.Choices[0].Message.Content, parsed.Model, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
