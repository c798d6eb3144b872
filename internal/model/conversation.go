package model

import "time"

// MessageRole identifies who produced a transcript message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry in a user's conversation transcript.
type Message struct {
	Role      MessageRole `bson:"role"`
	Text      string      `bson:"text"`
	Timestamp time.Time   `bson:"timestamp"`
}

// Conversation is the per-user append-only message log. A successful reply
// turn appends exactly two messages: the user's, then the assistant's.
type Conversation struct {
	TelegramID string    `bson:"_id"`
	Messages   []Message `bson:"messages"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}
