package model

import "time"

// User stores Telegram user metadata plus the experience counters earned by
// completing daily tasks. The Telegram id doubles as the document key.
type User struct {
	TelegramID string `bson:"_id"`
	FirstName  string `bson:"first_name"`
	LastName   string `bson:"last_name,omitempty"`
	Username   string `bson:"username"`
	Language   string `bson:"language"`
	Exp        int    `bson:"exp"`
	Level      int    `bson:"level"`
	// Legacy free-form goal strings kept for the bulk-replace endpoint.
	LongTermGoals []string  `bson:"long_term_goals,omitempty"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

// Profile carries the fields captured on first contact.
type Profile struct {
	FirstName string
	LastName  string
	Username  string
	Language  string
}

// LevelForExp derives the level from accumulated experience.
// Every 100 exp is one level, starting at level 1.
func LevelForExp(exp int) int {
	if exp < 0 {
		exp = 0
	}
	return exp/100 + 1
}
