package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MoodPolarity is the overall emotional direction of a day.
type MoodPolarity string

const (
	MoodPositive MoodPolarity = "positive"
	MoodNegative MoodPolarity = "negative"
	MoodNeutral  MoodPolarity = "neutral"
	MoodMixed    MoodPolarity = "mixed"
)

// MoodScale grades motivation and energy.
type MoodScale string

const (
	ScaleLow      MoodScale = "low"
	ScaleModerate MoodScale = "moderate"
	ScaleHigh     MoodScale = "high"
)

// DailyMood is a derived per-day sentiment summary. Entries are written once
// and never mutated afterwards.
type DailyMood struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	TelegramID     string             `bson:"telegram_id"`
	Date           string             `bson:"date"`
	Summary        string             `bson:"summary"`
	MoodLabels     []string           `bson:"mood_label"`
	Polarity       MoodPolarity       `bson:"mood_polarity"`
	Motivation     MoodScale          `bson:"motivation_level"`
	Energy         MoodScale          `bson:"energy_level"`
	TasksCompleted *int               `bson:"task_completed,omitempty"`
	TasksSkipped   *int               `bson:"task_skipped,omitempty"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}
