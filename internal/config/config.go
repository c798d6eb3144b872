package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the service.
type Config struct {
	TelegramToken string
	MongoURI      string
	MongoDBName   string
	HTTPAddr      string
	Timezone      string

	// Experience awarded for completing one daily task. Skipping awards
	// nothing; that asymmetry is intentional.
	RewardExp int

	// Daily job slots, local time, HH:MM.
	RolloverTime     string
	ReminderTimes    []string
	DailyShareTime   string
	MoodAnalysisTime string

	// Pause between consecutive reminder messages to one user, to stay
	// under Telegram rate limits.
	SendPause time.Duration
}

// Load reads configuration from the environment (and .env if present) with
// sane defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[info] no .env file found, using environment variables")
	}

	cfg := Config{
		TelegramToken:    strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		MongoURI:         getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:      getenv("MONGO_DB_NAME", "habit_coach"),
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		Timezone:         getenv("TIMEZONE", "Asia/Jakarta"),
		RewardExp:        getenvInt("REWARD_EXP", 75),
		RolloverTime:     getenv("ROLLOVER_TIME", "00:00"),
		ReminderTimes:    getenvTimes("REMINDER_TIMES", []string{"06:00", "20:00"}),
		DailyShareTime:   getenv("DAILY_SHARE_TIME", "20:15"),
		MoodAnalysisTime: getenv("MOOD_ANALYSIS_TIME", "01:30"),
		SendPause:        time.Duration(getenvInt("SEND_PAUSE_MS", 500)) * time.Millisecond,
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if cfg.RewardExp < 0 {
		return cfg, fmt.Errorf("REWARD_EXP must not be negative")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getenvTimes parses a comma-separated list of HH:MM slots.
func getenvTimes(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	var times []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			times = append(times, p)
		}
	}
	if len(times) == 0 {
		return fallback
	}
	return times
}
