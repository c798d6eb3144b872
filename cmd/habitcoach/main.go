package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"habit-coach/internal/bot"
	"habit-coach/internal/clock"
	"habit-coach/internal/coach"
	"habit-coach/internal/config"
	"habit-coach/internal/llm"
	"habit-coach/internal/repository"
	"habit-coach/internal/server"
	"habit-coach/internal/service"
	"habit-coach/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	clk, err := clock.NewTZ(cfg.Timezone)
	if err != nil {
		log.Fatalf("timezone: %v", err)
	}

	store, err := storage.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("mongo: %v", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Disconnect(disconnectCtx); err != nil {
			log.Printf("[warn] mongo disconnect: %v", err)
		}
	}()

	userRepo := repository.NewUserRepository(store, clk)
	goalRepo := repository.NewGoalRepository(store, clk)
	progressRepo := repository.NewProgressRepository(store, goalRepo, clk)
	moodRepo := repository.NewMoodRepository(store, clk)
	convoRepo := repository.NewConversationRepository(store, clk)

	llmClient := llm.NewChatClient(llm.LoadConfig())
	replySvc := coach.NewReplyService(llmClient, goalRepo, convoRepo, clk)
	moodSvc := coach.NewMoodService(llmClient, moodRepo, convoRepo, goalRepo, clk)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("bot api: %v", err)
	}
	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	sender := bot.NewSender(api)
	workflow := service.NewWorkflow(userRepo, goalRepo, progressRepo, sender,
		replySvc, moodSvc, clk, cfg.RewardExp, cfg.SendPause)
	telegramBot := bot.New(api, userRepo, replySvc, moodSvc, workflow, clk)

	httpSrv := server.New(cfg.HTTPAddr, userRepo, progressRepo, workflow)
	go func() {
		if err := httpSrv.Start(); err != nil {
			log.Fatalf("http server: %v", err)
		}
	}()

	scheduler := service.NewSchedulerService(clk.Location())
	scheduleBatch(scheduler, cfg.RolloverTime, "rollover", func(jobCtx context.Context) (service.BatchReport, error) {
		return workflow.RolloverAllUsers(jobCtx)
	})
	for _, slot := range cfg.ReminderTimes {
		scheduleBatch(scheduler, slot, "reminders", func(jobCtx context.Context) (service.BatchReport, error) {
			return workflow.SendRemindersAllUsers(jobCtx)
		})
	}
	scheduleBatch(scheduler, cfg.DailyShareTime, "daily share", func(jobCtx context.Context) (service.BatchReport, error) {
		return workflow.AskDailyShareAllUsers(jobCtx)
	})
	scheduleBatch(scheduler, cfg.MoodAnalysisTime, "mood analysis", func(jobCtx context.Context) (service.BatchReport, error) {
		return workflow.AnalyzeMoodAllUsers(jobCtx)
	})
	scheduler.Start()
	defer scheduler.Stop()

	log.Println("Habit coach started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[warn] http shutdown: %v", err)
	}
	log.Println("Shutdown complete.")
}

func scheduleBatch(scheduler *service.SchedulerService, slot, name string, job func(context.Context) (service.BatchReport, error)) {
	if _, err := scheduler.ScheduleDaily(slot, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := job(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("%s: %v", name, err)
		}
	}); err != nil {
		log.Fatalf("schedule %s at %s: %v", name, slot, err)
	}
}
