package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"habit-coach/internal/clock"
	"habit-coach/internal/coach"
	"habit-coach/internal/model"
	"habit-coach/internal/repository"
	"habit-coach/internal/service"
)

const somethingWentWrong = "Something went wrong on my side. Please try again in a moment."

// Bot aggregates the Telegram API with the coaching services.
type Bot struct {
	api      *tgbotapi.BotAPI
	users    *repository.UserRepository
	replies  *coach.ReplyService
	moods    *coach.MoodService
	workflow *service.Workflow
	clock    clock.Clock
}

func New(api *tgbotapi.BotAPI, users *repository.UserRepository, replies *coach.ReplyService,
	moods *coach.MoodService, workflow *service.Workflow, clk clock.Clock) *Bot {
	return &Bot{
		api:      api,
		users:    users,
		replies:  replies,
		moods:    moods,
		workflow: workflow,
		clock:    clk,
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.IsCommand() {
		return b.handleCommand(ctx, msg)
	}
	return b.handleText(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "today":
		return b.handleToday(ctx, msg)
	case "mood":
		return b.handleMood(ctx, msg)
	case "tasks":
		return b.handleTasks(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "I know /start, /today, /mood and /tasks. For everything else, just talk to me.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user, created, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		log.Printf("[warn] register user %d: %v", msg.From.ID, err)
		return b.sendText(msg.Chat.ID, somethingWentWrong)
	}

	greeting, err := b.replies.Greeting(ctx, user, created)
	if err != nil {
		log.Printf("[warn] greeting for %s: %v", user.TelegramID, err)
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Hi %s! I'm Rune, your habit coach. Tell me about a long-term goal you'd like to work on.", user.FirstName))
	}
	return b.sendText(msg.Chat.ID, greeting)
}

// handleToday shows the mood journal entry for today, computing it on demand.
func (b *Bot) handleToday(ctx context.Context, msg *tgbotapi.Message) error {
	user, _, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return b.sendText(msg.Chat.ID, somethingWentWrong)
	}

	date := clock.DayKey(b.clock.Now().In(b.clock.Location()))
	entry, err := b.moods.GetOrCompute(ctx, user.TelegramID, date)
	switch {
	case errors.Is(err, coach.ErrNoTranscript):
		return b.sendText(msg.Chat.ID, "We haven't talked today yet, so there's nothing to reflect on. Tell me how your day is going!")
	case err != nil:
		log.Printf("[warn] today entry for %s: %v", user.TelegramID, err)
		return b.sendText(msg.Chat.ID, somethingWentWrong)
	}
	return b.sendText(msg.Chat.ID, coach.FormatEntry(entry))
}

// handleMood shows a digest of the last week's mood entries.
func (b *Bot) handleMood(ctx context.Context, msg *tgbotapi.Message) error {
	user, _, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return b.sendText(msg.Chat.ID, somethingWentWrong)
	}

	digest, err := b.moods.SummarizeRecent(ctx, user.TelegramID, 7)
	if err != nil {
		log.Printf("[warn] mood digest for %s: %v", user.TelegramID, err)
		return b.sendText(msg.Chat.ID, somethingWentWrong)
	}
	return b.sendText(msg.Chat.ID, digest)
}

// handleTasks re-sends today's reminder on demand.
func (b *Bot) handleTasks(ctx context.Context, msg *tgbotapi.Message) error {
	user, _, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return b.sendText(msg.Chat.ID, somethingWentWrong)
	}
	if err := b.workflow.RemindUser(ctx, user); err != nil {
		log.Printf("[warn] tasks for %s: %v", user.TelegramID, err)
		return b.sendText(msg.Chat.ID, somethingWentWrong)
	}
	return nil
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) error {
	user, _, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return b.sendText(msg.Chat.ID, somethingWentWrong)
	}

	reply, err := b.replies.Reply(ctx, user, msg.Text)
	if err != nil {
		log.Printf("[warn] reply for %s: %v", user.TelegramID, err)
		return b.sendText(msg.Chat.ID, somethingWentWrong)
	}
	return b.sendText(msg.Chat.ID, reply)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	var action, taskID string
	switch {
	case strings.HasPrefix(cb.Data, cbCompletePrefix):
		action, taskID = service.ActionComplete, strings.TrimPrefix(cb.Data, cbCompletePrefix)
	case strings.HasPrefix(cb.Data, cbSkipPrefix):
		action, taskID = service.ActionSkip, strings.TrimPrefix(cb.Data, cbSkipPrefix)
	default:
		return nil
	}
	if taskID == "" {
		return nil
	}

	telegramID := strconv.FormatInt(cb.From.ID, 10)
	log.Printf("[info] callback %s request user=%s task=%s", action, telegramID, taskID)

	result, err := b.workflow.HandleTaskAction(ctx, telegramID, taskID, action)
	if err != nil {
		log.Printf("[warn] task action for %s: %v", telegramID, err)
		if result == nil {
			return b.sendText(cb.Message.Chat.ID, "I couldn't update that task. It may belong to a previous day.")
		}
		// The mark stuck even though the reward didn't; confirm the mark.
	}

	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, confirmationText(result))
	edit.ParseMode = tgbotapi.ModeMarkdown
	_, err = b.api.Send(edit)
	return err
}

func confirmationText(result *service.ActionResult) string {
	title := result.Title
	if title == "" {
		title = "Task"
	}
	if result.Completed {
		text := fmt.Sprintf("✅ *%s* marked as completed!", title)
		if result.RewardedExp > 0 {
			text += fmt.Sprintf("\n_+%d EXP_", result.RewardedExp)
		}
		return text
	}
	return fmt.Sprintf("⏭ *%s* skipped for today. Tomorrow is a fresh start.", title)
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, bool, error) {
	return b.users.EnsureRegistered(ctx, strconv.FormatInt(from.ID, 10), model.Profile{
		FirstName: from.FirstName,
		LastName:  from.LastName,
		Username:  from.UserName,
		Language:  from.LanguageCode,
	})
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := b.api.Send(msg)
	return err
}
