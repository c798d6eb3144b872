package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"habit-coach/internal/service"
)

const (
	cbCompletePrefix = "complete:"
	cbSkipPrefix     = "skip:"
)

// Sender delivers workflow messages over the Telegram API. It is separate
// from Bot so that the daily jobs can send without owning the polling loop.
type Sender struct {
	api *tgbotapi.BotAPI
}

func NewSender(api *tgbotapi.BotAPI) *Sender {
	return &Sender{api: api}
}

func (s *Sender) SendText(_ context.Context, telegramID, text string) error {
	chatID, err := parseChatID(telegramID)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err = s.api.Send(msg)
	return err
}

// SendTask sends one reminder card. Outstanding tasks carry Complete/Skip
// buttons; already completed ones are rendered with a check mark and no
// keyboard.
func (s *Sender) SendTask(_ context.Context, telegramID string, ordinal int, task service.TaskView) error {
	chatID, err := parseChatID(telegramID)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, formatTaskCard(ordinal, task))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if !task.Completed {
		msg.ReplyMarkup = taskKeyboard(task.TaskID)
	}
	_, err = s.api.Send(msg)
	return err
}

func formatTaskCard(ordinal int, task service.TaskView) string {
	var b strings.Builder
	status := ""
	if task.Completed {
		status = "✅ "
	}
	fmt.Fprintf(&b, "%s*%d. %s*", status, ordinal, task.Title)
	if task.Note != "" {
		b.WriteString("\n")
		b.WriteString(task.Note)
	}
	if task.MinRequired > 0 {
		fmt.Fprintf(&b, "\n_at least %d %s_", task.MinRequired, task.Unit)
	}
	return b.String()
}

func taskKeyboard(taskID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Complete", cbCompletePrefix+taskID),
			tgbotapi.NewInlineKeyboardButtonData("⏭ Skip", cbSkipPrefix+taskID),
		),
	)
}

func parseChatID(telegramID string) (int64, error) {
	chatID, err := strconv.ParseInt(telegramID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram id %q: %w", telegramID, err)
	}
	return chatID, nil
}
