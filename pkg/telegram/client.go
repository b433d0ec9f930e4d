package telegram

import (
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrNotConfigured is returned when the bot token or chat id is missing.
var ErrNotConfigured = errors.New("telegram notifier not configured")

// Notifier sends a Markdown message to one chat.
type Notifier interface {
	SendMessage(text string) error
}

// Config holds the bot credentials and the target chat.
type Config struct {
	BotToken string
	ChatID   int64
}

type client struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewClient logs in to the Bot API.
func NewClient(cfg Config) (Notifier, error) {
	if cfg.BotToken == "" || cfg.ChatID == 0 {
		return nil, ErrNotConfigured
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	return &client{bot: bot, chatID: cfg.ChatID}, nil
}

func (c *client) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	_, err := c.bot.Send(msg)
	return err
}
