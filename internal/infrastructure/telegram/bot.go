package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Bot wraps the Telegram bot API
type Bot struct {
	api *tgbotapi.BotAPI
	log *zap.Logger
}

// NewBot creates a new Telegram bot
func NewBot(token string, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	api.Debug = false
	log.Info("telegram bot authorized", zap.String("account", api.Self.UserName))

	return &Bot{api: api, log: log}, nil
}

// GetUpdatesChan returns a channel for receiving updates
func (b *Bot) GetUpdatesChan() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	return b.api.GetUpdatesChan(u)
}

// StopReceivingUpdates closes the long-poll loop
func (b *Bot) StopReceivingUpdates() {
	b.api.StopReceivingUpdates()
}

// SendMessage sends a text message
func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}

// SendMessageWithMarkdown sends a message with markdown formatting
func (b *Bot) SendMessageWithMarkdown(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := b.api.Send(msg)
	return err
}

// SendReminder delivers a study reminder
func (b *Bot) SendReminder(chatID int64, text string) error {
	if err := b.SendMessage(chatID, text); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	return nil
}

// SetupCommands configures the bot commands with BotFather
func (b *Bot) SetupCommands() error {
	commands := []tgbotapi.BotCommand{
		{
			Command:     "start",
			Description: "Link this chat to your learner id: /start <id>",
		},
		{
			Command:     "stats",
			Description: "Show your progress and mastery",
		},
		{
			Command:     "stop",
			Description: "Stop daily reminders",
		},
		{
			Command:     "help",
			Description: "How reminders work",
		},
	}

	setCommands := tgbotapi.NewSetMyCommands(commands...)
	if _, err := b.api.Request(setCommands); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}

	b.log.Info("bot commands configured")
	return nil
}
