package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"caesar-in-a-year/internal/application/usecases"
	"caesar-in-a-year/internal/domain/user"
	"caesar-in-a-year/internal/interfaces/telegram"
	"caesar-in-a-year/internal/interfaces/telegram/handlers/shared"
)

// Messenger sends replies to a chat
type Messenger interface {
	SendMessage(chatID int64, text string) error
	SendMessageWithMarkdown(chatID int64, text string) error
}

// BotHandler handles Telegram bot interactions
type BotHandler struct {
	bot        Messenger
	learners   *usecases.LearnerUseCase
	dispatcher telegram.Dispatcher
	log        *zap.Logger
}

// NewBotHandler creates a new bot handler and registers its commands
func NewBotHandler(bot Messenger, learners *usecases.LearnerUseCase, log *zap.Logger) *BotHandler {
	h := &BotHandler{
		bot:        bot,
		learners:   learners,
		dispatcher: telegram.NewDispatcher(),
		log:        log,
	}

	h.dispatcher.RegisterHandler("start", h.handleStart)
	h.dispatcher.RegisterHandler("stats", h.handleStats)
	h.dispatcher.RegisterHandler("stop", h.handleStop)
	h.dispatcher.RegisterHandler("help", h.handleHelp)
	h.dispatcher.RegisterFallback(h.handleUnknown)
	return h
}

// Start consumes updates until ctx is cancelled or the channel closes
func (h *BotHandler) Start(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	h.log.Info("bot started, waiting for updates", zap.Strings("commands", h.dispatcher.Commands()))

	for {
		select {
		case <-ctx.Done():
			h.log.Info("bot stopping")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go h.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate dispatches a single update
func (h *BotHandler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if err := h.dispatcher.Dispatch(ctx, update); err != nil {
		h.log.Error("failed to handle update",
			zap.Int("update_id", update.UpdateID),
			zap.Error(err),
		)
	}
}

// handleStart links the chat to the learner id given as argument
func (h *BotHandler) handleStart(ctx context.Context, update tgbotapi.Update) error {
	message := update.Message
	chatID := message.Chat.ID

	learnerID := user.ID(strings.TrimSpace(message.CommandArguments()))
	if !learnerID.Valid() {
		return h.bot.SendMessageWithMarkdown(chatID,
			"Salve! Send `/start <learner id>` to link this chat to your account.\n\n"+shared.GetHelpText())
	}

	if err := h.learners.LinkTelegramChat(ctx, learnerID, chatID); err != nil {
		h.reply(chatID, "Sorry, I couldn't link this chat. Please try again later.")
		return fmt.Errorf("failed to link chat: %w", err)
	}

	h.log.Info("telegram chat linked", zap.String("learner_id", string(learnerID)), zap.Int64("chat_id", chatID))
	return h.bot.SendMessageWithMarkdown(chatID, fmt.Sprintf(
		"✅ Linked to *%s*. I'll remind you when cards are due. Use /stop to turn reminders off.",
		shared.EscapeMarkdown(string(learnerID))))
}

// handleStats shows the linked learner's progress
func (h *BotHandler) handleStats(ctx context.Context, update tgbotapi.Update) error {
	chatID := update.Message.Chat.ID
	learnerID, err := h.linkedLearner(ctx, chatID)
	if err != nil || learnerID == "" {
		return err
	}

	view, err := h.learners.GetProgress(ctx, learnerID)
	if err != nil {
		h.reply(chatID, "Sorry, there was an error getting your statistics.")
		return fmt.Errorf("failed to get progress: %w", err)
	}
	mastery, err := h.learners.Mastery(ctx, learnerID)
	if err != nil {
		h.reply(chatID, "Sorry, there was an error getting your statistics.")
		return fmt.Errorf("failed to get mastery: %w", err)
	}

	return h.bot.SendMessageWithMarkdown(chatID, shared.FormatStatsText(view, mastery))
}

// handleStop disables reminders for the linked learner
func (h *BotHandler) handleStop(ctx context.Context, update tgbotapi.Update) error {
	chatID := update.Message.Chat.ID
	learnerID, err := h.linkedLearner(ctx, chatID)
	if err != nil || learnerID == "" {
		return err
	}

	if err := h.learners.SetReminders(ctx, learnerID, false); err != nil {
		h.reply(chatID, "Sorry, I couldn't update your reminders.")
		return err
	}
	return h.bot.SendMessage(chatID, "🔕 Reminders are off. Send /start with your learner id to turn them back on.")
}

func (h *BotHandler) handleHelp(_ context.Context, update tgbotapi.Update) error {
	return h.bot.SendMessageWithMarkdown(update.Message.Chat.ID, shared.GetHelpText())
}

func (h *BotHandler) handleUnknown(_ context.Context, update tgbotapi.Update) error {
	return h.bot.SendMessage(update.Message.Chat.ID, "Unknown command. Use /help to see what I can do.")
}

// linkedLearner resolves the chat's learner, telling the chat when none is linked
func (h *BotHandler) linkedLearner(ctx context.Context, chatID int64) (user.ID, error) {
	learnerID, err := h.learners.FindByTelegramChat(ctx, chatID)
	if err != nil {
		h.reply(chatID, "Sorry, something went wrong. Please try again later.")
		return "", err
	}
	if learnerID == "" {
		return "", h.bot.SendMessage(chatID, "This chat isn't linked yet. Send /start <learner id> first.")
	}
	return learnerID, nil
}

func (h *BotHandler) reply(chatID int64, text string) {
	if err := h.bot.SendMessage(chatID, text); err != nil {
		h.log.Warn("failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
