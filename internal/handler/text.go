package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/tripmind/internal/config"
	"github.com/set-night/tripmind/internal/domain"
	"github.com/set-night/tripmind/internal/middleware"
	"github.com/set-night/tripmind/internal/service"
	tg "github.com/set-night/tripmind/internal/telegram"
)

// HandleText routes a plain text message: to the armed refinement if there
// is one, otherwise to the planner as a new query.
func (h *Handler) HandleText(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || strings.HasPrefix(update.Message.Text, "/") {
		return
	}
	chatID := update.Message.Chat.ID
	text := update.Message.Text

	if ref, ok := h.refine.Take(chatID); ok {
		h.enhance(ctx, b, chatID, ref, text)
		return
	}
	h.submit(ctx, b, chatID, text)
}

// submit sends text as the user's next message. Validation and busy errors
// are answered right away; the exchange itself runs in the background.
func (h *Handler) submit(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	engine := middleware.GetEngine(ctx)
	if engine == nil {
		return
	}
	if err := service.ValidateMessage(text); err != nil {
		tg.SendPlain(ctx, b, chatID, validationText(err), nil)
		return
	}

	h.async(ctx, "send", func(ctx context.Context) {
		stopTyping := tg.StartTyping(ctx, b, chatID)
		defer stopTyping()

		err := engine.Send(ctx, text)
		switch {
		case err == nil, errors.Is(err, domain.ErrStaleSession):
		case errors.Is(err, domain.ErrEngineClosed):
			tg.SendPlain(ctx, b, chatID, "⚠️ Your conversation was idle and has been reopened. Please send that again.", nil)
		case errors.Is(err, domain.ErrBusy):
			tg.SendPlain(ctx, b, chatID, "⏳ Please wait for the answer to your previous request.", nil)
		default:
			slog.Error("send message", "error", err, "chat_id", chatID)
			h.tgLogger.LogError(err, fmt.Sprintf("send message in chat %d", chatID))
		}
	})
}

func validationText(err error) string {
	if errors.Is(err, domain.ErrMessageTooLong) {
		return fmt.Sprintf("❌ Your message is too long. Please keep it under %d words.", config.MaxMessageWords)
	}
	return "✏️ Please type a message first."
}

func (h *Handler) handleFollowUp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	engine := middleware.GetEngine(ctx)
	if engine == nil {
		return
	}
	i, ok := tg.ParseIndex(update.CallbackQuery.Data, tg.CallbackFollowUp)
	questions := engine.Snapshot().FollowUps.Questions
	if !ok || i >= len(questions) {
		return
	}
	chatID, _ := callbackChat(update)
	h.submit(ctx, b, chatID, questions[i])
}
