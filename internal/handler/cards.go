package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/tripmind/internal/domain"
	"github.com/set-night/tripmind/internal/middleware"
	tg "github.com/set-night/tripmind/internal/telegram"
)

func (h *Handler) handleCardAction(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	engine := middleware.GetEngine(ctx)
	if engine == nil {
		return
	}
	action, ref, ok := tg.ParseCardData(update.CallbackQuery.Data)
	if !ok {
		return
	}
	chatID, _ := callbackChat(update)

	entry, err := engine.Card(ref)
	if err != nil {
		tg.SendPlain(ctx, b, chatID, "❌ That card is no longer available.", nil)
		return
	}

	switch action {
	case tg.ActionRefine:
		if engine.Ticket(ref) == domain.TicketPending {
			tg.SendPlain(ctx, b, chatID, "⏳ This card is already being refined.", nil)
			return
		}
		h.refine.Arm(chatID, ref)
		tg.SendLongMessage(ctx, b, chatID,
			fmt.Sprintf("✏️ How should I refine *%s*?\n\nSend your preferences as a message, e.g. _more budget friendly_ or _add a beach day_.",
				tg.EscapeMarkdown(entry.Title())),
			tg.CancelKeyboard())

	case tg.ActionBook:
		h.tgLogger.LogFinalize(chatID, engine.SessionID(), entry.Title())
		h.async(ctx, "finalize", func(ctx context.Context) {
			stopTyping := tg.StartTyping(ctx, b, chatID)
			defer stopTyping()
			if err := engine.Finalize(ctx, ref); err != nil {
				slog.Error("finalize card", "error", err, "chat_id", chatID)
			}
		})

	case tg.ActionDetails:
		h.async(ctx, "summarize", func(ctx context.Context) {
			stopTyping := tg.StartTyping(ctx, b, chatID)
			defer stopTyping()
			summary, err := engine.Summarize(ctx, ref)
			switch {
			case errors.Is(err, domain.ErrNotItinerary):
				tg.SendPlain(ctx, b, chatID, "📋 Details are only available for itineraries.", nil)
			case err != nil:
				slog.Warn("summarize itinerary", "error", err, "chat_id", chatID)
				tg.SendPlain(ctx, b, chatID, "⚠️ Sorry, I couldn't load the details. Please try again.", nil)
			default:
				tg.SendLongMessage(ctx, b, chatID, tg.FormatSummary(summary), nil)
			}
		})
	}
}

func (h *Handler) handleCancelRefine(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	chatID, messageID := callbackChat(update)
	h.refine.Clear(chatID)
	tg.EditLongMessage(ctx, b, chatID, messageID, "✖️ Refinement cancelled.", false, nil)
}

// enhance applies refinement instructions to an armed card.
func (h *Handler) enhance(ctx context.Context, b *bot.Bot, chatID int64, ref domain.CardRef, instructions string) {
	engine := middleware.GetEngine(ctx)
	if engine == nil {
		return
	}

	h.async(ctx, "enhance", func(ctx context.Context) {
		stopTyping := tg.StartTyping(ctx, b, chatID)
		defer stopTyping()

		err := engine.Enhance(ctx, ref, instructions)
		switch {
		case err == nil, errors.Is(err, domain.ErrStaleSession):
		case errors.Is(err, domain.ErrEngineClosed):
			tg.SendPlain(ctx, b, chatID, "⚠️ Your conversation was idle and has been reopened. Please send that again.", nil)
		case errors.Is(err, domain.ErrEnhancePending):
			tg.SendPlain(ctx, b, chatID, "⏳ This card is already being refined.", nil)
		case errors.Is(err, domain.ErrEmptyMessage):
			h.refine.Arm(chatID, ref)
			tg.SendPlain(ctx, b, chatID, "✏️ Please describe how to refine the card.", tg.CancelKeyboard())
		case errors.Is(err, domain.ErrCardNotFound):
			tg.SendPlain(ctx, b, chatID, "❌ That card is no longer available.", nil)
		default:
			slog.Error("enhance card", "error", err, "chat_id", chatID)
			h.tgLogger.LogError(err, fmt.Sprintf("enhance card in chat %d", chatID))
		}
	})
}
