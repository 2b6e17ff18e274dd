package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/tripmind/internal/config"
	"github.com/set-night/tripmind/internal/domain"
	"github.com/set-night/tripmind/internal/middleware"
	"github.com/set-night/tripmind/internal/service"
	tg "github.com/set-night/tripmind/internal/telegram"
)

func (h *Handler) handleHistory(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	engine := middleware.GetEngine(ctx)
	if engine == nil {
		return
	}
	h.sendSessionsPage(ctx, b, engine, update.Message.Chat.ID, 0, false, 0)
}

func (h *Handler) sendSessionsPage(ctx context.Context, b *bot.Bot, engine *service.Engine, chatID int64, page int, edit bool, messageID int) {
	sessions, err := engine.ListSessions(ctx, config.SessionListLimit)
	if err != nil {
		slog.Error("list sessions", "error", err, "chat_id", chatID)
		tg.SendPlain(ctx, b, chatID, "⚠️ Couldn't load your conversations. Please try again.", nil)
		return
	}

	total := len(sessions)
	totalPages := int(math.Ceil(float64(total) / float64(config.SessionsPerPage)))
	if totalPages == 0 {
		totalPages = 1
	}
	if page >= totalPages {
		page = totalPages - 1
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📂 Conversations (%d)\n\n", total))
	if total == 0 {
		sb.WriteString("No saved conversations yet.")
	}

	var rows [][]models.InlineKeyboardButton
	current := engine.SessionID()
	start := page * config.SessionsPerPage
	end := min(start+config.SessionsPerPage, total)
	for i := start; i < end; i++ {
		s := sessions[i]
		label := s.Preview
		if r := []rune(label); len(r) > 40 {
			label = string(r[:40]) + "..."
		}
		if !s.UpdatedAt.IsZero() {
			label = s.UpdatedAt.Format("02.01 15:04") + " · " + label
		}
		if s.ID == current {
			label += " ✅"
		}
		rows = append(rows, tg.ButtonRow(tg.InlineButton(label, fmt.Sprintf("%s%d", tg.CallbackHistory, i))))
	}

	rows = append(rows, tg.ButtonRow(tg.InlineButton("➕ New conversation", tg.CallbackNew)))
	if totalPages > 1 {
		rows = append(rows, tg.PaginationRow(page, totalPages, tg.CallbackPage))
	}

	keyboard := tg.InlineKeyboard(rows...)
	text := sb.String()

	if edit && messageID != 0 {
		tg.EditLongMessage(ctx, b, chatID, messageID, text, false, keyboard)
	} else {
		tg.SendPlain(ctx, b, chatID, text, keyboard)
	}
}

func (h *Handler) handleHistoryPage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	engine := middleware.GetEngine(ctx)
	if engine == nil {
		return
	}
	page, ok := tg.ParseIndex(update.CallbackQuery.Data, tg.CallbackPage)
	if !ok {
		return
	}
	chatID, messageID := callbackChat(update)
	h.sendSessionsPage(ctx, b, engine, chatID, page, true, messageID)
}

func (h *Handler) handleLoadSession(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	engine := middleware.GetEngine(ctx)
	if engine == nil {
		return
	}
	i, ok := tg.ParseIndex(update.CallbackQuery.Data, tg.CallbackHistory)
	if !ok {
		return
	}
	chatID, _ := callbackChat(update)

	sessions, err := engine.ListSessions(ctx, config.SessionListLimit)
	if err != nil || i >= len(sessions) {
		tg.SendPlain(ctx, b, chatID, "⚠️ That conversation list is out of date. Use /history again.", nil)
		return
	}
	id := sessions[i].ID

	h.refine.Clear(chatID)
	h.async(ctx, "load", func(ctx context.Context) {
		err := engine.Load(ctx, id)
		switch {
		case err == nil:
			h.tgLogger.LogSessionLoaded(chatID, id)
		case errors.Is(err, domain.ErrSessionNotFound):
			tg.SendPlain(ctx, b, chatID, "❌ Conversation not found.", nil)
		default:
			slog.Error("load session", "error", err, "chat_id", chatID, "session_id", id)
			tg.SendPlain(ctx, b, chatID, "⚠️ Couldn't load that conversation. Please try again.", nil)
		}
	})
}

func (h *Handler) handleNew(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.newSession(ctx, b, update.Message.Chat.ID)
}

func (h *Handler) handleNewCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})
	chatID, _ := callbackChat(update)
	h.newSession(ctx, b, chatID)
}

func (h *Handler) newSession(ctx context.Context, b *bot.Bot, chatID int64) {
	engine := middleware.GetEngine(ctx)
	if engine == nil {
		return
	}
	h.refine.Clear(chatID)
	engine.NewSession()
	tg.SendPlain(ctx, b, chatID, "🆕 New conversation started. Where would you like to go?",
		tg.QuestionKeyboard(tg.CallbackStarter, config.DefaultFollowUps))
}
