package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	tg "github.com/set-night/tripmind/internal/telegram"
)

// Register registers all command and callback handlers on the bot instance.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/new", bot.MatchTypePrefix, h.handleNew)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/history", bot.MatchTypePrefix, h.handleHistory)

	// Admin
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypeExact, h.handleStats)

	// Card actions
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackCard, bot.MatchTypePrefix, h.handleCardAction)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackCancel, bot.MatchTypeExact, h.handleCancelRefine)

	// Suggestions
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackFollowUp, bot.MatchTypePrefix, h.handleFollowUp)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackTrending, bot.MatchTypePrefix, h.handleSuggestion)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackStarter, bot.MatchTypePrefix, h.handleSuggestion)

	// History callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackHistory, bot.MatchTypePrefix, h.handleLoadSession)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackPage, bot.MatchTypePrefix, h.handleHistoryPage)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackNew, bot.MatchTypeExact, h.handleNewCallback)

	// Page counter button
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "cur", bot.MatchTypeExact, h.handleNoop)
}

func (h *Handler) handleNoop(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})
}

// callbackChat returns the chat and message a callback was pressed on.
func callbackChat(update *models.Update) (int64, int) {
	if msg := update.CallbackQuery.Message.Message; msg != nil {
		return msg.Chat.ID, msg.ID
	}
	return 0, 0
}
