package handler

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/tripmind/internal/config"
	tg "github.com/set-night/tripmind/internal/telegram"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	name := "traveller"
	if from := update.Message.From; from != nil && from.FirstName != "" {
		name = from.FirstName
	}

	welcomeText := fmt.Sprintf(
		"👋 Hi, *%s*!\n\n"+
			"I'm your trip planner. Tell me where you want to go and I'll suggest "+
			"itineraries, flights, bus routes and places to stay.\n\n"+
			"📋 *Commands:*\n"+
			"/new — Start a new conversation\n"+
			"/history — Continue a previous conversation\n\n"+
			"Share me with friends: t.me/%s\n\n"+
			"🔥 *Trending right now:*",
		tg.EscapeMarkdown(name),
		tg.EscapeMarkdown(h.botUsername),
	)

	if _, err := tg.SendLongMessage(ctx, b, update.Message.Chat.ID, welcomeText,
		tg.QuestionKeyboard(tg.CallbackTrending, config.TrendingQueries)); err != nil {
		h.tgLogger.LogError(err, "send welcome")
	}
}

// suggestions are the fixed query lists offered by keyboards.
var suggestions = map[string][]string{
	tg.CallbackTrending: config.TrendingQueries,
	tg.CallbackStarter:  config.DefaultFollowUps,
}

func (h *Handler) handleSuggestion(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	data := update.CallbackQuery.Data
	for prefix, queries := range suggestions {
		if i, ok := tg.ParseIndex(data, prefix); ok && i < len(queries) {
			chatID, _ := callbackChat(update)
			h.submit(ctx, b, chatID, queries[i])
			return
		}
	}
}
