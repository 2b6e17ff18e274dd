package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Recover returns middleware that turns a handler panic into an error log and
// a report. A pressed button is answered so its spinner stops.
func Recover(report func(err error, where string)) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				kind := describeUpdate(update).kind
				slog.Error("panic recovered in handler",
					"panic", r,
					"update_id", update.ID,
					"update", kind,
					"chat_id", updateChatID(update),
					"stack", string(debug.Stack()),
				)
				if report != nil {
					report(fmt.Errorf("panic: %v", r), "handler "+kind)
				}
				if b != nil && update.CallbackQuery != nil {
					b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
						CallbackQueryID: update.CallbackQuery.ID,
						Text:            "Something went wrong, please try again.",
					})
				}
			}()
			next(ctx, b, update)
		}
	}
}
