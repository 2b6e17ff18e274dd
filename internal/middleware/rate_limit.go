package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/tripmind/internal/config"
)

// RateCounter counts requests per chat in the current minute.
type RateCounter interface {
	CheckAndIncrementRateLimit(ctx context.Context, chatID int64) (int, error)
}

// RateLimit returns middleware that enforces a per-minute limit on the text
// messages that reach the planning service.
func RateLimit(counter RateCounter) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			// Commands and callbacks are cheap; only queries are counted
			if update.Message == nil || strings.HasPrefix(update.Message.Text, "/") {
				next(ctx, b, update)
				return
			}

			chatID := update.Message.Chat.ID

			count, err := counter.CheckAndIncrementRateLimit(ctx, chatID)
			if err != nil {
				slog.Error("rate limit check failed", "error", err, "chat_id", chatID)
				next(ctx, b, update)
				return
			}

			if count > config.RateLimitPerMinute {
				slog.Debug("rate limited", "chat_id", chatID, "count", count, "limit", config.RateLimitPerMinute)
				b.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: chatID,
					Text:   "⏳ Too many requests. Please wait a minute before planning more.",
				})
				return
			}

			next(ctx, b, update)
		}
	}
}
