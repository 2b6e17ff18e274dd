package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/tripmind/internal/domain"
	tg "github.com/set-night/tripmind/internal/telegram"
)

// Logging returns middleware that logs what each update asked for and how
// long handling took.
func Logging() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()
			next(ctx, b, update)

			info := describeUpdate(update)
			attrs := []any{
				"update", info.kind,
				"chat_id", updateChatID(update),
				"user_id", info.userID,
				"duration", time.Since(start),
			}
			if info.card != nil {
				attrs = append(attrs, "message_index", info.card.Message, "card_index", info.card.Card)
			}
			slog.Debug("update handled", attrs...)
		}
	}
}

type updateInfo struct {
	kind   string
	userID int64
	card   *domain.CardRef
}

var callbackKinds = map[string]string{
	tg.CallbackFollowUp: "follow_up",
	tg.CallbackTrending: "trending",
	tg.CallbackStarter:  "starter",
	tg.CallbackHistory:  "history_load",
	tg.CallbackPage:     "history_page",
	tg.CallbackNew:      "new_session",
	tg.CallbackCancel:   "cancel_refine",
}

// describeUpdate names what an update asks the bot to do.
func describeUpdate(update *models.Update) updateInfo {
	switch {
	case update.Message != nil:
		info := updateInfo{kind: "query"}
		if update.Message.From != nil {
			info.userID = update.Message.From.ID
		}
		if strings.HasPrefix(update.Message.Text, "/") {
			info.kind = "command"
		}
		return info
	case update.CallbackQuery != nil:
		info := updateInfo{kind: "callback", userID: update.CallbackQuery.From.ID}
		data := update.CallbackQuery.Data
		if action, ref, ok := tg.ParseCardData(data); ok {
			info.kind = "card_" + action
			info.card = &ref
			return info
		}
		for prefix, kind := range callbackKinds {
			if strings.HasPrefix(data, prefix) {
				info.kind = kind
				break
			}
		}
		return info
	default:
		return updateInfo{kind: "unknown"}
	}
}
