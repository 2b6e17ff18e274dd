package middleware

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/tripmind/internal/service"
)

type ctxKey string

const (
	EngineKey ctxKey = "engine"
	ChatKey   ctxKey = "chat_id"
)

// GetEngine extracts the chat's engine from context.
func GetEngine(ctx context.Context) *service.Engine {
	e, ok := ctx.Value(EngineKey).(*service.Engine)
	if !ok {
		return nil
	}
	return e
}

// GetChatID extracts the chat id from context.
func GetChatID(ctx context.Context) int64 {
	id, _ := ctx.Value(ChatKey).(int64)
	return id
}

// ChatLoader returns middleware that attaches the chat's engine to context,
// restoring its bound session on first contact.
func ChatLoader(chats *service.ChatService) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			chatID := updateChatID(update)
			if chatID == 0 {
				next(ctx, b, update)
				return
			}

			ctx = context.WithValue(ctx, ChatKey, chatID)
			ctx = context.WithValue(ctx, EngineKey, chats.Get(ctx, chatID))
			next(ctx, b, update)
		}
	}
}

func updateChatID(update *models.Update) int64 {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil:
		return update.CallbackQuery.Message.Message.Chat.ID
	default:
		return 0
	}
}
