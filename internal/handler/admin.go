package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/tripmind/internal/domain"
)

var cardKinds = []domain.CardKind{
	domain.KindItinerary,
	domain.KindFlight,
	domain.KindTransit,
	domain.KindLodging,
}

// handleStats shows admins the live engine count and this chat's session.
func (h *Handler) handleStats(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	if !h.cfg.IsAdmin(update.Message.From.ID) {
		return
	}

	chatID := update.Message.Chat.ID
	snap := h.chats.Get(ctx, chatID).Snapshot()

	session := snap.SessionID
	if session == "" {
		session = "none"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Live chats: %d\n\n", h.chats.Len())
	fmt.Fprintf(&sb, "Session: %s\n", session)
	fmt.Fprintf(&sb, "Messages: %d\n", len(snap.Messages))
	fmt.Fprintf(&sb, "Busy: %t\n", snap.Busy)
	for _, kind := range cardKinds {
		if snap.Flags.Has(kind) {
			marker := ""
			if snap.Flags.Active == kind {
				marker = " (active)"
			}
			fmt.Fprintf(&sb, "• %s%s\n", kind.Label(), marker)
		}
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   sb.String(),
	})
}
