package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"
	"github.com/set-night/tripmind/internal/domain"
)

// Callback data prefixes.
const (
	CallbackCard     = "card:"
	CallbackFollowUp = "fu:"
	CallbackTrending = "tq:"
	CallbackStarter  = "st:"
	CallbackHistory  = "hl:"
	CallbackPage     = "hp:"
	CallbackNew      = "new_session"
	CallbackCancel   = "cancel_refine"
)

// Card actions.
const (
	ActionRefine  = "refine"
	ActionBook    = "book"
	ActionDetails = "details"
)

// InlineButton creates a single inline keyboard button.
func InlineButton(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// URLButton creates a URL inline keyboard button.
func URLButton(text, url string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text: text,
		URL:  url,
	}
}

// InlineKeyboard creates an inline keyboard from rows of buttons.
func InlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: rows,
	}
}

// ButtonRow creates a row of inline buttons.
func ButtonRow(buttons ...models.InlineKeyboardButton) []models.InlineKeyboardButton {
	return buttons
}

// PaginationRow creates a pagination row with prev/next buttons.
func PaginationRow(currentPage, totalPages int, callbackPrefix string) []models.InlineKeyboardButton {
	var row []models.InlineKeyboardButton

	if currentPage > 0 {
		row = append(row, InlineButton("⬅️", fmt.Sprintf("%s%d", callbackPrefix, currentPage-1)))
	}

	row = append(row, InlineButton(
		fmt.Sprintf("%d/%d", currentPage+1, totalPages),
		"cur",
	))

	if currentPage < totalPages-1 {
		row = append(row, InlineButton("➡️", fmt.Sprintf("%s%d", callbackPrefix, currentPage+1)))
	}

	return row
}

// CardData encodes a card action as callback data.
func CardData(action string, ref domain.CardRef) string {
	return fmt.Sprintf("%s%s:%d:%d", CallbackCard, action, ref.Message, ref.Card)
}

// ParseCardData decodes data produced by CardData.
func ParseCardData(data string) (string, domain.CardRef, bool) {
	parts := strings.Split(strings.TrimPrefix(data, CallbackCard), ":")
	if len(parts) != 3 || !strings.HasPrefix(data, CallbackCard) {
		return "", domain.CardRef{}, false
	}
	msg, err1 := strconv.Atoi(parts[1])
	card, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || msg < 0 || card < 0 {
		return "", domain.CardRef{}, false
	}
	return parts[0], domain.CardRef{Message: msg, Card: card}, true
}

// ParseIndex reads the integer after prefix.
func ParseIndex(data, prefix string) (int, bool) {
	if !strings.HasPrefix(data, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(data, prefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// CardKeyboard is the action keyboard under one card.
func CardKeyboard(ref domain.CardRef, entry domain.Entry) *models.InlineKeyboardMarkup {
	actions := []models.InlineKeyboardButton{
		InlineButton("✨ Refine", CardData(ActionRefine, ref)),
		InlineButton("✅ Book", CardData(ActionBook, ref)),
	}
	if entry.Kind() == domain.KindItinerary {
		actions = append(actions, InlineButton("📋 Details", CardData(ActionDetails, ref)))
	}
	rows := [][]models.InlineKeyboardButton{actions}

	if l, ok := entry.(domain.Lodging); ok {
		var links []models.InlineKeyboardButton
		if l.Website != "" {
			links = append(links, URLButton("🌐 Website", l.Website))
		}
		if l.MapLink != "" {
			links = append(links, URLButton("📍 Map", l.MapLink))
		}
		if len(links) > 0 {
			rows = append(rows, links)
		}
	}
	return InlineKeyboard(rows...)
}

// PendingKeyboard replaces a card's keyboard while it is being refined.
func PendingKeyboard() *models.InlineKeyboardMarkup {
	return InlineKeyboard(ButtonRow(InlineButton("⏳ Refining...", "cur")))
}

// QuestionKeyboard lists questions one per row, addressed by index.
func QuestionKeyboard(prefix string, questions []string) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(questions))
	for i, q := range questions {
		rows = append(rows, ButtonRow(InlineButton(buttonLabel(q), fmt.Sprintf("%s%d", prefix, i))))
	}
	return InlineKeyboard(rows...)
}

// CancelKeyboard offers to drop an armed refinement.
func CancelKeyboard() *models.InlineKeyboardMarkup {
	return InlineKeyboard(ButtonRow(InlineButton("✖️ Cancel", CallbackCancel)))
}

func buttonLabel(s string) string {
	const limit = 60
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
