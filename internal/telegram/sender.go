package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/tripmind/internal/config"
)

const MaxMessageLen = config.MaxTelegramMessageLen

// Messenger is the subset of *bot.Bot used to deliver output.
type Messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	EditMessageReplyMarkup(ctx context.Context, params *bot.EditMessageReplyMarkupParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

var _ Messenger = (*bot.Bot)(nil)

// SendLongMessage sends a potentially long message, splitting it into parts if needed.
// A part Telegram cannot parse as Markdown is resent as the unrepaired plain
// text. The keyboard is attached to the last part, which is returned.
func SendLongMessage(ctx context.Context, m Messenger, chatID int64, text string, markup models.ReplyMarkup) (*models.Message, error) {
	parts := SplitMessage(text, MaxMessageLen)

	var last *models.Message
	for i, part := range parts {
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      truncate(FixMarkdown(part)),
			ParseMode: models.ParseModeMarkdownV1,
		}
		if i == len(parts)-1 && markup != nil {
			params.ReplyMarkup = markup
		}

		sent, err := m.SendMessage(ctx, params)
		if err != nil {
			slog.Warn("markdown send failed, falling back to plain text", "error", err)
			params.ParseMode = ""
			params.Text = part
			sent, err = m.SendMessage(ctx, params)
			if err != nil {
				return last, fmt.Errorf("send message: %w", err)
			}
		}
		last = sent
	}

	return last, nil
}

// SendPlain sends text without any parse mode.
func SendPlain(ctx context.Context, m Messenger, chatID int64, text string, markup models.ReplyMarkup) (*models.Message, error) {
	params := &bot.SendMessageParams{ChatID: chatID, Text: truncate(text)}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	sent, err := m.SendMessage(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return sent, nil
}

// EditLongMessage edits a message with potentially long text. With markdown
// false the text is sent as is.
func EditLongMessage(ctx context.Context, m Messenger, chatID int64, messageID int, text string, markdown bool, markup models.ReplyMarkup) error {
	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      truncate(text),
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if markdown {
		params.Text = truncate(FixMarkdown(text))
		params.ParseMode = models.ParseModeMarkdownV1
		if _, err := m.EditMessageText(ctx, params); err == nil {
			return nil
		}
		params.ParseMode = ""
		params.Text = truncate(text)
	}
	if _, err := m.EditMessageText(ctx, params); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// EditKeyboard swaps the inline keyboard of a sent message.
func EditKeyboard(ctx context.Context, m Messenger, chatID int64, messageID int, markup models.ReplyMarkup) error {
	_, err := m.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      chatID,
		MessageID:   messageID,
		ReplyMarkup: markup,
	})
	if err != nil {
		return fmt.Errorf("edit keyboard: %w", err)
	}
	return nil
}

func truncate(text string) string {
	if r := []rune(text); len(r) > MaxMessageLen {
		return string(r[:MaxMessageLen-3]) + "..."
	}
	return text
}

// StartTyping sends "typing..." action every 4 seconds until the returned cancel function is called.
func StartTyping(ctx context.Context, m Messenger, chatID int64) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(4 * time.Second)
		defer ticker.Stop()
		m.SendChatAction(ctx, &bot.SendChatActionParams{
			ChatID: chatID,
			Action: models.ChatActionTyping,
		})
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.SendChatAction(ctx, &bot.SendChatActionParams{
					ChatID: chatID,
					Action: models.ChatActionTyping,
				})
			}
		}
	}()
	return cancel
}
