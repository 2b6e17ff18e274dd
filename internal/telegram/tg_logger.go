package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/set-night/tripmind/internal/config"
)

// TelegramLogger posts operational events to topics of an admin chat.
type TelegramLogger struct {
	m   Messenger
	cfg *config.Config
}

func NewTelegramLogger(m Messenger, cfg *config.Config) *TelegramLogger {
	return &TelegramLogger{m: m, cfg: cfg}
}

type LogType string

const (
	LogTypeError    LogType = "error"
	LogTypeFinalize LogType = "finalize"
	LogTypeSession  LogType = "session"
)

func (l *TelegramLogger) Log(logType LogType, message string) {
	if l == nil || l.cfg.LogTelegramChatID == 0 {
		return
	}

	topicID := l.getTopicID(logType)
	if topicID == 0 {
		return
	}

	if len([]rune(message)) > MaxMessageLen {
		message = string([]rune(message)[:MaxMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.m.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		ParseMode:       "Markdown",
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "type", logType, "error", err)
	}
}

func (l *TelegramLogger) LogError(err error, context string) {
	msg := fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		context, err.Error(), time.Now().Format("2006-01-02 15:04:05"))
	l.Log(LogTypeError, msg)
}

func (l *TelegramLogger) LogFinalize(chatID int64, sessionID, title string) {
	msg := fmt.Sprintf("✅ *Booking Requested*\n\n*Chat:* `%d`\n*Session:* `%s`\n*Card:* %s",
		chatID, sessionID, EscapeMarkdown(title))
	l.Log(LogTypeFinalize, msg)
}

func (l *TelegramLogger) LogSessionLoaded(chatID int64, sessionID string) {
	msg := fmt.Sprintf("📂 *Session Loaded*\n\n*Chat:* `%d`\n*Session:* `%s`", chatID, sessionID)
	l.Log(LogTypeSession, msg)
}

func (l *TelegramLogger) getTopicID(logType LogType) int {
	switch logType {
	case LogTypeError:
		return l.cfg.LogTopicError
	case LogTypeFinalize:
		return l.cfg.LogTopicFinalize
	case LogTypeSession:
		return l.cfg.LogTopicSession
	default:
		return 0
	}
}
