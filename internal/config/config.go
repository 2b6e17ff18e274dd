package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	BotToken    string `env:"BOT_TOKEN,required"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Planning service
	PlannerBaseURL string `env:"PLANNER_BASE_URL" envDefault:"http://localhost:8089"`

	// Streaming reveal
	StreamingEnabled bool          `env:"STREAMING_ENABLED" envDefault:"true"`
	RevealTick       time.Duration `env:"REVEAL_TICK" envDefault:"25ms"`

	// Admin
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`

	// Logging
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// Bot behavior
	DropPendingUpdates bool `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`

	// Telegram logging
	LogTelegramChatID int64 `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError     int   `env:"LOG_TOPIC_ERROR"`
	LogTopicFinalize  int   `env:"LOG_TOPIC_FINALIZE"`
	LogTopicSession   int   `env:"LOG_TOPIC_SESSION"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.PlannerBaseURL = strings.TrimRight(cfg.PlannerBaseURL, "/")
	if cfg.RevealTick <= 0 {
		cfg.RevealTick = DefaultRevealTick
	}
	return cfg, nil
}

func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

func (c *Config) AdminIDsString() string {
	parts := make([]string, len(c.AdminIDs))
	for i, id := range c.AdminIDs {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}
