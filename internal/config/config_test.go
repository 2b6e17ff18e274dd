package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DATABASE_URL", "postgres://localhost/tripmind")
	t.Setenv("PLANNER_BASE_URL", "http://planner:8089/")
	t.Setenv("REVEAL_TICK", "0s")
	t.Setenv("ADMIN_IDS", "1,22")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://planner:8089", cfg.PlannerBaseURL)
	assert.Equal(t, DefaultRevealTick, cfg.RevealTick)
	assert.True(t, cfg.StreamingEnabled)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.True(t, cfg.IsAdmin(22))
	assert.False(t, cfg.IsAdmin(2))
	assert.Equal(t, "1,22", cfg.AdminIDsString())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DATABASE_URL", "postgres://localhost/tripmind")
	t.Setenv("STREAMING_ENABLED", "false")
	t.Setenv("REVEAL_TICK", "40ms")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.StreamingEnabled)
	assert.Equal(t, 40*time.Millisecond, cfg.RevealTick)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	require.NoError(t, os.Unsetenv("BOT_TOKEN"))
	t.Setenv("DATABASE_URL", "postgres://localhost/tripmind")

	_, err := Load()
	assert.ErrorContains(t, err, "parse config")
}
