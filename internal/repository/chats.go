package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the part of pgxpool.Pool the queries use.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DBTX = (*pgxpool.Pool)(nil)

// ChatStore persists chat → remote session bindings and per-chat request
// counters.
type ChatStore struct {
	db DBTX
}

func NewChatStore(db DBTX) *ChatStore {
	return &ChatStore{db: db}
}

const sessionForChat = `SELECT session_id FROM chat_sessions WHERE chat_id = $1`

// SessionFor returns the bound session id, or "" if the chat has none.
func (s *ChatStore) SessionFor(ctx context.Context, chatID int64) (string, error) {
	var sessionID string
	err := s.db.QueryRow(ctx, sessionForChat, chatID).Scan(&sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get chat session: %w", err)
	}
	return sessionID, nil
}

const bindChat = `
INSERT INTO chat_sessions (chat_id, session_id)
VALUES ($1, $2)
ON CONFLICT (chat_id) DO UPDATE
SET session_id = EXCLUDED.session_id, updated_at = now()`

func (s *ChatStore) Bind(ctx context.Context, chatID int64, sessionID string) error {
	if _, err := s.db.Exec(ctx, bindChat, chatID, sessionID); err != nil {
		return fmt.Errorf("bind chat session: %w", err)
	}
	return nil
}

const unbindChat = `DELETE FROM chat_sessions WHERE chat_id = $1`

func (s *ChatStore) Unbind(ctx context.Context, chatID int64) error {
	if _, err := s.db.Exec(ctx, unbindChat, chatID); err != nil {
		return fmt.Errorf("unbind chat session: %w", err)
	}
	return nil
}

const incrementRateLimit = `
INSERT INTO rate_limits (chat_id, window_start, count)
VALUES ($1, date_trunc('minute', now()), 1)
ON CONFLICT (chat_id, window_start) DO UPDATE
SET count = rate_limits.count + 1
RETURNING count`

// CheckAndIncrementRateLimit counts a request in the current minute window
// and returns the new count.
func (s *ChatStore) CheckAndIncrementRateLimit(ctx context.Context, chatID int64) (int, error) {
	var count int
	if err := s.db.QueryRow(ctx, incrementRateLimit, chatID).Scan(&count); err != nil {
		return 0, fmt.Errorf("increment rate limit: %w", err)
	}
	return count, nil
}

const cleanupRateLimits = `DELETE FROM rate_limits WHERE window_start < $1`

// CleanupRateLimits removes counters for windows older than retention.
func (s *ChatStore) CleanupRateLimits(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := s.db.Exec(ctx, cleanupRateLimits, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("cleanup rate limits: %w", err)
	}
	return tag.RowsAffected(), nil
}
