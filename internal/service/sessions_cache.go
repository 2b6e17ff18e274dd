package service

import (
	"sync"
	"time"

	"github.com/set-night/tripmind/internal/domain"
)

// SessionsCache holds the last remote session list for a short time.
type SessionsCache struct {
	mu       sync.RWMutex
	sessions []domain.SessionSummary
	limit    int
	cachedAt time.Time
	ttl      time.Duration
}

func NewSessionsCache(ttl time.Duration) *SessionsCache {
	return &SessionsCache{ttl: ttl}
}

func (c *SessionsCache) Get(limit int) []domain.SessionSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.sessions == nil || c.limit != limit || time.Since(c.cachedAt) > c.ttl {
		return nil
	}
	return c.sessions
}

func (c *SessionsCache) Set(limit int, sessions []domain.SessionSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = sessions
	c.limit = limit
	c.cachedAt = time.Now()
}

func (c *SessionsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = nil
}
