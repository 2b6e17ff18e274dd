package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/set-night/tripmind/internal/domain"
)

const bindingTimeout = 5 * time.Second

// ChatBindings persists which remote session each chat is attached to.
type ChatBindings interface {
	SessionFor(ctx context.Context, chatID int64) (string, error)
	Bind(ctx context.Context, chatID int64, sessionID string) error
	Unbind(ctx context.Context, chatID int64) error
}

// ChatsConfig configures the engines a ChatService creates.
type ChatsConfig struct {
	Streaming  bool
	RevealTick time.Duration
	// NewListener builds the presenter for a chat. If the returned value
	// also implements io.Closer it is closed after its engine.
	NewListener func(chatID int64) Listener
	Logger      *slog.Logger
}

// ChatService keeps one Engine per chat, restoring the bound session the
// first time a chat is seen.
type ChatService struct {
	planner  Planner
	bindings ChatBindings
	cfg      ChatsConfig
	now      func() time.Time

	mu      sync.Mutex
	engines map[int64]*chatEntry
}

type chatEntry struct {
	engine   *Engine
	listener Listener
	restore  sync.Once
	lastUsed time.Time
}

func NewChatService(p Planner, bindings ChatBindings, cfg ChatsConfig) *ChatService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ChatService{
		planner:  p,
		bindings: bindings,
		cfg:      cfg,
		now:      time.Now,
		engines:  make(map[int64]*chatEntry),
	}
}

// Get returns the engine for chatID, creating it on first use.
func (s *ChatService) Get(ctx context.Context, chatID int64) *Engine {
	s.mu.Lock()
	entry, ok := s.engines[chatID]
	if !ok {
		entry = s.newEntry(chatID)
		s.engines[chatID] = entry
	}
	entry.lastUsed = s.now()
	s.mu.Unlock()

	entry.restore.Do(func() { s.restore(ctx, chatID, entry.engine) })
	return entry.engine
}

func (s *ChatService) newEntry(chatID int64) *chatEntry {
	log := s.cfg.Logger.With("chat_id", chatID)
	var listener Listener
	if s.cfg.NewListener != nil {
		listener = s.cfg.NewListener(chatID)
	}
	engine := NewEngine(s.planner, Options{
		Streaming:  s.cfg.Streaming,
		RevealTick: s.cfg.RevealTick,
		Listener:   listener,
		Logger:     log,
		OnSession: func(id string) {
			s.persist(chatID, id, log)
		},
	})
	return &chatEntry{engine: engine, listener: listener}
}

func (s *ChatService) restore(ctx context.Context, chatID int64, engine *Engine) {
	if s.bindings == nil {
		return
	}
	sessionID, err := s.bindings.SessionFor(ctx, chatID)
	if err != nil {
		s.cfg.Logger.Error("read chat binding", "error", err, "chat_id", chatID)
		return
	}
	if sessionID == "" {
		return
	}
	if err := engine.Load(ctx, sessionID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.persist(chatID, "", s.cfg.Logger)
			return
		}
		s.cfg.Logger.Warn("restore chat session", "error", err, "chat_id", chatID, "session_id", sessionID)
	}
}

func (s *ChatService) persist(chatID int64, sessionID string, log *slog.Logger) {
	if s.bindings == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), bindingTimeout)
	defer cancel()

	var err error
	if sessionID == "" {
		err = s.bindings.Unbind(ctx, chatID)
	} else {
		err = s.bindings.Bind(ctx, chatID, sessionID)
	}
	if err != nil {
		log.Error("persist chat binding", "error", err, "session_id", sessionID)
	}
}

// Sweep closes engines unused for longer than idle that have nothing in
// flight, and returns how many were closed.
func (s *ChatService) Sweep(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	var evicted []*chatEntry
	for id, entry := range s.engines {
		if entry.lastUsed.Before(cutoff) && entry.engine.Idle() {
			evicted = append(evicted, entry)
			delete(s.engines, id)
		}
	}
	s.mu.Unlock()

	for _, entry := range evicted {
		closeEntry(entry)
	}
	return len(evicted)
}

// Len returns the number of live engines.
func (s *ChatService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.engines)
}

// CloseAll closes every engine. Used on shutdown.
func (s *ChatService) CloseAll() {
	s.mu.Lock()
	entries := make([]*chatEntry, 0, len(s.engines))
	for _, entry := range s.engines {
		entries = append(entries, entry)
	}
	s.engines = make(map[int64]*chatEntry)
	s.mu.Unlock()

	for _, entry := range entries {
		closeEntry(entry)
	}
}

func closeEntry(entry *chatEntry) {
	entry.engine.Close()
	if c, ok := entry.listener.(io.Closer); ok {
		_ = c.Close()
	}
}
