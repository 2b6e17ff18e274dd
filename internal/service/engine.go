package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/set-night/tripmind/internal/config"
	"github.com/set-night/tripmind/internal/domain"
	"github.com/set-night/tripmind/internal/planner"
)

// Planner is the remote planning service as the engine consumes it.
// *planner.Client implements it.
type Planner interface {
	Chat(ctx context.Context, req planner.ChatRequest) (*planner.RawReply, error)
	FollowUps(ctx context.Context, req planner.FollowUpRequest) ([]string, error)
	EnhanceItinerary(ctx context.Context, req planner.EnhanceRequest) (*planner.RawReply, error)
	EnhanceTransit(ctx context.Context, req planner.TransitEnhanceRequest) (*planner.RawReply, error)
	Finalize(ctx context.Context, req planner.FinalizeRequest) (*planner.FinalizeReply, error)
	Summarize(ctx context.Context, planData any) (*planner.SummarizeReply, error)
	ListConversations(ctx context.Context, limit int) ([]planner.Conversation, error)
	ConversationMessages(ctx context.Context, id string) ([]planner.StoredMessage, error)
	Health(ctx context.Context) (planner.Probe, error)
	Preflight(ctx context.Context) (planner.Probe, error)
}

type Options struct {
	Streaming  bool
	RevealTick time.Duration
	Jitter     Jitter
	Listener   Listener
	Logger     *slog.Logger
	// OnSession is called with the session id whenever it is adopted,
	// loaded or cleared.
	OnSession func(id string)
	Now       func() time.Time
}

// Engine orchestrates one conversation: it owns the Store, the Renderer and
// the session-list cache, and exposes the user-facing operations.
type Engine struct {
	planner  Planner
	store    *Store
	renderer *Renderer
	sessions *SessionsCache
	jitter   Jitter
	log      *slog.Logger
	now      func() time.Time

	// ctx bounds work that outlives a single call, such as the follow-up
	// refresh fired after a reveal.
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
}

func NewEngine(p Planner, opts Options) *Engine {
	if opts.Jitter == nil {
		opts.Jitter = DefaultJitter
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	store := NewStore(opts.Listener)
	store.now = opts.Now
	if opts.OnSession != nil {
		store.OnSession(opts.OnSession)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		planner:  p,
		store:    store,
		renderer: NewRenderer(store, opts.Streaming, opts.RevealTick),
		sessions: NewSessionsCache(config.SessionListCacheDuration),
		jitter:   opts.Jitter,
		log:      opts.Logger,
		now:      opts.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (e *Engine) Snapshot() domain.Snapshot {
	return e.store.Snapshot()
}

func (e *Engine) SessionID() string {
	return e.store.SessionID()
}

// Card returns a copy of one card entry.
func (e *Engine) Card(ref domain.CardRef) (domain.Entry, error) {
	return e.store.Card(ref)
}

func (e *Engine) Ticket(ref domain.CardRef) domain.TicketStatus {
	return e.store.Ticket(ref)
}

// Idle reports whether nothing is in flight: no exchange, no enhancement and
// no reveal.
func (e *Engine) Idle() bool {
	if e.store.Snapshot().Busy || len(e.store.PendingTickets()) > 0 {
		return false
	}
	_, revealing := e.renderer.Active()
	return !revealing
}

// NewSession discards the current conversation. Calls still in flight
// complete against the old session and their results are dropped.
func (e *Engine) NewSession() {
	e.renderer.Cancel()
	e.store.Reset()
	e.sessions.Invalidate()
}

// Close cancels any reveal and background refresh and waits for them.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.cancel()
		e.renderer.Close()
	})
}

func (e *Engine) closed() bool {
	return e.ctx.Err() != nil
}

// appendAssistant records a plain assistant message. A reveal still running
// is finished first so only the newest assistant message can be streaming.
func (e *Engine) appendAssistant(epoch uint64, text string) {
	if e.store.Epoch() != epoch {
		e.log.Debug("dropped assistant message for stale session")
		return
	}
	e.renderer.Flush()
	if _, _, err := e.store.Append(epoch, domain.RoleAssistant, text, false, nil); err != nil {
		e.log.Debug("dropped assistant message for stale session", "error", err)
	}
}
