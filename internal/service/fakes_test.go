package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/set-night/tripmind/internal/domain"
	"github.com/set-night/tripmind/internal/planner"
)

var errUnreachable = errors.New("dial tcp: connection refused")

// fakePlanner answers with the configured funcs and records requests.
// Unset funcs fail like an unreachable service.
type fakePlanner struct {
	mu sync.Mutex

	chat      func(ctx context.Context, req planner.ChatRequest) (*planner.RawReply, error)
	followUps func(ctx context.Context, req planner.FollowUpRequest) ([]string, error)
	enhance   func(ctx context.Context, req planner.EnhanceRequest) (*planner.RawReply, error)
	transit   func(ctx context.Context, req planner.TransitEnhanceRequest) (*planner.RawReply, error)
	finalize  func(ctx context.Context, req planner.FinalizeRequest) (*planner.FinalizeReply, error)
	summarize func(ctx context.Context, planData any) (*planner.SummarizeReply, error)
	list      func(ctx context.Context, limit int) ([]planner.Conversation, error)
	messages  func(ctx context.Context, id string) ([]planner.StoredMessage, error)
	health    func(ctx context.Context) (planner.Probe, error)
	preflight func(ctx context.Context) (planner.Probe, error)

	chatReqs     []planner.ChatRequest
	followUpReqs []planner.FollowUpRequest
	enhanceReqs  []planner.EnhanceRequest
	transitReqs  []planner.TransitEnhanceRequest
	finalizeReqs []planner.FinalizeRequest
	listCalls    int
}

func (f *fakePlanner) Chat(ctx context.Context, req planner.ChatRequest) (*planner.RawReply, error) {
	f.mu.Lock()
	f.chatReqs = append(f.chatReqs, req)
	fn := f.chat
	f.mu.Unlock()
	if fn == nil {
		return nil, errUnreachable
	}
	return fn(ctx, req)
}

func (f *fakePlanner) FollowUps(ctx context.Context, req planner.FollowUpRequest) ([]string, error) {
	f.mu.Lock()
	f.followUpReqs = append(f.followUpReqs, req)
	fn := f.followUps
	f.mu.Unlock()
	if fn == nil {
		return nil, errUnreachable
	}
	return fn(ctx, req)
}

func (f *fakePlanner) EnhanceItinerary(ctx context.Context, req planner.EnhanceRequest) (*planner.RawReply, error) {
	f.mu.Lock()
	f.enhanceReqs = append(f.enhanceReqs, req)
	fn := f.enhance
	f.mu.Unlock()
	if fn == nil {
		return nil, errUnreachable
	}
	return fn(ctx, req)
}

func (f *fakePlanner) EnhanceTransit(ctx context.Context, req planner.TransitEnhanceRequest) (*planner.RawReply, error) {
	f.mu.Lock()
	f.transitReqs = append(f.transitReqs, req)
	fn := f.transit
	f.mu.Unlock()
	if fn == nil {
		return nil, errUnreachable
	}
	return fn(ctx, req)
}

func (f *fakePlanner) Finalize(ctx context.Context, req planner.FinalizeRequest) (*planner.FinalizeReply, error) {
	f.mu.Lock()
	f.finalizeReqs = append(f.finalizeReqs, req)
	fn := f.finalize
	f.mu.Unlock()
	if fn == nil {
		return nil, errUnreachable
	}
	return fn(ctx, req)
}

func (f *fakePlanner) Summarize(ctx context.Context, planData any) (*planner.SummarizeReply, error) {
	if f.summarize == nil {
		return nil, errUnreachable
	}
	return f.summarize(ctx, planData)
}

func (f *fakePlanner) ListConversations(ctx context.Context, limit int) ([]planner.Conversation, error) {
	f.mu.Lock()
	f.listCalls++
	fn := f.list
	f.mu.Unlock()
	if fn == nil {
		return nil, errUnreachable
	}
	return fn(ctx, limit)
}

func (f *fakePlanner) ConversationMessages(ctx context.Context, id string) ([]planner.StoredMessage, error) {
	if f.messages == nil {
		return nil, errUnreachable
	}
	return f.messages(ctx, id)
}

func (f *fakePlanner) Health(ctx context.Context) (planner.Probe, error) {
	if f.health == nil {
		return planner.Probe{}, errUnreachable
	}
	return f.health(ctx)
}

func (f *fakePlanner) Preflight(ctx context.Context) (planner.Probe, error) {
	if f.preflight == nil {
		return planner.Probe{}, errUnreachable
	}
	return f.preflight(ctx)
}

func (f *fakePlanner) chatCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chatReqs)
}

func (f *fakePlanner) followUpCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.followUpReqs)
}

func jsonReply(status int, body string) *planner.RawReply {
	return &planner.RawReply{Status: status, ContentType: "application/json", Body: []byte(body)}
}

func replyWith(body string) func(context.Context, planner.ChatRequest) (*planner.RawReply, error) {
	return func(context.Context, planner.ChatRequest) (*planner.RawReply, error) {
		return jsonReply(200, body), nil
	}
}

// recorder is a Listener that keeps a log of events.
type recorder struct {
	mu     sync.Mutex
	events []string
	resets []domain.Snapshot
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) MessageAppended(index int, msg domain.Message) {
	r.add("append %d %s", index, msg.Role)
}

func (r *recorder) MessageUpdated(index int, msg domain.Message) {
	r.add("update %d", index)
}

func (r *recorder) FollowUpsChanged(set domain.FollowUpSet) {
	r.add("followups %d loading=%t", len(set.Questions), set.Loading)
}

func (r *recorder) TicketChanged(ref domain.CardRef, status domain.TicketStatus) {
	r.add("ticket %d/%d %s", ref.Message, ref.Card, status)
}

func (r *recorder) SessionReset(snap domain.Snapshot) {
	r.mu.Lock()
	r.resets = append(r.resets, snap)
	r.mu.Unlock()
	r.add("reset %q", snap.SessionID)
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedJitter(n int64) Jitter {
	return func() int64 { return n }
}

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

// newTestEngine builds a non-streaming engine so reveals complete inside Send.
func newTestEngine(t *testing.T, p Planner, l Listener) *Engine {
	t.Helper()
	e := NewEngine(p, Options{
		Jitter:   fixedJitter(0),
		Listener: l,
		Logger:   discardLogger(),
		Now:      func() time.Time { return testNow },
	})
	t.Cleanup(e.Close)
	return e
}

func lastMessage(t *testing.T, e *Engine) domain.Message {
	t.Helper()
	msgs := e.Snapshot().Messages
	if len(msgs) == 0 {
		t.Fatal("session has no messages")
	}
	return msgs[len(msgs)-1]
}
