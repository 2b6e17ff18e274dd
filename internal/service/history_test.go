package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/set-night/tripmind/internal/domain"
	"github.com/set-night/tripmind/internal/planner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storedConversation = `[
	{"_id": "m1", "role": "user", "content": "Plan Goa", "timestamp": 1741944600000},
	{"id": "m2", "role": "assistant", "content": "Here are your plans", "timestamp": "2025-03-14T09:31:00Z",
	 "metadata": {"cards": {"type": "itinerary", "data": [
		{"title": "Goa Escape", "duration": "3 Days", "budget": "Moderate", "short_desc": "Beaches",
		 "optimized_routes": {"Day 2": {"optimized_order": [{"spot_name": "Fort"}]}, "Day 1": {"optimized_order": [{"spot_name": "Beach"}]}}}
	 ]}}},
	{"role": "bot", "content": "Buses", "cards": {"type": "bus", "data": [
		{"routeName": "Bangalore to Goa", "start": "Bangalore", "destination": "Goa", "estimated_price": "₹650",
		 "buses": [{"operator": "VRL", "from": "Bangalore", "to": "Goa", "trip_time": "10h"}]}
	]}},
	{"role": "assistant", "content": "Odd cards", "cards": {"type": "weather", "data": []}}
]`

func storedMessages(t *testing.T) []planner.StoredMessage {
	t.Helper()
	var msgs []planner.StoredMessage
	require.NoError(t, json.Unmarshal([]byte(storedConversation), &msgs))
	return msgs
}

func TestLoad(t *testing.T) {
	p := &fakePlanner{
		messages: func(_ context.Context, id string) ([]planner.StoredMessage, error) {
			require.Equal(t, "s1", id)
			return storedMessages(t), nil
		},
	}
	rec := &recorder{}
	e := newTestEngine(t, p, rec)

	require.NoError(t, e.Load(context.Background(), "s1"))

	snap := e.Snapshot()
	assert.Equal(t, "s1", snap.SessionID)
	require.Len(t, snap.Messages, 4)

	user := snap.Messages[0]
	assert.Equal(t, "m1", user.ID)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Equal(t, time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC), user.CreatedAt)

	plans := snap.Messages[1]
	assert.Equal(t, "m2", plans.ID)
	require.NotNil(t, plans.Cards)
	it := plans.Cards.Entries[0].(domain.Itinerary)
	assert.Equal(t, "Goa Escape", it.Name)
	assert.Equal(t, 3, it.DurationDays)
	assert.Equal(t, "Moderate", it.Budget)
	assert.Equal(t, []string{"Day 1: Beach", "Day 2: Fort"}, it.Highlights)

	bus := snap.Messages[2]
	assert.Equal(t, "s1-2", bus.ID)
	assert.Equal(t, domain.RoleAssistant, bus.Role)
	require.NotNil(t, bus.Cards)
	route := bus.Cards.Entries[0].(domain.TransitRoute)
	assert.Equal(t, 1, route.RouteNo)
	assert.Equal(t, int64(650), route.Price.IntPart())
	assert.Equal(t, "Bus Route", route.Type)

	// unreadable cards are dropped, the message is kept
	assert.Equal(t, "Odd cards", snap.Messages[3].Text)
	assert.Nil(t, snap.Messages[3].Cards)

	assert.True(t, snap.Flags.Itinerary)
	assert.True(t, snap.Flags.Transit)
	assert.Equal(t, domain.KindTransit, snap.Flags.Active)

	require.Len(t, rec.resets, 1)
	assert.Equal(t, "s1", rec.resets[0].SessionID)
}

func TestLoad_Idempotent(t *testing.T) {
	p := &fakePlanner{
		messages: func(context.Context, string) ([]planner.StoredMessage, error) {
			return storedMessages(t), nil
		},
	}
	e := newTestEngine(t, p, nil)

	require.NoError(t, e.Load(context.Background(), "s1"))
	first := e.Snapshot()
	require.NoError(t, e.Load(context.Background(), "s1"))
	assert.Equal(t, first, e.Snapshot())
}

func TestLoad_NotFound(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context, string) ([]planner.StoredMessage, error)
	}{
		{"404", func(context.Context, string) ([]planner.StoredMessage, error) { return nil, planner.ErrNotFound }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePlanner{chat: replyWith(`{"message": "hi", "conversation_id": "live"}`), messages: tt.fn}
			e := newTestEngine(t, p, nil)
			require.NoError(t, e.Send(context.Background(), "hello"))
			before := e.Snapshot()

			assert.ErrorIs(t, e.Load(context.Background(), "gone"), domain.ErrSessionNotFound)
			assert.Equal(t, before, e.Snapshot())
		})
	}
}

func TestLoad_EmptyConversation(t *testing.T) {
	p := &fakePlanner{
		chat: replyWith(`{"message": "hi", "conversation_id": "live"}`),
		messages: func(context.Context, string) ([]planner.StoredMessage, error) {
			return nil, nil
		},
	}
	e := newTestEngine(t, p, nil)
	require.NoError(t, e.Send(context.Background(), "hello"))

	require.NoError(t, e.Load(context.Background(), "fresh"))
	snap := e.Snapshot()
	assert.Equal(t, "fresh", snap.SessionID)
	assert.Empty(t, snap.Messages)
}

func TestLoad_TransportError(t *testing.T) {
	e := newTestEngine(t, &fakePlanner{}, nil)
	err := e.Load(context.Background(), "s1")
	assert.ErrorIs(t, err, errUnreachable)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestListSessions(t *testing.T) {
	p := &fakePlanner{
		list: func(_ context.Context, limit int) ([]planner.Conversation, error) {
			assert.Equal(t, 20, limit)
			return []planner.Conversation{
				{ConversationID: "a", Preview: "Trip to Goa", UpdatedAt: "2025-03-14T10:00:00.123456"},
				{ConversationID: "", Preview: "skipped"},
				{ConversationID: "b", Title: "Weekend in Pune", CreatedAt: "2025-03-13 08:00:00"},
				{ConversationID: "c"},
			}, nil
		},
	}
	e := newTestEngine(t, p, nil)

	sessions, err := e.ListSessions(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "Trip to Goa", sessions[0].Preview)
	assert.Equal(t, time.Date(2025, 3, 14, 10, 0, 0, 123456000, time.UTC), sessions[0].UpdatedAt)
	assert.Equal(t, "Weekend in Pune", sessions[1].Preview)
	assert.Equal(t, time.Date(2025, 3, 13, 8, 0, 0, 0, time.UTC), sessions[1].CreatedAt)
	assert.Equal(t, "Untitled Conversation", sessions[2].Preview)
	assert.True(t, sessions[2].UpdatedAt.IsZero())

	// served from cache until something invalidates it
	_, err = e.ListSessions(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, 1, p.listCalls)

	e.NewSession()
	_, err = e.ListSessions(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, 2, p.listCalls)
}

func TestListSessions_Error(t *testing.T) {
	e := newTestEngine(t, &fakePlanner{}, nil)
	_, err := e.ListSessions(context.Background(), 20)
	assert.ErrorIs(t, err, errUnreachable)
}

func TestLoad_DropsInFlightSend(t *testing.T) {
	release := make(chan struct{})
	p := &fakePlanner{
		chat: func(context.Context, planner.ChatRequest) (*planner.RawReply, error) {
			<-release
			return jsonReply(200, `{"message": "late", "conversation_id": "other"}`), nil
		},
		messages: func(context.Context, string) ([]planner.StoredMessage, error) {
			return storedMessages(t), nil
		},
	}
	e := newTestEngine(t, p, nil)

	errc := make(chan error, 1)
	go func() { errc <- e.Send(context.Background(), "hello") }()
	require.Eventually(t, func() bool { return p.chatCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, e.Load(context.Background(), "s1"))
	close(release)

	assert.ErrorIs(t, <-errc, domain.ErrStaleSession)
	snap := e.Snapshot()
	assert.Equal(t, "s1", snap.SessionID)
	assert.Len(t, snap.Messages, 4)
}

func TestLoad_SupersededByNewSession(t *testing.T) {
	stored := storedMessages(t)
	started := make(chan struct{})
	release := make(chan struct{})
	p := &fakePlanner{
		messages: func(context.Context, string) ([]planner.StoredMessage, error) {
			close(started)
			<-release
			return stored, nil
		},
	}
	e := newTestEngine(t, p, nil)

	errc := make(chan error, 1)
	go func() { errc <- e.Load(context.Background(), "s1") }()
	<-started

	e.NewSession()
	close(release)

	assert.ErrorIs(t, <-errc, domain.ErrStaleSession)
	snap := e.Snapshot()
	assert.Empty(t, snap.SessionID)
	assert.Empty(t, snap.Messages)
}

func TestLoad_SupersededByLaterLoad(t *testing.T) {
	stored := storedMessages(t)
	started := make(chan struct{})
	release := make(chan struct{})
	p := &fakePlanner{
		messages: func(_ context.Context, id string) ([]planner.StoredMessage, error) {
			if id == "s1" {
				close(started)
				<-release
				return stored, nil
			}
			return []planner.StoredMessage{{ID: "n1", Role: "user", Content: "newer"}}, nil
		},
	}
	e := newTestEngine(t, p, nil)

	errc := make(chan error, 1)
	go func() { errc <- e.Load(context.Background(), "s1") }()
	<-started

	require.NoError(t, e.Load(context.Background(), "s2"))
	close(release)

	assert.ErrorIs(t, <-errc, domain.ErrStaleSession)
	snap := e.Snapshot()
	assert.Equal(t, "s2", snap.SessionID)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "newer", snap.Messages[0].Text)
}
