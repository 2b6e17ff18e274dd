package service

import (
	"fmt"
	"sync"
	"testing"

	"github.com/set-night/tripmind/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itineraryCards(names ...string) *domain.Cards {
	cards := &domain.Cards{Kind: domain.KindItinerary}
	for _, n := range names {
		cards.Entries = append(cards.Entries, domain.Itinerary{
			Name:       n,
			Highlights: []string{"Day 1: " + n},
			Days:       []domain.DayPlan{{Label: "Day 1", Stops: []domain.Stop{{Name: n}}}},
		})
	}
	return cards
}

func TestStore_AppendAndStaleEpoch(t *testing.T) {
	rec := &recorder{}
	s := NewStore(rec)

	idx, msg, err := s.Append(s.Epoch(), domain.RoleUser, "hello", false, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.NotEmpty(t, msg.ID)

	stale := s.Epoch()
	s.Reset()
	_, _, err = s.Append(stale, domain.RoleAssistant, "late", false, nil)
	assert.ErrorIs(t, err, domain.ErrStaleSession)
	assert.Empty(t, s.Snapshot().Messages)

	assert.Equal(t, []string{"append 0 user", `reset ""`}, rec.Events())
}

func TestStore_AdoptSessionOnce(t *testing.T) {
	s := NewStore(nil)
	var adopted []string
	s.OnSession(func(id string) { adopted = append(adopted, id) })

	assert.False(t, s.AdoptSession(s.Epoch(), ""))
	assert.True(t, s.AdoptSession(s.Epoch(), "s1"))
	assert.False(t, s.AdoptSession(s.Epoch(), "s2"))
	assert.Equal(t, "s1", s.SessionID())

	stale := s.Epoch()
	s.Reset()
	assert.False(t, s.AdoptSession(stale, "s3"))
	assert.Empty(t, s.SessionID())

	assert.Equal(t, []string{"s1", ""}, adopted)
}

func TestStore_Busy(t *testing.T) {
	s := NewStore(nil)
	require.NoError(t, s.TryBusy())
	assert.ErrorIs(t, s.TryBusy(), domain.ErrBusy)
	assert.True(t, s.Snapshot().Busy)
	s.ClearBusy()
	assert.NoError(t, s.TryBusy())
}

func TestStore_TicketLifecycle(t *testing.T) {
	rec := &recorder{}
	s := NewStore(rec)
	idx, _, err := s.Append(s.Epoch(), domain.RoleAssistant, "", false, itineraryCards("A", "B"))
	require.NoError(t, err)
	ref := domain.CardRef{Message: idx, Card: 1}

	epoch, snap, err := s.AcquireTicket(ref)
	require.NoError(t, err)
	assert.Equal(t, "B", snap.Title())
	assert.Equal(t, domain.TicketPending, s.Ticket(ref))
	assert.Equal(t, []domain.CardRef{ref}, s.PendingTickets())

	_, _, err = s.AcquireTicket(ref)
	assert.ErrorIs(t, err, domain.ErrEnhancePending)

	// the other card is independent
	_, _, err = s.AcquireTicket(domain.CardRef{Message: idx, Card: 0})
	require.NoError(t, err)

	s.ReleaseTicket(epoch, ref, domain.TicketFailed)
	assert.Equal(t, domain.TicketIdle, s.Ticket(ref))

	_, _, err = s.AcquireTicket(domain.CardRef{Message: idx, Card: 5})
	assert.ErrorIs(t, err, domain.ErrCardNotFound)

	assert.Equal(t, []string{
		"append 0 assistant",
		"ticket 0/1 pending",
		"ticket 0/0 pending",
		"ticket 0/1 failed",
		"ticket 0/1 idle",
	}, rec.Events())
}

func TestStore_UpdateCard(t *testing.T) {
	s := NewStore(nil)
	idx, _, err := s.Append(s.Epoch(), domain.RoleAssistant, "", false, itineraryCards("A", "B"))
	require.NoError(t, err)
	ref := domain.CardRef{Message: idx, Card: 0}

	err = s.UpdateCard(s.Epoch(), ref, domain.Lodging{Name: "wrong kind"})
	assert.ErrorIs(t, err, domain.ErrCardNotFound)

	require.NoError(t, s.UpdateCard(s.Epoch(), ref, domain.Itinerary{Name: "A2"}))
	got, err := s.Card(ref)
	require.NoError(t, err)
	assert.Equal(t, "A2", got.Title())

	other, err := s.Card(domain.CardRef{Message: idx, Card: 1})
	require.NoError(t, err)
	assert.Equal(t, "B", other.Title())
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore(nil)
	idx, _, err := s.Append(s.Epoch(), domain.RoleAssistant, "", false, itineraryCards("A"))
	require.NoError(t, err)

	snap := s.Snapshot()
	it := snap.Messages[idx].Cards.Entries[0].(domain.Itinerary)
	it.Highlights[0] = "mutated"
	it.Days[0].Stops[0].Name = "mutated"
	snap.Messages[idx].Cards.Entries[0] = domain.Flight{}

	got, err := s.Card(domain.CardRef{Message: idx, Card: 0})
	require.NoError(t, err)
	stored := got.(domain.Itinerary)
	assert.Equal(t, "Day 1: A", stored.Highlights[0])
	assert.Equal(t, "A", stored.Days[0].Stops[0].Name)
}

func TestStore_FlagsFollowMostRecentCards(t *testing.T) {
	s := NewStore(nil)
	_, _, _ = s.Append(s.Epoch(), domain.RoleAssistant, "", false, itineraryCards("A"))
	_, _, _ = s.Append(s.Epoch(), domain.RoleAssistant, "", false, &domain.Cards{
		Kind:    domain.KindLodging,
		Entries: []domain.Entry{domain.Lodging{Name: "Inn"}},
	})

	flags := s.Snapshot().Flags
	assert.True(t, flags.Itinerary)
	assert.True(t, flags.Lodging)
	assert.False(t, flags.Flight)
	assert.Equal(t, domain.KindLodging, flags.Active)
	assert.True(t, flags.Has(domain.KindLodging))
}

func TestStore_FollowUps(t *testing.T) {
	rec := &recorder{}
	s := NewStore(rec)
	epoch := s.Epoch()

	s.SetFollowUpLoading(epoch, true)
	s.SetFollowUpLoading(epoch, true)
	s.SetFollowUps(epoch, []string{"a", "b"})
	s.SetFollowUpLoading(epoch, false)
	s.Reset()
	s.SetFollowUps(epoch, []string{"stale"})

	assert.Empty(t, s.Snapshot().FollowUps.Questions)
	assert.Equal(t, []string{
		"followups 0 loading=true",
		"followups 2 loading=true",
		"followups 2 loading=false",
		`reset ""`,
	}, rec.Events())
}

func TestStore_ReplaceDropsTickets(t *testing.T) {
	s := NewStore(nil)
	idx, _, _ := s.Append(s.Epoch(), domain.RoleAssistant, "", false, itineraryCards("A"))
	ref := domain.CardRef{Message: idx}
	epoch, _, err := s.AcquireTicket(ref)
	require.NoError(t, err)

	require.NoError(t, s.Replace(s.Epoch(), "loaded", []domain.Message{{ID: "m1", Role: domain.RoleUser, Text: "hi"}}))
	assert.Empty(t, s.PendingTickets())
	assert.Equal(t, "loaded", s.SessionID())

	// releasing a ticket from before the replace is a no-op
	s.ReleaseTicket(epoch, ref, domain.TicketSucceeded)
	assert.Equal(t, domain.TicketIdle, s.Ticket(ref))
}

func TestStore_ReplaceRejectsStaleEpoch(t *testing.T) {
	rec := &recorder{}
	s := NewStore(rec)
	stale := s.Epoch()
	s.Reset()

	err := s.Replace(stale, "late", []domain.Message{{ID: "m1", Role: domain.RoleUser, Text: "hi"}})
	assert.ErrorIs(t, err, domain.ErrStaleSession)
	assert.Empty(t, s.SessionID())
	assert.Empty(t, s.Snapshot().Messages)
	assert.Equal(t, []string{`reset ""`}, rec.Events())
}

func TestStore_EventsArriveInMutationOrder(t *testing.T) {
	rec := &recorder{}
	s := NewStore(rec)
	epoch := s.Epoch()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = s.Append(epoch, domain.RoleUser, fmt.Sprint(i), false, nil)
		}()
	}
	wg.Wait()

	events := rec.Events()
	require.Len(t, events, 50)
	for i, ev := range events {
		assert.Equal(t, fmt.Sprintf("append %d user", i), ev)
	}
}
