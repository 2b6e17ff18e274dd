package domain

import (
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation log. Text of an assistant message
// changes only while it is being revealed.
type Message struct {
	ID        string
	Role      Role
	Text      string
	Streaming bool
	Cards     *Cards
	CreatedAt time.Time
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	if m.Cards != nil {
		c := m.Cards.Clone()
		out.Cards = &c
	}
	return out
}

// SessionSummary is one row of the remote conversation list.
type SessionSummary struct {
	ID        string
	Preview   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Flags are display hints derived from the cards present in a session.
type Flags struct {
	Itinerary bool
	Flight    bool
	Transit   bool
	Lodging   bool
	// Active is the kind of the most recent message that carries cards.
	Active CardKind
}

// Has reports whether a card kind is present.
func (f Flags) Has(kind CardKind) bool {
	switch kind {
	case KindItinerary:
		return f.Itinerary
	case KindFlight:
		return f.Flight
	case KindTransit:
		return f.Transit
	case KindLodging:
		return f.Lodging
	default:
		return false
	}
}

// DeriveFlags computes Flags from an ordered message log.
func DeriveFlags(msgs []Message) Flags {
	var f Flags
	for _, m := range msgs {
		if m.Cards == nil || len(m.Cards.Entries) == 0 {
			continue
		}
		switch m.Cards.Kind {
		case KindItinerary:
			f.Itinerary = true
		case KindFlight:
			f.Flight = true
		case KindTransit:
			f.Transit = true
		case KindLodging:
			f.Lodging = true
		}
		f.Active = m.Cards.Kind
	}
	return f
}

// FollowUpSet is the current list of suggested next queries.
type FollowUpSet struct {
	Questions []string
	Loading   bool
}

// Snapshot is a consistent copy of the whole session state.
type Snapshot struct {
	SessionID string
	Messages  []Message
	FollowUps FollowUpSet
	Flags     Flags
	Busy      bool
}
