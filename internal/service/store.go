package service

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/tripmind/internal/domain"
)

// Listener observes Store mutations. Events are delivered in mutation order
// on the goroutine that performed the mutation. A Listener may read the Store
// but must not mutate it from inside a callback.
type Listener interface {
	MessageAppended(index int, msg domain.Message)
	MessageUpdated(index int, msg domain.Message)
	FollowUpsChanged(set domain.FollowUpSet)
	TicketChanged(ref domain.CardRef, status domain.TicketStatus)
	SessionReset(snap domain.Snapshot)
}

// Store is the single session state object. Every mutation goes through a
// named method; mutations tagged with a stale epoch are dropped.
type Store struct {
	mu     sync.Mutex
	emitMu sync.Mutex

	listener  Listener
	onSession func(id string)

	epoch     uint64
	sessionID string
	messages  []domain.Message
	followUps domain.FollowUpSet
	flags     domain.Flags
	tickets   map[domain.CardRef]domain.TicketStatus
	busy      bool
	now       func() time.Time
}

func NewStore(listener Listener) *Store {
	return &Store{
		listener: listener,
		tickets:  make(map[domain.CardRef]domain.TicketStatus),
		now:      time.Now,
	}
}

// OnSession registers a callback invoked whenever the session id changes.
func (s *Store) OnSession(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSession = fn
}

// emit runs fn on the listener after releasing mu but before any later
// mutation can emit. The caller must hold mu.
func (s *Store) emit(fn func(l Listener)) {
	if s.listener == nil {
		s.mu.Unlock()
		return
	}
	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()
	fn(s.listener)
}

func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *Store) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// AdoptSession sets the session id if none is assigned yet.
func (s *Store) AdoptSession(epoch uint64, id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	if epoch != s.epoch || s.sessionID != "" {
		s.mu.Unlock()
		return false
	}
	s.sessionID = id
	cb := s.onSession
	s.mu.Unlock()
	if cb != nil {
		cb(id)
	}
	return true
}

// TryBusy marks an exchange as outstanding.
func (s *Store) TryBusy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return domain.ErrBusy
	}
	s.busy = true
	return nil
}

func (s *Store) ClearBusy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

// Append adds a message to the log and returns its index.
func (s *Store) Append(epoch uint64, role domain.Role, text string, streaming bool, cards *domain.Cards) (int, domain.Message, error) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return -1, domain.Message{}, domain.ErrStaleSession
	}
	msg := domain.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Streaming: streaming,
		Cards:     cards,
		CreatedAt: s.now(),
	}
	s.messages = append(s.messages, msg)
	idx := len(s.messages) - 1
	if cards != nil {
		s.flags = domain.DeriveFlags(s.messages)
	}
	out := msg.Clone()
	s.emit(func(l Listener) { l.MessageAppended(idx, out) })
	return idx, out, nil
}

// SetText replaces the text of the message with the given id.
func (s *Store) SetText(id, text string, streaming bool) bool {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.messages[idx].Text = text
	s.messages[idx].Streaming = streaming
	out := s.messages[idx].Clone()
	s.emit(func(l Listener) { l.MessageUpdated(idx, out) })
	return true
}

// StopStreaming clears the streaming flag without touching the text.
func (s *Store) StopStreaming(id string) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 || !s.messages[idx].Streaming {
		s.mu.Unlock()
		return
	}
	s.messages[idx].Streaming = false
	out := s.messages[idx].Clone()
	s.emit(func(l Listener) { l.MessageUpdated(idx, out) })
}

func (s *Store) indexOf(id string) int {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ID == id {
			return i
		}
	}
	return -1
}

// AttachCards replaces the Cards of a message wholesale.
func (s *Store) AttachCards(epoch uint64, index int, cards domain.Cards) error {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return domain.ErrStaleSession
	}
	if index < 0 || index >= len(s.messages) {
		s.mu.Unlock()
		return domain.ErrCardNotFound
	}
	s.messages[index].Cards = &cards
	s.flags = domain.DeriveFlags(s.messages)
	out := s.messages[index].Clone()
	s.emit(func(l Listener) { l.MessageUpdated(index, out) })
	return nil
}

func (s *Store) entryLocked(ref domain.CardRef) (domain.Entry, error) {
	if ref.Message < 0 || ref.Message >= len(s.messages) {
		return nil, domain.ErrCardNotFound
	}
	cards := s.messages[ref.Message].Cards
	if cards == nil || ref.Card < 0 || ref.Card >= len(cards.Entries) {
		return nil, domain.ErrCardNotFound
	}
	return cards.Entries[ref.Card], nil
}

// Card returns a copy of the referenced entry.
func (s *Store) Card(ref domain.CardRef) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entryLocked(ref)
	if err != nil {
		return nil, err
	}
	return e.Clone(), nil
}

// UpdateCard point-updates one entry. The entry kind must not change.
func (s *Store) UpdateCard(epoch uint64, ref domain.CardRef, entry domain.Entry) error {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return domain.ErrStaleSession
	}
	cur, err := s.entryLocked(ref)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if cur.Kind() != entry.Kind() {
		s.mu.Unlock()
		return domain.ErrCardNotFound
	}
	cards := s.messages[ref.Message].Cards.Clone()
	cards.Entries[ref.Card] = entry.Clone()
	s.messages[ref.Message].Cards = &cards
	out := s.messages[ref.Message].Clone()
	s.emit(func(l Listener) { l.MessageUpdated(ref.Message, out) })
	return nil
}

// AcquireTicket marks the referenced card pending and returns the current
// epoch with a snapshot of the entry.
func (s *Store) AcquireTicket(ref domain.CardRef) (uint64, domain.Entry, error) {
	s.mu.Lock()
	e, err := s.entryLocked(ref)
	if err != nil {
		s.mu.Unlock()
		return 0, nil, err
	}
	if s.tickets[ref] == domain.TicketPending {
		s.mu.Unlock()
		return 0, nil, domain.ErrEnhancePending
	}
	s.tickets[ref] = domain.TicketPending
	epoch := s.epoch
	snap := e.Clone()
	s.emit(func(l Listener) { l.TicketChanged(ref, domain.TicketPending) })
	return epoch, snap, nil
}

// ReleaseTicket publishes the outcome of an attempt and retires the ticket.
func (s *Store) ReleaseTicket(epoch uint64, ref domain.CardRef, outcome domain.TicketStatus) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	delete(s.tickets, ref)
	s.emit(func(l Listener) {
		l.TicketChanged(ref, outcome)
		l.TicketChanged(ref, domain.TicketIdle)
	})
}

func (s *Store) Ticket(ref domain.CardRef) domain.TicketStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.tickets[ref]; ok {
		return st
	}
	return domain.TicketIdle
}

// PendingTickets returns the refs of all pending enhancements.
func (s *Store) PendingTickets() []domain.CardRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CardRef, 0, len(s.tickets))
	for ref, st := range s.tickets {
		if st == domain.TicketPending {
			out = append(out, ref)
		}
	}
	return out
}

// SetFollowUps replaces the suggestion list wholesale.
func (s *Store) SetFollowUps(epoch uint64, questions []string) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	s.followUps.Questions = slices.Clone(questions)
	out := cloneFollowUps(s.followUps)
	s.emit(func(l Listener) { l.FollowUpsChanged(out) })
}

func (s *Store) SetFollowUpLoading(epoch uint64, loading bool) {
	s.mu.Lock()
	if epoch != s.epoch || s.followUps.Loading == loading {
		s.mu.Unlock()
		return
	}
	s.followUps.Loading = loading
	out := cloneFollowUps(s.followUps)
	s.emit(func(l Listener) { l.FollowUpsChanged(out) })
}

// Reset clears the session. Results of calls started before the reset are
// dropped by their epoch.
func (s *Store) Reset() {
	s.replace("", nil)
}

// Replace installs a loaded session in place of the current one. It fails
// with ErrStaleSession when the session changed since epoch was read.
func (s *Store) Replace(epoch uint64, sessionID string, msgs []domain.Message) error {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return domain.ErrStaleSession
	}
	s.replaceLocked(sessionID, msgs)
	return nil
}

func (s *Store) replace(sessionID string, msgs []domain.Message) {
	s.mu.Lock()
	s.replaceLocked(sessionID, msgs)
}

// replaceLocked is called with mu held and releases it.
func (s *Store) replaceLocked(sessionID string, msgs []domain.Message) {
	s.epoch++
	s.sessionID = sessionID
	s.messages = make([]domain.Message, len(msgs))
	for i, m := range msgs {
		s.messages[i] = m.Clone()
	}
	s.followUps = domain.FollowUpSet{}
	s.tickets = make(map[domain.CardRef]domain.TicketStatus)
	s.flags = domain.DeriveFlags(s.messages)
	snap := s.snapshotLocked()
	cb := s.onSession
	s.emit(func(l Listener) { l.SessionReset(snap) })
	if cb != nil {
		cb(sessionID)
	}
}

func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() domain.Snapshot {
	msgs := make([]domain.Message, len(s.messages))
	for i, m := range s.messages {
		msgs[i] = m.Clone()
	}
	return domain.Snapshot{
		SessionID: s.sessionID,
		Messages:  msgs,
		FollowUps: cloneFollowUps(s.followUps),
		Flags:     s.flags,
		Busy:      s.busy,
	}
}

// UserTexts returns the text of every user message in order.
func (s *Store) UserTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.messages {
		if m.Role == domain.RoleUser {
			out = append(out, m.Text)
		}
	}
	return out
}

func cloneFollowUps(f domain.FollowUpSet) domain.FollowUpSet {
	return domain.FollowUpSet{Questions: slices.Clone(f.Questions), Loading: f.Loading}
}
