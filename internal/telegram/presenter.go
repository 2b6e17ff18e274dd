package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/set-night/tripmind/internal/config"
	"github.com/set-night/tripmind/internal/domain"
	"golang.org/x/time/rate"
)

const (
	sendTimeout  = 15 * time.Second
	replayLimit  = 6
	streamCursor = " ▌"
)

type eventKind int

const (
	eventAppended eventKind = iota
	eventUpdated
	eventFollowUps
	eventTicket
	eventReset
)

type event struct {
	kind      eventKind
	index     int
	msg       domain.Message
	followUps domain.FollowUpSet
	ref       domain.CardRef
	status    domain.TicketStatus
	snap      domain.Snapshot
}

// delivered is what the chat currently shows for one session message.
type delivered struct {
	textID  int
	text    string
	cardIDs []int
	cards   []string
	entries []domain.Entry
}

// Presenter mirrors one chat's session into Telegram messages. Engine
// callbacks only enqueue; a single worker talks to Telegram so the engine
// never waits on the network. Partial reveal edits are throttled and may be
// skipped, the final text of every message is always delivered.
type Presenter struct {
	m       Messenger
	chatID  int64
	log     *slog.Logger
	limiter *rate.Limiter

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []event
	closed bool
	wg     sync.WaitGroup

	// owned by the worker
	shown     map[int]*delivered
	followUps []string
}

func NewPresenter(m Messenger, chatID int64, log *slog.Logger) *Presenter {
	if log == nil {
		log = slog.Default()
	}
	p := &Presenter{
		m:       m,
		chatID:  chatID,
		log:     log.With("chat_id", chatID),
		limiter: rate.NewLimiter(rate.Every(config.EditInterval), config.EditBurst),
		shown:   make(map[int]*delivered),
	}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *Presenter) MessageAppended(index int, msg domain.Message) {
	p.enqueue(event{kind: eventAppended, index: index, msg: msg})
}

func (p *Presenter) MessageUpdated(index int, msg domain.Message) {
	p.mu.Lock()
	// A queued partial update for the same message is superseded.
	if n := len(p.queue); n > 0 {
		last := p.queue[n-1]
		if last.kind == eventUpdated && last.index == index && last.msg.Streaming {
			p.queue[n-1].msg = msg
			p.mu.Unlock()
			return
		}
	}
	p.mu.Unlock()
	p.enqueue(event{kind: eventUpdated, index: index, msg: msg})
}

func (p *Presenter) FollowUpsChanged(set domain.FollowUpSet) {
	p.enqueue(event{kind: eventFollowUps, followUps: set})
}

func (p *Presenter) TicketChanged(ref domain.CardRef, status domain.TicketStatus) {
	p.enqueue(event{kind: eventTicket, ref: ref, status: status})
}

func (p *Presenter) SessionReset(snap domain.Snapshot) {
	p.enqueue(event{kind: eventReset, snap: snap})
}

func (p *Presenter) enqueue(ev event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.queue = append(p.queue, ev)
	p.cond.Signal()
}

// Close delivers what is already queued and stops the worker.
func (p *Presenter) Close() error {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}

func (p *Presenter) run() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		ev := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.handle(ev)
	}
}

func (p *Presenter) handle(ev event) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	switch ev.kind {
	case eventAppended:
		if ev.msg.Role == domain.RoleUser {
			return
		}
		p.shown[ev.index] = &delivered{}
		if ev.msg.Streaming && ev.msg.Text == "" {
			return
		}
		p.deliver(ctx, ev.index, ev.msg)
	case eventUpdated:
		if ev.msg.Role == domain.RoleUser {
			return
		}
		if ev.msg.Streaming {
			if p.limiter.Allow() {
				p.partial(ctx, ev.index, ev.msg.Text)
			}
			return
		}
		p.deliver(ctx, ev.index, ev.msg)
	case eventFollowUps:
		p.showFollowUps(ctx, ev.followUps)
	case eventTicket:
		p.showTicket(ctx, ev.ref, ev.status)
	case eventReset:
		p.replay(ctx, ev.snap)
	}
}

func (p *Presenter) state(index int) *delivered {
	d, ok := p.shown[index]
	if !ok {
		d = &delivered{}
		p.shown[index] = d
	}
	return d
}

func (p *Presenter) partial(ctx context.Context, index int, text string) {
	if text == "" {
		return
	}
	d := p.state(index)
	if d.textID == 0 {
		sent, err := SendPlain(ctx, p.m, p.chatID, text+streamCursor, nil)
		if err != nil {
			p.log.Debug("send partial reply", "error", err)
			return
		}
		d.textID = sent.ID
		return
	}
	if err := EditLongMessage(ctx, p.m, p.chatID, d.textID, text+streamCursor, false, nil); err != nil {
		p.log.Debug("edit partial reply", "error", err)
	}
}

// deliver brings the chat in line with the final state of one message.
func (p *Presenter) deliver(ctx context.Context, index int, msg domain.Message) {
	d := p.state(index)

	if msg.Text != "" && msg.Text != d.text {
		parts := SplitMessage(msg.Text, MaxMessageLen)
		if d.textID == 0 {
			sent, err := SendLongMessage(ctx, p.m, p.chatID, msg.Text, nil)
			if err != nil {
				p.log.Warn("send reply", "error", err)
			} else if sent != nil {
				d.textID = sent.ID
			}
		} else {
			if err := EditLongMessage(ctx, p.m, p.chatID, d.textID, parts[0], true, nil); err != nil {
				p.log.Debug("edit reply", "error", err)
			}
			for _, rest := range parts[1:] {
				if _, err := SendLongMessage(ctx, p.m, p.chatID, rest, nil); err != nil {
					p.log.Warn("send reply tail", "error", err)
				}
			}
		}
		d.text = msg.Text
	}

	if msg.Cards == nil {
		return
	}
	for i, entry := range msg.Cards.Entries {
		ref := domain.CardRef{Message: index, Card: i}
		text := FormatCard(entry)
		if i < len(d.cardIDs) {
			if d.cards[i] == text {
				continue
			}
			if err := EditLongMessage(ctx, p.m, p.chatID, d.cardIDs[i], text, true, CardKeyboard(ref, entry)); err != nil {
				p.log.Debug("edit card", "error", err, "card_index", i)
			}
			d.cards[i] = text
			d.entries[i] = entry
			continue
		}
		sent, err := SendLongMessage(ctx, p.m, p.chatID, text, CardKeyboard(ref, entry))
		if err != nil || sent == nil {
			p.log.Warn("send card", "error", err, "card_index", i)
			return
		}
		d.cardIDs = append(d.cardIDs, sent.ID)
		d.cards = append(d.cards, text)
		d.entries = append(d.entries, entry)
	}
}

func (p *Presenter) showFollowUps(ctx context.Context, set domain.FollowUpSet) {
	if set.Loading || len(set.Questions) == 0 || slices.Equal(set.Questions, p.followUps) {
		return
	}
	p.followUps = slices.Clone(set.Questions)
	if _, err := SendPlain(ctx, p.m, p.chatID, "💡 You might also ask:", QuestionKeyboard(CallbackFollowUp, set.Questions)); err != nil {
		p.log.Debug("send follow-ups", "error", err)
	}
}

func (p *Presenter) showTicket(ctx context.Context, ref domain.CardRef, status domain.TicketStatus) {
	d, ok := p.shown[ref.Message]
	if !ok || ref.Card >= len(d.cardIDs) {
		return
	}
	var err error
	switch status {
	case domain.TicketPending:
		err = EditKeyboard(ctx, p.m, p.chatID, d.cardIDs[ref.Card], PendingKeyboard())
	case domain.TicketIdle:
		err = EditKeyboard(ctx, p.m, p.chatID, d.cardIDs[ref.Card], CardKeyboard(ref, d.entries[ref.Card]))
	}
	if err != nil {
		p.log.Debug("update card keyboard", "error", err, "status", status)
	}
}

// replay forgets everything shown for the previous session and, for a
// loaded one, re-sends its latest messages.
func (p *Presenter) replay(ctx context.Context, snap domain.Snapshot) {
	p.shown = make(map[int]*delivered)
	p.followUps = nil
	if len(snap.Messages) == 0 {
		return
	}

	from := max(0, len(snap.Messages)-replayLimit)
	header := fmt.Sprintf("📂 Conversation loaded (%d messages).", len(snap.Messages))
	if from > 0 {
		header += fmt.Sprintf(" Showing the last %d:", len(snap.Messages)-from)
	}
	if _, err := SendPlain(ctx, p.m, p.chatID, header, nil); err != nil {
		p.log.Debug("send replay header", "error", err)
	}
	for i := from; i < len(snap.Messages); i++ {
		msg := snap.Messages[i]
		if msg.Role == domain.RoleUser {
			if _, err := SendPlain(ctx, p.m, p.chatID, "👤 "+msg.Text, nil); err != nil {
				p.log.Debug("replay user message", "error", err)
			}
			continue
		}
		p.deliver(ctx, i, msg)
	}
}
