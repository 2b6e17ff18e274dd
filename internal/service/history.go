package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/set-night/tripmind/internal/domain"
	"github.com/set-night/tripmind/internal/planner"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.RFC1123Z,
}

// ListSessions returns remote conversation summaries, newest first as the
// store orders them.
func (e *Engine) ListSessions(ctx context.Context, limit int) ([]domain.SessionSummary, error) {
	if cached := e.sessions.Get(limit); cached != nil {
		return cached, nil
	}

	convs, err := e.planner.ListConversations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]domain.SessionSummary, 0, len(convs))
	for _, c := range convs {
		if c.ConversationID == "" {
			continue
		}
		out = append(out, domain.SessionSummary{
			ID:        c.ConversationID,
			Preview:   firstNonEmpty(c.Preview, c.Title, "Untitled Conversation"),
			CreatedAt: parseTimestamp(c.CreatedAt),
			UpdatedAt: parseTimestamp(c.UpdatedAt),
		})
	}
	e.sessions.Set(limit, out)
	return out, nil
}

// Load replaces the whole session with the stored conversation id. Loading
// the same id twice yields identical state. A load overtaken by NewSession or
// another Load returns ErrStaleSession and changes nothing.
func (e *Engine) Load(ctx context.Context, id string) error {
	epoch := e.store.Epoch()
	stored, err := e.planner.ConversationMessages(ctx, id)
	if errors.Is(err, planner.ErrNotFound) {
		return domain.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	msgs := make([]domain.Message, 0, len(stored))
	for i, m := range stored {
		msgs = append(msgs, e.storedMessage(id, i, m))
	}

	if err := e.store.Replace(epoch, id, msgs); err != nil {
		e.log.Debug("discarding load for replaced session", "session_id", id)
		return err
	}
	// the reveal belonged to the session just replaced
	e.renderer.Cancel()
	e.sessions.Invalidate()
	e.log.Info("session loaded", "session_id", id, "messages", len(msgs))
	return nil
}

func (e *Engine) storedMessage(sessionID string, index int, m planner.StoredMessage) domain.Message {
	msg := domain.Message{
		ID:        firstNonEmpty(m.MongoID, m.ID, sessionID+"-"+strconv.Itoa(index)),
		Role:      domain.RoleAssistant,
		Text:      m.Content,
		CreatedAt: parseRawTimestamp(m.Timestamp),
	}
	if m.Role == string(domain.RoleUser) {
		msg.Role = domain.RoleUser
	}

	raw := m.Metadata.Cards
	if planner.IsNull(raw) {
		raw = m.Cards
	}
	cards, err := decodeStoredCards(raw)
	if err != nil {
		e.log.Warn("dropping unreadable stored cards", "error", err, "session_id", sessionID, "index", index)
		return msg
	}
	msg.Cards = cards
	return msg
}

func parseRawTimestamp(raw json.RawMessage) time.Time {
	if planner.IsNull(raw) {
		return time.Time{}
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(int64(ms)).UTC()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}
	}
	return parseTimestamp(s)
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
