package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/set-night/tripmind/internal/config"
	"github.com/set-night/tripmind/internal/domain"
	"github.com/set-night/tripmind/internal/planner"
	"golang.org/x/sync/errgroup"
)

const quotaMessage = "⚠️ Planning Service Quota Exceeded\n\n" +
	"The planning service has reached its usage quota for now. " +
	"Your request was not completed.\n\n" +
	"💡 Please try again later."

// ValidateMessage rejects text that must not reach the service.
func ValidateMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return domain.ErrEmptyMessage
	}
	if wordCount(text) > config.MaxMessageWords {
		return domain.ErrMessageTooLong
	}
	return nil
}

// Send runs one full exchange. Validation failures and ErrBusy are returned
// without touching the log. Every other failure is recorded as an assistant
// message and Send returns nil, or ErrStaleSession when the session was
// replaced while the call was in flight.
func (e *Engine) Send(ctx context.Context, text string) error {
	if err := ValidateMessage(text); err != nil {
		return err
	}
	if e.closed() {
		return domain.ErrEngineClosed
	}
	text = strings.TrimSpace(text)
	if err := e.store.TryBusy(); err != nil {
		return err
	}
	defer e.store.ClearBusy()

	epoch := e.store.Epoch()
	if _, _, err := e.store.Append(epoch, domain.RoleUser, text, false, nil); err != nil {
		return err
	}
	e.sessions.Invalidate()

	raw, err := e.planner.Chat(ctx, planner.ChatRequest{
		Query:          text,
		ConversationID: e.store.SessionID(),
		RunID:          uuid.NewString(),
	})
	if e.store.Epoch() != epoch {
		e.log.Debug("discarding reply for replaced session")
		return domain.ErrStaleSession
	}
	if err != nil {
		e.log.Warn("chat request failed", "error", err)
		e.appendAssistant(epoch, e.diagnose(ctx, err))
		return nil
	}

	c := Classify(raw, e.jitter)
	switch r := c.Reply.(type) {
	case domain.QuotaExceeded:
		e.log.Warn("planning service quota exceeded", "detail", clip(r.Detail, config.ProbeBodyLimit))
		e.appendAssistant(epoch, quotaMessage)
		return nil
	case domain.ServiceError:
		e.log.Warn("planning service error", "detail", clip(r.Detail, config.ProbeBodyLimit), "status", raw.Status)
		e.appendAssistant(epoch, "⚠️ Error: "+r.Detail)
		return nil
	}

	if e.store.AdoptSession(epoch, c.SessionID) {
		e.log.Info("session established", "session_id", c.SessionID)
	}
	if c.FollowUps != nil {
		e.store.SetFollowUps(epoch, c.FollowUps)
	}

	var (
		body  string
		cards *domain.Cards
	)
	switch r := c.Reply.(type) {
	case domain.ClarifyReply:
		body = r.Question
	case domain.PlainReply:
		body = r.Text
	case domain.SetReply:
		body = SummaryLine(r.Kind, len(r.Entries))
		cards = &domain.Cards{Kind: r.Kind, Entries: r.Entries}
	}

	e.renderer.Flush()
	_, msg, err := e.store.Append(epoch, domain.RoleAssistant, "", true, cards)
	if err != nil {
		return err
	}
	e.renderer.Reveal(msg.ID, body, func(final string) {
		e.refreshFollowUps(e.ctx, epoch, final)
	})
	return nil
}

// diagnose builds the message shown for a failed request. The liveness and
// preflight probes run concurrently and their own failures are ignored.
func (e *Engine) diagnose(ctx context.Context, cause error) string {
	var health, preflight *planner.Probe

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if p, err := e.planner.Health(gctx); err == nil {
			health = &p
		}
		return nil
	})
	g.Go(func() error {
		if p, err := e.planner.Preflight(gctx); err == nil {
			preflight = &p
		}
		return nil
	})
	_ = g.Wait()

	return Diagnostic(cause, health, preflight)
}

// Diagnostic formats a transport failure together with probe results. A nil
// probe means the probe itself could not reach the service.
func Diagnostic(cause error, health, preflight *planner.Probe) string {
	var b strings.Builder
	b.WriteString("⚠️ Connection error. Please ensure the planning service is running.")
	if cause != nil && cause.Error() != "" {
		b.WriteString("\nDetails: " + cause.Error())
	}

	var verdict string
	switch {
	case health == nil && preflight == nil:
		verdict = "The planning service appears to be down."
	case health != nil && health.OK() && (preflight == nil || !preflight.OK()):
		verdict = "The service is up but requests are being blocked by network or cross-origin policy."
	default:
		verdict = "The request failed for an unknown reason."
	}

	if health != nil {
		status := "OK"
		if !health.OK() {
			status = fmt.Sprint(health.Status)
		}
		fmt.Fprintf(&b, "\n\nHealth check %s: %s", status, health.Body)
	}
	if preflight != nil {
		status := "OK"
		if !preflight.OK() {
			status = fmt.Sprint(preflight.Status)
		}
		fmt.Fprintf(&b, "\nPreflight %s on %s", status, preflight.Host)
	}
	b.WriteString("\n\n" + verdict)
	return b.String()
}
