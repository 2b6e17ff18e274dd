package service

import (
	"context"

	"github.com/set-night/tripmind/internal/domain"
	"github.com/set-night/tripmind/internal/planner"
)

// refreshFollowUps asks for suggestions based on the latest assistant text.
// It is best effort: on any failure the current set is kept.
func (e *Engine) refreshFollowUps(ctx context.Context, epoch uint64, lastText string) {
	sessionID := e.store.SessionID()
	if sessionID == "" {
		return
	}

	e.store.SetFollowUpLoading(epoch, true)
	defer e.store.SetFollowUpLoading(epoch, false)

	questions, err := e.planner.FollowUps(ctx, planner.FollowUpRequest{
		Message:        lastText,
		ConversationID: sessionID,
	})
	if err != nil {
		e.log.Debug("follow-up refresh failed", "error", err, "session_id", sessionID)
		return
	}
	e.store.SetFollowUps(epoch, questions)
}

// RefreshFollowUps runs a refresh against the current session.
func (e *Engine) RefreshFollowUps(ctx context.Context, lastText string) error {
	if e.store.SessionID() == "" {
		return domain.ErrNoSession
	}
	e.refreshFollowUps(ctx, e.store.Epoch(), lastText)
	return nil
}
