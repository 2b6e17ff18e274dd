package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/set-night/tripmind/internal/domain"
	"github.com/set-night/tripmind/internal/planner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalize_Success(t *testing.T) {
	p := &fakePlanner{
		finalize: func(context.Context, planner.FinalizeRequest) (*planner.FinalizeReply, error) {
			return &planner.FinalizeReply{
				Success:           true,
				FollowUpQuestions: json.RawMessage(`["Book a hotel?", "Add travel insurance?"]`),
			}, nil
		},
	}
	e := seeded(t, p, twoPlansBody, nil)
	ref := domain.CardRef{Message: 1, Card: 1}
	before, _ := e.Card(ref)

	require.NoError(t, e.Finalize(context.Background(), ref))

	msgs := e.Snapshot().Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "🎯 Great choice! I'm now finalizing your Plan B itinerary. Let me process this for you...", msgs[2].Text)
	assert.Contains(t, msgs[3].Text, "• Destination: Plan B\n")
	assert.Contains(t, msgs[3].Text, "• Duration: 2 days\n")
	assert.Contains(t, msgs[3].Text, "• Budget: Custom\n")
	assert.Equal(t, []string{"Book a hotel?", "Add travel insurance?"}, e.Snapshot().FollowUps.Questions)

	after, _ := e.Card(ref)
	assert.Equal(t, before, after)

	require.Len(t, p.finalizeReqs, 1)
	req := p.finalizeReqs[0]
	assert.Equal(t, 1, req.CardIndex)
	assert.Equal(t, "c1", req.UserInfo.SessionID)
	assert.Equal(t, "2025-03-14T09:30:00Z", req.UserInfo.Timestamp)
	assert.Equal(t, []string{"plan a trip"}, req.ConversationHistory)
	assert.Equal(t, "plan a trip", req.UserQuery)

	payload, err := json.Marshal(req.PlanData)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"title":"Plan B"`)
	assert.Contains(t, string(payload), `"duration":"2 Days"`)
}

func TestFinalize_Rejected(t *testing.T) {
	p := &fakePlanner{
		finalize: func(context.Context, planner.FinalizeRequest) (*planner.FinalizeReply, error) {
			return &planner.FinalizeReply{Success: false, Error: "no availability"}, nil
		},
	}
	e := seeded(t, p, twoPlansBody, nil)

	require.NoError(t, e.Finalize(context.Background(), domain.CardRef{Message: 1}))
	assert.Contains(t, lastMessage(t, e).Text, "I encountered an issue while finalizing your plan: no availability")
}

func TestFinalize_Unreachable(t *testing.T) {
	e := seeded(t, &fakePlanner{}, twoPlansBody, nil)

	require.NoError(t, e.Finalize(context.Background(), domain.CardRef{Message: 1}))
	assert.Equal(t, finalizeConnectionText, lastMessage(t, e).Text)
}

func TestFinalize_UnknownCard(t *testing.T) {
	e := seeded(t, &fakePlanner{}, twoPlansBody, nil)
	n := len(e.Snapshot().Messages)

	assert.ErrorIs(t, e.Finalize(context.Background(), domain.CardRef{Message: 1, Card: 3}), domain.ErrCardNotFound)
	assert.Len(t, e.Snapshot().Messages, n)
}

func TestFinalize_FlightSummary(t *testing.T) {
	body := `{"response_type": "flights", "flight_options": [{"carrier": "IndiGo", "flight_number": "6E 21", "destination_iata": "DXB", "duration": "3h", "price_inr": 12999}]}`
	p := &fakePlanner{
		finalize: func(context.Context, planner.FinalizeRequest) (*planner.FinalizeReply, error) {
			return &planner.FinalizeReply{Success: true}, nil
		},
	}
	e := seeded(t, p, body, nil)

	require.NoError(t, e.Finalize(context.Background(), domain.CardRef{Message: 1}))
	msgs := e.Snapshot().Messages
	assert.Contains(t, msgs[len(msgs)-2].Text, "finalizing your flight IndiGo 6E 21")
	assert.Contains(t, msgs[len(msgs)-1].Text, "• Destination: Flight to DXB\n")
	assert.Contains(t, msgs[len(msgs)-1].Text, "• Budget: ₹12999\n")
}

func TestSummarize(t *testing.T) {
	p := &fakePlanner{
		summarize: func(_ context.Context, planData any) (*planner.SummarizeReply, error) {
			w, ok := planData.(itineraryWire)
			require.True(t, ok)
			assert.Equal(t, "Plan A", w.Title)
			return &planner.SummarizeReply{Success: true, Response: "```json\n" + `{
				"title": "Plan A",
				"duration": 2,
				"budget": "Moderate",
				"days": [{"day": 1, "activities": [{"name": "Museum", "description": "<b>Art</b> and history", "time_spent": "2h", "weather": "Sunny"}]}]
			}` + "\n```"}, nil
		},
	}
	e := seeded(t, p, twoPlansBody, nil)

	s, err := e.Summarize(context.Background(), domain.CardRef{Message: 1})
	require.NoError(t, err)
	assert.Equal(t, "Plan A", s.Title)
	assert.Equal(t, "2", s.Duration)
	assert.Equal(t, "Moderate", s.Budget)
	require.Len(t, s.Days, 1)
	assert.Equal(t, "1", s.Days[0].Day)
	assert.Equal(t, domain.SummaryActivity{Name: "Museum", Description: "Art and history", TimeSpent: "2h", Weather: "Sunny"}, s.Days[0].Activities[0])
}

func TestSummarize_Errors(t *testing.T) {
	body := `{"response_type": "flights", "flight_options": [{"carrier": "IndiGo"}]}`
	e := seeded(t, &fakePlanner{}, body, nil)
	_, err := e.Summarize(context.Background(), domain.CardRef{Message: 1})
	assert.ErrorIs(t, err, domain.ErrNotItinerary)

	p := &fakePlanner{
		summarize: func(context.Context, any) (*planner.SummarizeReply, error) {
			return &planner.SummarizeReply{Success: false, Error: "too long"}, nil
		},
	}
	e = seeded(t, p, twoPlansBody, nil)
	_, err = e.Summarize(context.Background(), domain.CardRef{Message: 1})
	assert.ErrorContains(t, err, "too long")
}

func TestParseSummary_PlainText(t *testing.T) {
	s := ParseSummary("  Day 1: beach. Day 2: fort.  ")
	assert.Equal(t, domain.ItinerarySummary{Text: "Day 1: beach. Day 2: fort."}, s)
}
