package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/set-night/tripmind/internal/domain"
	"github.com/set-night/tripmind/internal/planner"
)

const finalizeConnectionText = "❌ Connection Issue\n\n" +
	"I'm having trouble connecting to the server right now. This could be due to:\n" +
	"• Network connectivity issues\n" +
	"• Server maintenance\n" +
	"• Temporary service disruption\n\n" +
	"Please check your connection and try again in a moment."

// Finalize books one card. It never changes the card itself; the outcome is
// reported as assistant messages and, on success, may replace the follow-ups.
func (e *Engine) Finalize(ctx context.Context, ref domain.CardRef) error {
	if e.closed() {
		return domain.ErrEngineClosed
	}
	entry, err := e.store.Card(ref)
	if err != nil {
		return err
	}
	epoch := e.store.Epoch()
	e.appendAssistant(epoch, fmt.Sprintf("🎯 Great choice! I'm now finalizing your %s. Let me process this for you...", finalizeSubject(entry)))

	users := e.store.UserTexts()
	var last string
	if len(users) > 0 {
		last = users[len(users)-1]
	}

	reply, err := e.planner.Finalize(ctx, planner.FinalizeRequest{
		CardIndex: ref.Card,
		PlanData:  cardPayload(entry),
		UserInfo: planner.UserInfo{
			Timestamp: e.now().UTC().Format(time.RFC3339),
			SessionID: e.store.SessionID(),
		},
		ConversationHistory: users,
		UserQuery:           last,
	})
	if err != nil {
		e.log.Warn("finalize failed", "error", err, "card_index", ref.Card)
		e.appendAssistant(epoch, finalizeConnectionText)
		return nil
	}
	if !reply.Success {
		e.log.Warn("finalize rejected", "error", reply.Error, "card_index", ref.Card)
		e.appendAssistant(epoch, fmt.Sprintf("❌ Oops! Something went wrong.\n\n"+
			"I encountered an issue while finalizing your plan: %s\n\n"+
			"Please try again, or let me know if you'd like to modify it first.",
			firstNonEmpty(reply.Error, "Unknown error")))
		return nil
	}

	if qs := decodeQuestions(reply.FollowUpQuestions); qs != nil {
		e.store.SetFollowUps(epoch, qs)
	}
	e.appendAssistant(epoch, finalizedText(entry))
	e.log.Info("card finalized", "kind", entry.Kind(), "card_index", ref.Card, "session_id", e.store.SessionID())
	return nil
}

func finalizeSubject(e domain.Entry) string {
	switch v := e.(type) {
	case domain.Itinerary:
		return v.Name + " itinerary"
	case domain.Flight:
		return "flight " + strings.TrimSpace(v.Carrier+" "+v.FlightNumber)
	case domain.TransitRoute:
		return "bus route " + v.Name
	case domain.Lodging:
		return "stay at " + v.Name
	default:
		return "trip"
	}
}

func finalizedText(e domain.Entry) string {
	var dest, duration, budget string
	switch v := e.(type) {
	case domain.Itinerary:
		dest, duration, budget = v.Name, fmt.Sprintf("%d days", v.DurationDays), v.Budget
	case domain.Flight:
		dest, duration, budget = v.Title(), v.Duration, "₹"+v.Price.StringFixed(0)
	case domain.TransitRoute:
		dest, duration, budget = v.Name, v.Duration, v.PriceLabel
	case domain.Lodging:
		dest = v.Name
		if v.Price.IsPositive() {
			budget = "₹" + v.Price.StringFixed(0)
		}
	}

	var b strings.Builder
	b.WriteString("✅ Perfect! Your trip has been finalized successfully!\n\n")
	b.WriteString("📋 Trip Summary:\n")
	fmt.Fprintf(&b, "• Destination: %s\n", firstNonEmpty(dest, "N/A"))
	fmt.Fprintf(&b, "• Duration: %s\n", firstNonEmpty(duration, "N/A"))
	fmt.Fprintf(&b, "• Budget: %s\n\n", firstNonEmpty(budget, "Not specified"))
	b.WriteString("🎉 Your plan has been saved and is ready for booking!\n\n")
	b.WriteString("Next Steps:\n")
	b.WriteString("• 🏨 Book accommodations\n")
	b.WriteString("• ✈️ Reserve flights\n")
	b.WriteString("• 🎫 Purchase activity tickets\n")
	b.WriteString("• 📱 Download offline maps\n\n")
	b.WriteString("Would you like me to help you with any of these next steps?")
	return b.String()
}

// Summarize returns the detail view of an itinerary card. It does not touch
// session state.
func (e *Engine) Summarize(ctx context.Context, ref domain.CardRef) (domain.ItinerarySummary, error) {
	entry, err := e.store.Card(ref)
	if err != nil {
		return domain.ItinerarySummary{}, err
	}
	it, ok := entry.(domain.Itinerary)
	if !ok {
		return domain.ItinerarySummary{}, domain.ErrNotItinerary
	}

	reply, err := e.planner.Summarize(ctx, itineraryPayload(it))
	if err != nil {
		return domain.ItinerarySummary{}, fmt.Errorf("summarize itinerary: %w", err)
	}
	if !reply.Success {
		return domain.ItinerarySummary{}, fmt.Errorf("summarize itinerary: %s", firstNonEmpty(reply.Error, "service refused"))
	}
	return ParseSummary(reply.Response), nil
}

// ParseSummary decodes the JSON summary, stripping code fences. Anything
// that does not decode is returned as plain text.
func ParseSummary(response string) domain.ItinerarySummary {
	text := strings.TrimSpace(response)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	var s planner.Summary
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return domain.ItinerarySummary{Text: strings.TrimSpace(response)}
	}

	out := domain.ItinerarySummary{
		Title:    s.Title,
		Duration: string(s.Duration),
		Budget:   s.Budget,
	}
	for _, d := range s.Days {
		day := domain.SummaryDay{Day: string(d.Day)}
		for _, a := range d.Activities {
			day.Activities = append(day.Activities, domain.SummaryActivity{
				Name:        a.Name,
				Description: plainText(a.Description),
				TimeSpent:   string(a.TimeSpent),
				Weather:     a.Weather,
			})
		}
		out.Days = append(out.Days, day)
	}
	return out
}
