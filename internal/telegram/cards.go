package telegram

import (
	"fmt"
	"strings"

	"github.com/set-night/tripmind/internal/domain"
)

// FormatCard renders one card entry as a legacy-Markdown message.
func FormatCard(entry domain.Entry) string {
	switch v := entry.(type) {
	case domain.Itinerary:
		return formatItinerary(v)
	case domain.Flight:
		return formatFlight(v)
	case domain.TransitRoute:
		return formatTransit(v)
	case domain.Lodging:
		return formatLodging(v)
	default:
		return EscapeMarkdown(entry.Title())
	}
}

func formatItinerary(it domain.Itinerary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🗺 *%s*\n", EscapeMarkdown(it.Name))
	if it.Summary != "" {
		fmt.Fprintf(&b, "_%s_\n", EscapeMarkdown(it.Summary))
	}
	fmt.Fprintf(&b, "\n📅 %d days · 💰 %s\n", it.DurationDays, EscapeMarkdown(it.Budget))
	if it.Trip != nil && it.Trip.StartDate != "" {
		fmt.Fprintf(&b, "🗓 %s → %s\n", it.Trip.StartDate, it.Trip.EndDate)
	}
	if it.Hotel != nil && it.Hotel.Name != "" {
		fmt.Fprintf(&b, "🏨 %s", EscapeMarkdown(it.Hotel.Name))
		if it.Hotel.Rating > 0 {
			fmt.Fprintf(&b, " (%.1f★)", it.Hotel.Rating)
		}
		b.WriteString("\n")
	}
	if len(it.Highlights) > 0 {
		b.WriteString("\n*Highlights*\n")
		for _, h := range it.Highlights {
			fmt.Fprintf(&b, "• %s\n", EscapeMarkdown(h))
		}
	}
	for _, d := range it.Days {
		fmt.Fprintf(&b, "\n*%s*\n", EscapeMarkdown(d.Label))
		for _, s := range d.Stops {
			fmt.Fprintf(&b, "📍 %s", EscapeMarkdown(s.Name))
			if s.Duration != "" {
				fmt.Fprintf(&b, " · %s", EscapeMarkdown(s.Duration))
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatFlight(f domain.Flight) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✈️ *%s*\n", EscapeMarkdown(f.Title()))
	fmt.Fprintf(&b, "%s %s\n", EscapeMarkdown(f.Carrier), EscapeMarkdown(f.FlightNumber))
	fmt.Fprintf(&b, "🛫 %s %s\n", f.OriginIATA, EscapeMarkdown(f.DepartureTime))
	fmt.Fprintf(&b, "🛬 %s %s\n", f.DestinationIATA, EscapeMarkdown(f.ArrivalTime))
	stops := "with stops"
	if f.Direct {
		stops = "direct"
	}
	fmt.Fprintf(&b, "⏱ %s · %s\n", EscapeMarkdown(f.Duration), stops)
	fmt.Fprintf(&b, "💰 ₹%s", f.Price.StringFixed(0))
	return b.String()
}

func formatTransit(r domain.TransitRoute) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚌 *Route %d: %s*\n", r.RouteNo, EscapeMarkdown(r.Name))
	fmt.Fprintf(&b, "%s · ⏱ %s · 📏 %s\n", EscapeMarkdown(r.Type), EscapeMarkdown(r.Duration), EscapeMarkdown(r.Distance))
	for _, bus := range r.Buses {
		fmt.Fprintf(&b, "• %s: %s → %s (%s)\n",
			EscapeMarkdown(bus.Operator), EscapeMarkdown(bus.From), EscapeMarkdown(bus.To), EscapeMarkdown(bus.TripTime))
	}
	fmt.Fprintf(&b, "💰 %s", r.PriceLabel)
	return b.String()
}

func formatLodging(l domain.Lodging) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏨 *%s*\n", EscapeMarkdown(l.Name))
	if l.Address != "" {
		fmt.Fprintf(&b, "📍 %s\n", EscapeMarkdown(l.Address))
	}
	if l.Rating > 0 {
		fmt.Fprintf(&b, "⭐ %.1f\n", l.Rating)
	}
	if l.Price.IsPositive() {
		fmt.Fprintf(&b, "💰 ₹%s\n", l.Price.StringFixed(0))
	}
	if len(l.Amenities) > 0 {
		fmt.Fprintf(&b, "✨ %s\n", EscapeMarkdown(strings.Join(l.Amenities, ", ")))
	}
	if l.Description != "" {
		fmt.Fprintf(&b, "\n%s", EscapeMarkdown(l.Description))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatSummary renders the itinerary detail view.
func FormatSummary(s domain.ItinerarySummary) string {
	if s.Title == "" && len(s.Days) == 0 {
		return EscapeMarkdown(s.Text)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 *%s*\n", EscapeMarkdown(s.Title))
	if s.Duration != "" || s.Budget != "" {
		fmt.Fprintf(&b, "📅 %s · 💰 %s\n", EscapeMarkdown(s.Duration), EscapeMarkdown(s.Budget))
	}
	for _, d := range s.Days {
		fmt.Fprintf(&b, "\n*Day %s*\n", EscapeMarkdown(strings.TrimPrefix(strings.TrimPrefix(d.Day, "Day "), "day ")))
		for _, a := range d.Activities {
			fmt.Fprintf(&b, "• *%s*", EscapeMarkdown(a.Name))
			if a.TimeSpent != "" {
				fmt.Fprintf(&b, " (%s)", EscapeMarkdown(a.TimeSpent))
			}
			if a.Weather != "" {
				fmt.Fprintf(&b, " · %s", EscapeMarkdown(a.Weather))
			}
			b.WriteString("\n")
			if a.Description != "" {
				fmt.Fprintf(&b, "  %s\n", EscapeMarkdown(a.Description))
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
