package telegram

import (
	"testing"

	"github.com/set-night/tripmind/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatCard_Flight(t *testing.T) {
	got := FormatCard(domain.Flight{
		Carrier:         "IndiGo",
		FlightNumber:    "6E 201",
		OriginIATA:      "BLR",
		DestinationIATA: "GOI",
		DepartureTime:   "06:00",
		ArrivalTime:     "07:15",
		Duration:        "1h 15m",
		Price:           decimal.NewFromInt(4500),
		Direct:          true,
	})
	assert.Equal(t, "✈️ *Flight to GOI*\nIndiGo 6E 201\n🛫 BLR 06:00\n🛬 GOI 07:15\n⏱ 1h 15m · direct\n💰 ₹4500", got)
}

func TestFormatCard_Itinerary(t *testing.T) {
	got := FormatCard(domain.Itinerary{
		Name:         "Goa_Escape",
		DurationDays: 3,
		Budget:       "Moderate",
		Summary:      "Beaches and forts",
		Highlights:   []string{"Day 1: Beach"},
		Days:         []domain.DayPlan{{Label: "Day 1", Stops: []domain.Stop{{Name: "Baga Beach", Duration: "2h"}}}},
		Trip:         &domain.TripDetails{StartDate: "2025-03-14", EndDate: "2025-03-16"},
		Hotel:        &domain.Hotel{Name: "Sea View", Rating: 4.5},
	})
	assert.Contains(t, got, `🗺 *Goa\_Escape*`)
	assert.Contains(t, got, "_Beaches and forts_")
	assert.Contains(t, got, "📅 3 days · 💰 Moderate")
	assert.Contains(t, got, "🗓 2025-03-14 → 2025-03-16")
	assert.Contains(t, got, "🏨 Sea View (4.5★)")
	assert.Contains(t, got, "• Day 1: Beach")
	assert.Contains(t, got, "📍 Baga Beach · 2h")
	assert.NotContains(t, got, "\n\n\n")
}

func TestFormatCard_Transit(t *testing.T) {
	got := FormatCard(domain.TransitRoute{
		RouteNo:    2,
		Name:       "Pune to Goa",
		Type:       "Bus Route",
		Duration:   "10h",
		Distance:   "450 km",
		Buses:      []domain.Bus{{Operator: "VRL", From: "Pune", To: "Goa", TripTime: "10h"}},
		PriceLabel: "₹600",
	})
	assert.Contains(t, got, "🚌 *Route 2: Pune to Goa*")
	assert.Contains(t, got, "• VRL: Pune → Goa (10h)")
	assert.Contains(t, got, "💰 ₹600")
}

func TestFormatCard_Lodging(t *testing.T) {
	got := FormatCard(domain.Lodging{
		Name:      "Sea_View",
		Address:   "Calangute",
		Rating:    4.2,
		Amenities: []string{"wifi", "pool"},
	})
	assert.Equal(t, "🏨 *Sea\\_View*\n📍 Calangute\n⭐ 4.2\n✨ wifi, pool", got)
}

func TestFormatSummary(t *testing.T) {
	assert.Equal(t, `just \*text\*`, FormatSummary(domain.ItinerarySummary{Text: "just *text*"}))

	got := FormatSummary(domain.ItinerarySummary{
		Title:    "Goa Escape",
		Duration: "3 days",
		Budget:   "Moderate",
		Days: []domain.SummaryDay{{
			Day:        "Day 1",
			Activities: []domain.SummaryActivity{{Name: "Fort", TimeSpent: "1h", Weather: "Sunny", Description: "Old fort"}},
		}},
	})
	assert.Equal(t, "📋 *Goa Escape*\n📅 3 days · 💰 Moderate\n\n*Day 1*\n• *Fort* (1h) · Sunny\n  Old fort", got)
}
