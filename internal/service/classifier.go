package service

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strings"

	"github.com/set-night/tripmind/internal/domain"
	"github.com/set-night/tripmind/internal/planner"
	"github.com/shopspring/decimal"
)

const (
	responsePlans      = "plans"
	responseFlights    = "flights"
	responseBookings   = "bookings"
	responseAcomdation = "acomdation"
	responseError      = "error"

	noClearMessage = "⚠️ Sorry, I didn't get a clear message from the server."
	genericFailure = "Something went wrong. Please try again."
)

var quotaMarkers = []string{"429", "RESOURCE_EXHAUSTED", "Quota exceeded"}

// Classify turns a raw chat reply into exactly one Reply. It never fails:
// anything it cannot interpret degrades to ServiceError or PlainReply.
func Classify(raw *planner.RawReply, jitter Jitter) domain.Classified {
	var reply planner.ChatReply
	parseErr := decodeReply(raw, &reply)

	errText := ""
	if parseErr == nil {
		errText = reply.ErrorText()
	}

	if raw.Status == http.StatusTooManyRequests || hasQuotaMarker(errText) ||
		(parseErr != nil && hasQuotaMarker(string(raw.Body))) {
		return domain.Classified{Reply: domain.QuotaExceeded{Detail: firstNonEmpty(errText, string(raw.Body))}}
	}

	if parseErr != nil {
		return domain.Classified{Reply: domain.ServiceError{Detail: parseErr.Error()}}
	}

	if errText != "" || !raw.OK() || reply.ResponseType == responseError {
		return domain.Classified{Reply: domain.ServiceError{Detail: firstNonEmpty(errText, reply.Message, genericFailure)}}
	}

	out := domain.Classified{
		SessionID: reply.ConversationID,
		FollowUps: decodeQuestions(reply.FollowUpQuestions),
	}

	if reply.Clarify() && strings.TrimSpace(reply.ClarifyQuestion) != "" {
		out.Reply = domain.ClarifyReply{Question: reply.ClarifyQuestion}
		return out
	}

	var (
		kind    domain.CardKind
		entries []domain.Entry
	)
	switch reply.ResponseType {
	case responsePlans:
		kind, entries = domain.KindItinerary, itineraryEntries(reply.Plans)
	case responseFlights:
		kind, entries = domain.KindFlight, flightEntries(reply.FlightOptions)
	case responseBookings:
		kind, entries = domain.KindTransit, transitEntries(reply.TravelBookings, jitter)
	case responseAcomdation, "accommodation":
		kind, entries = domain.KindLodging, lodgingEntries(reply.Acomdation)
	}
	if len(entries) > 0 {
		out.Reply = domain.SetReply{Kind: kind, Entries: entries, Text: reply.Message}
		return out
	}

	out.Reply = domain.PlainReply{Text: firstNonEmpty(reply.Message, noClearMessage)}
	return out
}

func decodeReply(raw *planner.RawReply, reply *planner.ChatReply) error {
	if raw.ContentType != "" && !raw.JSON() {
		return fmt.Errorf("non-JSON response from server (status %d): %s", raw.Status, clip(string(raw.Body), 500))
	}
	if err := json.Unmarshal(raw.Body, reply); err != nil {
		return fmt.Errorf("unparseable response from server (status %d): %s", raw.Status, clip(string(raw.Body), 500))
	}
	return nil
}

func hasQuotaMarker(s string) bool {
	for _, m := range quotaMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func decodeQuestions(raw json.RawMessage) []string {
	if planner.IsNull(raw) {
		return nil
	}
	var qs []string
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil
	}
	return qs
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// SummaryLine is the assistant text that introduces a card set.
func SummaryLine(kind domain.CardKind, n int) string {
	switch kind {
	case domain.KindItinerary:
		return fmt.Sprintf("📋 Here are %d %s for you:", n, kind.Label())
	case domain.KindFlight:
		return fmt.Sprintf("✈️ Here are %d %s for you:", n, kind.Label())
	case domain.KindTransit:
		// no "for you" on bus routes
		return fmt.Sprintf("🚌 Here are %d %s:", n, kind.Label())
	case domain.KindLodging:
		return fmt.Sprintf("🏨 Here are %d %s for you:", n, kind.Label())
	default:
		return fmt.Sprintf("Here are %d %s for you:", n, kind.Label())
	}
}

func itineraryEntries(raw json.RawMessage) []domain.Entry {
	if planner.IsNull(raw) {
		return nil
	}
	var plans []planner.Plan
	if err := json.Unmarshal(raw, &plans); err != nil {
		return nil
	}
	var out []domain.Entry
	for _, p := range plans {
		if p.OptimizedRoutes == nil {
			continue
		}
		out = append(out, newItinerary(len(out), p))
	}
	return out
}

func newItinerary(index int, p planner.Plan) domain.Itinerary {
	days := routeDays(p.OptimizedRoutes)
	trip := tripDetails(p.TripDetails)

	it := domain.Itinerary{
		Budget: "Custom",
		Days:   days,
		Trip:   trip,
		Hotel:  hotel(p.Hotel),
	}
	dest := "Trip"
	if trip != nil {
		it.Name = trip.ItineraryName
		it.DurationDays = trip.DurationDays
		it.Summary = trip.TripName
		dest = firstNonEmpty(trip.Destination, dest)
	}
	if it.Name == "" {
		it.Name = fmt.Sprintf("Plan %d: %s", index+1, dest)
	}
	if it.DurationDays == 0 {
		it.DurationDays = len(days)
	}
	if it.Summary == "" {
		it.Summary = "Generated Custom Trip Plan"
	}
	it.Highlights = highlights(days)
	return it
}

// routeDays maps optimized_routes to day plans ordered by day number.
func routeDays(routes planner.Object) []domain.DayPlan {
	days := make([]domain.DayPlan, 0, len(routes))
	for _, f := range routes {
		var r planner.OptimizedRoute
		if err := json.Unmarshal(f.Value, &r); err != nil {
			days = append(days, domain.DayPlan{Label: f.Key})
			continue
		}
		days = append(days, domain.DayPlan{Label: f.Key, Stops: stops(r.OptimizedOrder), Polyline: r.Polyline})
	}
	sortDays(days)
	return days
}

// itineraryDays maps the enhance reply's day → spots object.
func itineraryDays(itinerary planner.Object) []domain.DayPlan {
	days := make([]domain.DayPlan, 0, len(itinerary))
	for _, f := range itinerary {
		var spots []planner.Spot
		if err := json.Unmarshal(f.Value, &spots); err != nil {
			days = append(days, domain.DayPlan{Label: f.Key})
			continue
		}
		days = append(days, domain.DayPlan{Label: f.Key, Stops: stops(spots)})
	}
	sortDays(days)
	return days
}

func sortDays(days []domain.DayPlan) {
	slices.SortStableFunc(days, func(a, b domain.DayPlan) int {
		return cmp.Compare(firstNumber(a.Label, math.MaxInt), firstNumber(b.Label, math.MaxInt))
	})
}

func stops(spots []planner.Spot) []domain.Stop {
	out := make([]domain.Stop, 0, len(spots))
	for _, s := range spots {
		out = append(out, domain.Stop{
			Name:        s.SpotName,
			Lat:         float64(s.Lat),
			Lng:         float64(s.Long),
			Description: plainText(s.Description),
			Duration:    string(s.EstimatedTimeSpent),
			Weather:     s.Weather,
		})
	}
	return out
}

func highlights(days []domain.DayPlan) []string {
	out := make([]string, 0, 4)
	for _, d := range days {
		if len(out) == 4 {
			break
		}
		if len(d.Stops) > 0 {
			out = append(out, d.Label+": "+d.Stops[0].Name)
		} else {
			out = append(out, d.Label)
		}
	}
	return out
}

func tripDetails(t *planner.TripDetails) *domain.TripDetails {
	if t == nil {
		return nil
	}
	return &domain.TripDetails{
		TripName:      t.TripName,
		ItineraryName: t.ItineraryName,
		StartDate:     t.StartDate,
		EndDate:       t.EndDate,
		DurationDays:  int(t.DurationDays),
		Destination:   t.Destination,
	}
}

func hotel(h *planner.Hotel) *domain.Hotel {
	if h == nil {
		return nil
	}
	return &domain.Hotel{
		Name:    h.Name,
		Lat:     float64(h.Lat),
		Lng:     float64(h.Lng),
		Rating:  float64(h.Rating),
		Types:   slices.Clone(h.Types),
		OpenNow: h.OpenNow,
	}
}

func flightEntries(raw json.RawMessage) []domain.Entry {
	if planner.IsNull(raw) {
		return nil
	}
	var options []planner.FlightOption
	if err := json.Unmarshal(raw, &options); err != nil {
		return nil
	}
	flights := make([]domain.Flight, 0, len(options))
	for _, o := range options {
		flights = append(flights, newFlight(o))
	}
	slices.SortStableFunc(flights, func(a, b domain.Flight) int {
		return cmp.Compare(durationMinutes(a.Duration), durationMinutes(b.Duration))
	})
	out := make([]domain.Entry, len(flights))
	for i, f := range flights {
		out[i] = f
	}
	return out
}

func newFlight(o planner.FlightOption) domain.Flight {
	return domain.Flight{
		ID:              string(o.ID),
		Carrier:         o.Carrier,
		FlightNumber:    string(o.FlightNumber),
		DepartureTime:   o.DepartureTime,
		ArrivalTime:     o.ArrivalTime,
		OriginIATA:      o.OriginIATA,
		DestinationIATA: o.DestinationIATA,
		Duration:        o.Duration,
		Price:           decimal.NewFromFloat(float64(o.PriceINR)),
		Direct:          o.IsDirect,
	}
}

func lodgingEntries(raw json.RawMessage) []domain.Entry {
	if planner.IsNull(raw) {
		return nil
	}
	var items []planner.Lodging
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]domain.Entry, 0, len(items))
	for _, l := range items {
		out = append(out, newLodging(l))
	}
	return out
}

func newLodging(l planner.Lodging) domain.Lodging {
	return domain.Lodging{
		Name:        l.Name,
		Address:     l.Address,
		Rating:      float64(l.Rating),
		Website:     l.Website,
		MapLink:     l.MapLink,
		Description: plainText(l.Description),
		Price:       decimal.NewFromFloat(float64(l.Price)),
		Amenities:   slices.Clone(l.Amenities),
	}
}
