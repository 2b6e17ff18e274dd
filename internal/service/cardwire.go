package service

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/set-night/tripmind/internal/domain"
	"github.com/set-night/tripmind/internal/planner"
	"github.com/shopspring/decimal"
)

// Stored card type tags, as the history store and finalize route know them.
const (
	storedItinerary     = "itinerary"
	storedFlight        = "flight"
	storedBus           = "bus"
	storedAccommodation = "accommodation"
)

// itineraryWire is the display shape of an itinerary card.
type itineraryWire struct {
	Title           string                            `json:"title"`
	Duration        string                            `json:"duration"`
	DurationDays    int                               `json:"durationDays"`
	TotalDays       int                               `json:"totalDays"`
	Budget          string                            `json:"budget"`
	ShortDesc       string                            `json:"short_desc"`
	Highlights      []string                          `json:"highlights"`
	OptimizedRoutes map[string]planner.OptimizedRoute `json:"optimized_routes"`
	TripDetails     *planner.TripDetails              `json:"trip_details,omitempty"`
	Hotel           *planner.Hotel                    `json:"hotel,omitempty"`
}

type lodgingWire struct {
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Rating      float64  `json:"rating"`
	Website     string   `json:"website"`
	MapLink     string   `json:"mapLink"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price,omitempty"`
	Amenities   []string `json:"amenities,omitempty"`
}

// cardPayload encodes an entry in the display shape the service accepts as
// plan data.
func cardPayload(e domain.Entry) any {
	switch v := e.(type) {
	case domain.Itinerary:
		return itineraryPayload(v)
	case domain.Flight:
		return flightPayload(v)
	case domain.TransitRoute:
		return transitPayload(v)
	case domain.Lodging:
		return lodgingWire{
			Name:        v.Name,
			Address:     v.Address,
			Rating:      v.Rating,
			Website:     v.Website,
			MapLink:     v.MapLink,
			Description: v.Description,
			Price:       v.Price.InexactFloat64(),
			Amenities:   v.Amenities,
		}
	default:
		return nil
	}
}

func itineraryPayload(it domain.Itinerary) itineraryWire {
	w := itineraryWire{
		Title:           it.Name,
		Duration:        fmt.Sprintf("%d Days", it.DurationDays),
		DurationDays:    it.DurationDays,
		TotalDays:       it.DurationDays,
		Budget:          it.Budget,
		ShortDesc:       it.Summary,
		Highlights:      it.Highlights,
		OptimizedRoutes: make(map[string]planner.OptimizedRoute, len(it.Days)),
	}
	for _, d := range it.Days {
		w.OptimizedRoutes[d.Label] = planner.OptimizedRoute{OptimizedOrder: spotsWire(d.Stops), Polyline: d.Polyline}
	}
	if it.Trip != nil {
		t := tripWire(*it.Trip)
		w.TripDetails = &t
	}
	w.Hotel = hotelWire(it.Hotel)
	return w
}

func spotsWire(stops []domain.Stop) []planner.Spot {
	out := make([]planner.Spot, 0, len(stops))
	for _, s := range stops {
		out = append(out, planner.Spot{
			SpotName:           s.Name,
			Lat:                planner.Number(s.Lat),
			Long:               planner.Number(s.Lng),
			Description:        s.Description,
			EstimatedTimeSpent: planner.Text(s.Duration),
			Weather:            s.Weather,
		})
	}
	return out
}

func tripWire(t domain.TripDetails) planner.TripDetails {
	return planner.TripDetails{
		TripName:      t.TripName,
		ItineraryName: t.ItineraryName,
		StartDate:     t.StartDate,
		EndDate:       t.EndDate,
		DurationDays:  planner.Number(t.DurationDays),
		Destination:   t.Destination,
	}
}

func hotelWire(h *domain.Hotel) *planner.Hotel {
	if h == nil {
		return nil
	}
	return &planner.Hotel{
		Name:    h.Name,
		Lat:     planner.Number(h.Lat),
		Lng:     planner.Number(h.Lng),
		Rating:  planner.Number(h.Rating),
		Types:   slices.Clone(h.Types),
		OpenNow: h.OpenNow,
	}
}

func flightPayload(f domain.Flight) planner.FlightOption {
	return planner.FlightOption{
		ID:              planner.Text(f.ID),
		Carrier:         f.Carrier,
		FlightNumber:    planner.Text(f.FlightNumber),
		DepartureTime:   f.DepartureTime,
		ArrivalTime:     f.ArrivalTime,
		OriginIATA:      f.OriginIATA,
		DestinationIATA: f.DestinationIATA,
		Duration:        f.Duration,
		PriceINR:        planner.Number(f.Price.InexactFloat64()),
		IsDirect:        f.Direct,
	}
}

func transitPayload(r domain.TransitRoute) planner.TransitRoute {
	w := planner.TransitRoute{
		RouteNo:        r.RouteNo,
		BusType:        r.Type,
		StartAddress:   r.Start,
		EndAddress:     r.Destination,
		Distance:       r.Distance,
		Duration:       r.Duration,
		EstimatedPrice: r.PriceLabel,
		RouteName:      r.Name,
		Start:          r.Start,
		Destination:    r.Destination,
		TimeForTrip:    r.Duration,
		Type:           r.Type,
	}
	for _, b := range r.Buses {
		w.Buses = append(w.Buses, planner.TransitBus{Operator: b.Operator, From: b.From, To: b.To, TripTime: b.TripTime})
	}
	return w
}

// decodeStoredCards rebuilds Cards from a history envelope.
func decodeStoredCards(raw json.RawMessage) (*domain.Cards, error) {
	if planner.IsNull(raw) {
		return nil, nil
	}
	var env planner.StoredCards
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode card envelope: %w", err)
	}

	var (
		kind    domain.CardKind
		entries []domain.Entry
	)
	switch strings.ToLower(env.Type) {
	case storedItinerary:
		var items []planner.StoredItinerary
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return nil, fmt.Errorf("decode itinerary cards: %w", err)
		}
		kind = domain.KindItinerary
		for _, it := range items {
			entries = append(entries, storedItineraryEntry(it))
		}
	case storedFlight, "flights":
		var items []planner.FlightOption
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return nil, fmt.Errorf("decode flight cards: %w", err)
		}
		kind = domain.KindFlight
		for _, f := range items {
			entries = append(entries, newFlight(f))
		}
	case storedBus, "transit":
		var items []planner.TransitRoute
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return nil, fmt.Errorf("decode bus cards: %w", err)
		}
		kind = domain.KindTransit
		for i, r := range items {
			entries = append(entries, storedTransitEntry(i, r))
		}
	case storedAccommodation, "lodging":
		var items []planner.Lodging
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return nil, fmt.Errorf("decode accommodation cards: %w", err)
		}
		kind = domain.KindLodging
		for _, l := range items {
			entries = append(entries, newLodging(l))
		}
	default:
		return nil, fmt.Errorf("unknown card type %q", env.Type)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &domain.Cards{Kind: kind, Entries: entries}, nil
}

func storedItineraryEntry(s planner.StoredItinerary) domain.Itinerary {
	days := routeDays(s.OptimizedRoutes)
	it := domain.Itinerary{
		Name:         s.Title,
		DurationDays: int(s.DurationDays),
		Budget:       firstNonEmpty(s.Budget, "Custom"),
		Summary:      s.ShortDesc,
		Highlights:   slices.Clone(s.Highlights),
		Days:         days,
		Trip:         tripDetails(s.TripDetails),
		Hotel:        hotel(s.Hotel),
	}
	if it.DurationDays == 0 {
		it.DurationDays = firstNumber(string(s.Duration), len(days))
	}
	if len(it.Highlights) == 0 {
		it.Highlights = highlights(days)
	}
	return it
}

func storedTransitEntry(index int, r planner.TransitRoute) domain.TransitRoute {
	out := domain.TransitRoute{
		RouteNo:     r.RouteNo,
		Name:        firstNonEmpty(r.RouteName, r.Start+" to "+r.Destination),
		Type:        firstNonEmpty(r.Type, r.BusType, "Bus Route"),
		Start:       firstNonEmpty(r.Start, r.StartAddress),
		Destination: firstNonEmpty(r.Destination, r.EndAddress),
		Distance:    firstNonEmpty(r.Distance, "N/A"),
		Duration:    firstNonEmpty(r.Duration, r.TimeForTrip, defaultTripTime),
		PriceLabel:  r.EstimatedPrice,
		Price:       labelPrice(r.EstimatedPrice),
	}
	if out.RouteNo == 0 {
		out.RouteNo = index + 1
	}
	for _, b := range r.Buses {
		out.Buses = append(out.Buses, domain.Bus{Operator: b.Operator, From: b.From, To: b.To, TripTime: b.TripTime})
	}
	return out
}

// labelPrice reads the amount out of a label like "₹620".
func labelPrice(label string) decimal.Decimal {
	return decimal.NewFromInt(int64(firstNumber(label, 0)))
}
