package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/set-night/tripmind/internal/domain"
	"github.com/set-night/tripmind/internal/planner"
	"github.com/shopspring/decimal"
)

var errNoEnhancedData = errors.New("reply carries no enhanced data")

// enhancedPlan is an enhance reply item. Error and message are present
// when the service rejects the request.
type enhancedPlan struct {
	planner.Plan
	Error   string `json:"error"`
	Message string `json:"message"`
}

// decodeEnhancedPlan accepts either a list (first item wins) or an object.
func decodeEnhancedPlan(body []byte) (enhancedPlan, error) {
	body = bytes.TrimSpace(body)
	var plan enhancedPlan
	if len(body) > 0 && body[0] == '[' {
		var list []enhancedPlan
		if err := json.Unmarshal(body, &list); err != nil {
			return plan, fmt.Errorf("parse enhance reply: %w", err)
		}
		if len(list) == 0 {
			return plan, errNoEnhancedData
		}
		plan = list[0]
	} else if err := json.Unmarshal(body, &plan); err != nil {
		return plan, fmt.Errorf("parse enhance reply: %w", err)
	}
	if plan.Error != "" {
		return plan, &serviceRejection{detail: plan.Error}
	}
	if plan.TripDetails == nil && plan.Hotel == nil && plan.OptimizedRoutes == nil && plan.Itinerary == nil {
		if plan.Message != "" {
			return plan, &serviceRejection{detail: plan.Message}
		}
		return plan, errNoEnhancedData
	}
	return plan, nil
}

// mergeItinerary maps an enhanced plan onto the card, keeping the previous
// value of every field the reply leaves out.
func mergeItinerary(prev domain.Itinerary, p planner.Plan) domain.Itinerary {
	out := prev.Clone().(domain.Itinerary)

	var days []domain.DayPlan
	switch {
	case p.Itinerary != nil:
		days = itineraryDays(p.Itinerary)
	case p.OptimizedRoutes != nil:
		days = routeDays(p.OptimizedRoutes)
	}
	if len(days) > 0 {
		out.Days = days
		out.Highlights = highlights(days)
	}

	trip := tripDetails(p.TripDetails)
	if trip != nil {
		out.Trip = trip
		out.Name = firstNonEmpty(trip.ItineraryName, prev.Name)
		out.Summary = firstNonEmpty(trip.TripName, prev.Summary)
	}
	switch {
	case trip != nil && trip.DurationDays > 0:
		out.DurationDays = trip.DurationDays
	case len(days) > 0:
		out.DurationDays = len(days)
	}
	if h := hotel(p.Hotel); h != nil {
		out.Hotel = h
	}
	out.Budget = firstNonEmpty(prev.Budget, "Custom")
	return out
}

// mergeTransit maps enhanced_bus_data onto the card. The payload may be a
// display route, a raw route with "BUS n" legs, or {"routes": [...]}.
func mergeTransit(prev domain.TransitRoute, raw json.RawMessage) (domain.TransitRoute, error) {
	if planner.IsNull(raw) {
		return prev, errNoEnhancedData
	}
	var route planner.Object
	if err := json.Unmarshal(raw, &route); err != nil {
		return prev, fmt.Errorf("parse enhanced route: %w", err)
	}
	if routes, ok := route.Get("routes"); ok {
		var list []planner.Object
		if err := json.Unmarshal(routes, &list); err != nil {
			return prev, fmt.Errorf("parse enhanced routes: %w", err)
		}
		if len(list) == 0 {
			return prev, errNoEnhancedData
		}
		route = list[0]
	}

	out := prev.Clone().(domain.TransitRoute)
	out.Start = firstNonEmpty(route.String("start", "start_address"), prev.Start)
	out.Destination = firstNonEmpty(route.String("destination", "end_address"), prev.Destination)
	out.Duration = firstNonEmpty(route.String("time_for_trip", "duration"), prev.Duration)
	out.Type = firstNonEmpty(route.String("type", "bus_type"), prev.Type)
	out.Distance = firstNonEmpty(route.String("distance"), prev.Distance)
	out.Name = firstNonEmpty(route.String("routeName"), prev.Name)
	if out.Start != prev.Start || out.Destination != prev.Destination {
		out.Name = firstNonEmpty(route.String("routeName"), out.Start+" to "+out.Destination)
	}

	if buses := enhancedBuses(route, out); len(buses) > 0 {
		out.Buses = buses
	}
	if label := route.String("estimated_price"); label != "" {
		out.PriceLabel = label
		out.Price = labelPrice(label)
	}
	return out, nil
}

func enhancedBuses(route planner.Object, r domain.TransitRoute) []domain.Bus {
	if raw, ok := route.Get("buses"); ok {
		var list []planner.TransitBus
		if err := json.Unmarshal(raw, &list); err == nil {
			var out []domain.Bus
			for _, b := range list {
				bus := domain.Bus{Operator: b.Operator, From: b.From, To: b.To, TripTime: firstNonEmpty(b.TripTime, "N/A")}
				if !slices.Contains(out, bus) {
					out = append(out, bus)
				}
			}
			return out
		}
	}
	if _, ok := route.Get("BUS 1"); ok {
		return routeBuses(route, r.Start, r.Destination, r.Duration)
	}
	return nil
}

// mergeLodging overlays the fields a refined lodging actually carries.
func mergeLodging(prev domain.Lodging, next domain.Lodging) domain.Lodging {
	out := prev.Clone().(domain.Lodging)
	out.Name = firstNonEmpty(next.Name, prev.Name)
	out.Address = firstNonEmpty(next.Address, prev.Address)
	out.Website = firstNonEmpty(next.Website, prev.Website)
	out.MapLink = firstNonEmpty(next.MapLink, prev.MapLink)
	out.Description = firstNonEmpty(next.Description, prev.Description)
	if next.Rating > 0 {
		out.Rating = next.Rating
	}
	if next.Price.IsPositive() {
		out.Price = next.Price
	}
	if len(next.Amenities) > 0 {
		out.Amenities = slices.Clone(next.Amenities)
	}
	return out
}

func mergeFlight(prev domain.Flight, next domain.Flight) domain.Flight {
	out := prev
	out.ID = firstNonEmpty(next.ID, prev.ID)
	out.Carrier = firstNonEmpty(next.Carrier, prev.Carrier)
	out.FlightNumber = firstNonEmpty(next.FlightNumber, prev.FlightNumber)
	out.DepartureTime = firstNonEmpty(next.DepartureTime, prev.DepartureTime)
	out.ArrivalTime = firstNonEmpty(next.ArrivalTime, prev.ArrivalTime)
	out.OriginIATA = firstNonEmpty(next.OriginIATA, prev.OriginIATA)
	out.DestinationIATA = firstNonEmpty(next.DestinationIATA, prev.DestinationIATA)
	out.Duration = firstNonEmpty(next.Duration, prev.Duration)
	if next.Price.GreaterThan(decimal.Zero) {
		out.Price = next.Price
	}
	out.Direct = next.Direct
	return out
}

// serviceRejection is an enhancement the service answered but refused.
type serviceRejection struct {
	detail string
}

func (e *serviceRejection) Error() string {
	return e.detail
}
