package service

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/set-night/tripmind/internal/config"
	"github.com/set-night/tripmind/internal/domain"
	"github.com/set-night/tripmind/internal/planner"
	"github.com/shopspring/decimal"
)

const (
	routeArrow       = " → "
	transferPoint    = "Transfer Point"
	defaultTripTime  = "8 hours"
	minTransitPrice  = 300
	baseTransitPrice = 400
)

// Jitter returns the random perturbation added to a fallback transit price.
type Jitter func() int64

// DefaultJitter draws uniformly from [-30, 29].
func DefaultJitter() int64 {
	return rand.Int64N(60) - 30
}

// transitEntries flattens travel_bookings into route cards. The field may be
// an object or a JSON string holding one.
func transitEntries(raw json.RawMessage, jitter Jitter) []domain.Entry {
	if planner.IsNull(raw) {
		return nil
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}
	var routes planner.Object
	if err := json.Unmarshal(raw, &routes); err != nil {
		return nil
	}
	out := make([]domain.Entry, 0, len(routes))
	for i, f := range routes {
		var route planner.Object
		if err := json.Unmarshal(f.Value, &route); err != nil {
			return nil
		}
		out = append(out, transitRoute(i, route, jitter))
	}
	return out
}

func transitRoute(index int, route planner.Object, jitter Jitter) domain.TransitRoute {
	start := route.String("start")
	dest := route.String("destination")
	tripTime := route.String("time_for_trip")

	buses := routeBuses(route, start, dest, tripTime)
	duration := firstNonEmpty(tripTime, defaultTripTime)
	price := fallbackPrice(index, duration, buses, jitter)

	return domain.TransitRoute{
		RouteNo:     index + 1,
		Name:        start + " to " + dest,
		Type:        firstNonEmpty(route.String("type"), "Bus Route"),
		Start:       start,
		Destination: dest,
		Distance:    "N/A",
		Duration:    duration,
		Buses:       buses,
		Price:       decimal.NewFromInt(price),
		PriceLabel:  priceLabel(price),
	}
}

// routeBuses collects "BUS 1", "BUS 2", ... until the first gap.
func routeBuses(route planner.Object, start, dest, tripTime string) []domain.Bus {
	var buses []domain.Bus
	for n := 1; ; n++ {
		raw, ok := route.Get(fmt.Sprintf("BUS %d", n))
		if !ok {
			break
		}
		var b planner.Bus
		_ = json.Unmarshal(raw, &b)

		from, to := splitRoute(b.Route)
		if from == "" {
			from = transferPoint
			if n == 1 {
				from = start
			}
		}
		if to == "" {
			to = transferPoint
			if n == 1 {
				to = dest
			}
		}
		bus := domain.Bus{
			Operator: firstNonEmpty(b.Name, fmt.Sprintf("Bus %d", n)),
			From:     from,
			To:       to,
			TripTime: firstNonEmpty(string(b.BusTripTime), "N/A"),
		}
		if !slices.Contains(buses, bus) {
			buses = append(buses, bus)
		}
	}
	if len(buses) == 0 {
		buses = append(buses, domain.Bus{
			Operator: "Bus Service",
			From:     start,
			To:       dest,
			TripTime: firstNonEmpty(tripTime, "N/A"),
		})
	}
	return buses
}

func splitRoute(route string) (string, string) {
	if route == "" {
		return "", ""
	}
	parts := strings.Split(route, routeArrow)
	from := strings.TrimSpace(parts[0])
	to := ""
	if len(parts) > 1 {
		to = strings.TrimSpace(parts[1])
	}
	return from, to
}

// fallbackPrice estimates a fare from trip length, transfers, route position,
// operator tier and a small random perturbation, rounded to tens.
func fallbackPrice(index int, duration string, buses []domain.Bus, jitter Jitter) int64 {
	price := int64(baseTransitPrice)
	price += int64(firstNumber(duration, 8)) * 12
	price -= max(0, int64(len(buses)-1)*25)
	if index < len(config.RouteVariation) {
		price += config.RouteVariation[index]
	}
	if hasPremiumOperator(buses) {
		price += 100
	}
	if jitter != nil {
		price += jitter()
	}
	rounded := int64(math.Floor(float64(price)/10+0.5)) * 10
	return max(minTransitPrice, rounded)
}

func hasPremiumOperator(buses []domain.Bus) bool {
	for _, b := range buses {
		for _, p := range config.PremiumOperators {
			if strings.Contains(b.Operator, p) {
				return true
			}
		}
	}
	return false
}

func priceLabel(price int64) string {
	return fmt.Sprintf("₹%d", price)
}
