package domain

import (
	"slices"

	"github.com/shopspring/decimal"
)

type CardKind string

const (
	KindItinerary CardKind = "itinerary"
	KindFlight    CardKind = "flight"
	KindTransit   CardKind = "transit"
	KindLodging   CardKind = "lodging"
)

// Label is the plural noun used in summary lines.
func (k CardKind) Label() string {
	switch k {
	case KindItinerary:
		return "itinerary options"
	case KindFlight:
		return "flight options"
	case KindTransit:
		return "bus route options"
	case KindLodging:
		return "accommodation options"
	default:
		return "options"
	}
}

// Entry is one card of a Cards set. Implementations are value types.
type Entry interface {
	Kind() CardKind
	Title() string
	Clone() Entry
}

// Cards is the ordered set of entries attached to a message. All entries share Kind.
type Cards struct {
	Kind    CardKind
	Entries []Entry
}

func (c Cards) Clone() Cards {
	out := Cards{Kind: c.Kind, Entries: make([]Entry, len(c.Entries))}
	for i, e := range c.Entries {
		out.Entries[i] = e.Clone()
	}
	return out
}

// Stop is one place visited on an itinerary day.
type Stop struct {
	Name        string
	Lat         float64
	Lng         float64
	Description string
	Duration    string
	Weather     string
}

type DayPlan struct {
	Label    string
	Stops    []Stop
	Polyline string
}

type TripDetails struct {
	TripName      string
	ItineraryName string
	StartDate     string
	EndDate       string
	DurationDays  int
	Destination   string
}

type Hotel struct {
	Name    string
	Lat     float64
	Lng     float64
	Rating  float64
	Types   []string
	OpenNow bool
}

type Itinerary struct {
	Name         string
	DurationDays int
	Budget       string
	Summary      string
	Highlights   []string
	Days         []DayPlan
	Trip         *TripDetails
	Hotel        *Hotel
}

func (Itinerary) Kind() CardKind  { return KindItinerary }
func (i Itinerary) Title() string { return i.Name }

func (i Itinerary) Clone() Entry {
	out := i
	out.Highlights = slices.Clone(i.Highlights)
	if i.Days != nil {
		out.Days = make([]DayPlan, len(i.Days))
		for d, day := range i.Days {
			out.Days[d] = DayPlan{Label: day.Label, Stops: slices.Clone(day.Stops), Polyline: day.Polyline}
		}
	}
	if i.Trip != nil {
		t := *i.Trip
		out.Trip = &t
	}
	if i.Hotel != nil {
		h := *i.Hotel
		h.Types = slices.Clone(i.Hotel.Types)
		out.Hotel = &h
	}
	return out
}

type Flight struct {
	ID              string
	Carrier         string
	FlightNumber    string
	DepartureTime   string
	ArrivalTime     string
	OriginIATA      string
	DestinationIATA string
	Duration        string
	Price           decimal.Decimal
	Direct          bool
}

func (Flight) Kind() CardKind { return KindFlight }

func (f Flight) Title() string {
	if f.DestinationIATA != "" {
		return "Flight to " + f.DestinationIATA
	}
	return f.Carrier + " " + f.FlightNumber
}

func (f Flight) Clone() Entry { return f }

// Bus is one leg of a transit route.
type Bus struct {
	Operator string
	From     string
	To       string
	TripTime string
}

type TransitRoute struct {
	RouteNo     int
	Name        string
	Type        string
	Start       string
	Destination string
	Distance    string
	Duration    string
	Buses       []Bus
	Price       decimal.Decimal
	PriceLabel  string
}

func (TransitRoute) Kind() CardKind  { return KindTransit }
func (r TransitRoute) Title() string { return r.Name }

func (r TransitRoute) Clone() Entry {
	out := r
	out.Buses = slices.Clone(r.Buses)
	return out
}

type Lodging struct {
	Name        string
	Address     string
	Rating      float64
	Website     string
	MapLink     string
	Description string
	Price       decimal.Decimal
	Amenities   []string
}

func (Lodging) Kind() CardKind  { return KindLodging }
func (l Lodging) Title() string { return l.Name }

func (l Lodging) Clone() Entry {
	out := l
	out.Amenities = slices.Clone(l.Amenities)
	return out
}

// ItinerarySummary is the read-only detail view of an itinerary card.
type ItinerarySummary struct {
	Title    string
	Duration string
	Budget   string
	Days     []SummaryDay
	// Text holds the raw summary when the service did not return structured data.
	Text string
}

type SummaryDay struct {
	Day        string
	Activities []SummaryActivity
}

type SummaryActivity struct {
	Name        string
	Description string
	TimeSpent   string
	Weather     string
}
