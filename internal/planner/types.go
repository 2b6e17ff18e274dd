package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RawReply is an undecoded planning-service reply. Classification happens
// elsewhere; the client only reports transport failures as errors.
type RawReply struct {
	Status      int
	ContentType string
	Body        []byte
}

// OK reports a 2xx status.
func (r *RawReply) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// JSON reports whether the reply declares a JSON body.
func (r *RawReply) JSON() bool {
	return strings.Contains(r.ContentType, "application/json")
}

type ChatRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
	RunID          string `json:"run_id"`
}

type ChatReply struct {
	ResponseType          string          `json:"response_type"`
	Message               string          `json:"message"`
	ConversationID        string          `json:"conversation_id"`
	FollowUpQuestions     json.RawMessage `json:"follow_up_questions"`
	ClarifyQuestionStatus json.RawMessage `json:"clarify_question_status"`
	ClarifyQuestion       string          `json:"clarify_question"`
	Plans                 json.RawMessage `json:"plans"`
	FlightOptions         json.RawMessage `json:"flight_options"`
	Acomdation            json.RawMessage `json:"acomdation"`
	TravelBookings        json.RawMessage `json:"travel_bookings"`
	Error                 json.RawMessage `json:"error"`
}

// ErrorText returns the error field as text, or "" when absent.
func (r *ChatReply) ErrorText() string {
	if isNull(r.Error) {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Error, &s); err == nil {
		return s
	}
	return string(r.Error)
}

// Clarify reports a truthy clarify_question_status.
func (r *ChatReply) Clarify() bool {
	if isNull(r.ClarifyQuestionStatus) {
		return false
	}
	var v any
	if err := json.Unmarshal(r.ClarifyQuestionStatus, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != "" && t != "false" && t != "0"
	default:
		return v != nil
	}
}

type Spot struct {
	SpotName           string `json:"spot_name"`
	Lat                Number `json:"lat"`
	Long               Number `json:"long"`
	Description        string `json:"description"`
	EstimatedTimeSpent Text   `json:"estimated_time_spent"`
	Weather            string `json:"weather"`
}

type OptimizedRoute struct {
	OptimizedOrder []Spot `json:"optimized_order"`
	Polyline       string `json:"polyline"`
}

type TripDetails struct {
	TripName      string `json:"trip_name"`
	ItineraryName string `json:"itinerary_name"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	DurationDays  Number `json:"duration_days"`
	Destination   string `json:"destination"`
}

type Hotel struct {
	Name    string   `json:"name"`
	Lat     Number   `json:"lat"`
	Lng     Number   `json:"lng"`
	Rating  Number   `json:"rating"`
	Types   []string `json:"types"`
	OpenNow bool     `json:"open_now"`
}

// Plan is one entry of the "plans" list and the body of an enhance reply.
// Day keyed objects keep their wire order.
type Plan struct {
	TripDetails     *TripDetails `json:"trip_details"`
	Hotel           *Hotel       `json:"hotel"`
	OptimizedRoutes Object       `json:"optimized_routes"`
	Itinerary       Object       `json:"itinerary"`
}

type FlightOption struct {
	ID              Text   `json:"id"`
	Carrier         string `json:"carrier"`
	FlightNumber    Text   `json:"flight_number"`
	DepartureTime   string `json:"departure_time"`
	ArrivalTime     string `json:"arrival_time"`
	OriginIATA      string `json:"origin_iata"`
	DestinationIATA string `json:"destination_iata"`
	Duration        string `json:"duration"`
	PriceINR        Number `json:"price_inr"`
	IsDirect        bool   `json:"is_direct"`
}

// Lodging accepts both the capitalised keys the chat route emits and the
// lowercase keys used by stored cards.
type Lodging struct {
	Name        string
	Address     string
	Rating      Number
	Website     string
	MapLink     string
	Description string
	Price       Number
	Amenities   []string
}

func (l *Lodging) UnmarshalJSON(data []byte) error {
	var obj Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	l.Name = obj.String("Name", "name")
	l.Address = obj.String("Address", "address")
	l.Website = obj.String("Website", "website")
	l.MapLink = obj.String("Google Maps Link", "mapLink", "google_maps_link")
	l.Description = obj.String("Description", "description")
	l.Rating = obj.Number("Rating", "rating")
	l.Price = obj.Number("Price", "price")
	if raw, ok := obj.Get("amenities"); ok {
		_ = json.Unmarshal(raw, &l.Amenities)
	}
	return nil
}

type Bus struct {
	Name        string `json:"name"`
	Route       string `json:"route"`
	BusTripTime Text   `json:"bus_trip_time"`
}

type FollowUpRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

type PlanDetails struct {
	TripDetails     TripDetails               `json:"trip_details"`
	Hotel           *Hotel                    `json:"hotel"`
	OptimizedRoutes map[string]OptimizedRoute `json:"optimized_routes"`
	Itinerary       map[string][]Spot         `json:"itinerary"`
}

type EnhanceRequest struct {
	PlanDetails PlanDetails `json:"plan_details"`
	QueryEN     string      `json:"query_en"`
	UserEnhance string      `json:"user_enhance"`
	CardIndex   int         `json:"card_index"`
}

// TransitRoute is the display shape of a transit card as exchanged with the
// bus enhancement route and stored in conversation history.
type TransitRoute struct {
	RouteNo        int          `json:"route_no"`
	BusType        string       `json:"bus_type"`
	StartAddress   string       `json:"start_address"`
	EndAddress     string       `json:"end_address"`
	Distance       string       `json:"distance"`
	Duration       string       `json:"duration"`
	EstimatedPrice string       `json:"estimated_price"`
	RouteName      string       `json:"routeName"`
	Start          string       `json:"start"`
	Destination    string       `json:"destination"`
	TimeForTrip    string       `json:"time_for_trip"`
	Type           string       `json:"type"`
	Buses          []TransitBus `json:"buses"`
}

type TransitBus struct {
	Operator string `json:"operator"`
	From     string `json:"from"`
	To       string `json:"to"`
	TripTime string `json:"trip_time"`
}

type TransitEnhanceRequest struct {
	RouteDetails TransitRoute `json:"route_details"`
	UserEnhance  string       `json:"user_enhance"`
	CardIndex    int          `json:"card_index"`
}

type TransitEnhanceReply struct {
	EnhancedBusData json.RawMessage `json:"enhanced_bus_data"`
	Message         string          `json:"message"`
}

type UserInfo struct {
	Timestamp string `json:"timestamp"`
	SessionID string `json:"sessionId"`
}

type FinalizeRequest struct {
	CardIndex           int      `json:"cardIndex"`
	PlanData            any      `json:"planData"`
	UserInfo            UserInfo `json:"userInfo"`
	ConversationHistory []string `json:"conversationHistory"`
	UserQuery           string   `json:"userQuery"`
}

type FinalizeReply struct {
	Success           bool            `json:"success"`
	Message           string          `json:"message"`
	FinalizedPlan     json.RawMessage `json:"finalized_plan"`
	FollowUpQuestions json.RawMessage `json:"follow_up_questions"`
	Error             string          `json:"error"`
}

type SummarizeReply struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Summary is the structured itinerary summary encoded inside SummarizeReply.Response.
type Summary struct {
	Title    string `json:"title"`
	Duration Text   `json:"duration"`
	Budget   string `json:"budget"`
	Days     []struct {
		Day        Text `json:"day"`
		Activities []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			TimeSpent   Text   `json:"time_spent"`
			Weather     string `json:"weather"`
		} `json:"activities"`
	} `json:"days"`
}

type Conversation struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"conversation_title"`
	Preview        string `json:"preview"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

type StoredMessage struct {
	MongoID   string          `json:"_id"`
	ID        string          `json:"id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Timestamp json.RawMessage `json:"timestamp"`
	Cards     json.RawMessage `json:"cards"`
	Metadata  struct {
		Cards json.RawMessage `json:"cards"`
	} `json:"metadata"`
}

// StoredCards is the {type, data} envelope persisted with a message.
type StoredCards struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// StoredItinerary is the display shape of an itinerary card in history.
type StoredItinerary struct {
	Title           string       `json:"title"`
	Duration        Text         `json:"duration"`
	DurationDays    Number       `json:"durationDays"`
	Budget          string       `json:"budget"`
	ShortDesc       string       `json:"short_desc"`
	Highlights      []string     `json:"highlights"`
	OptimizedRoutes Object       `json:"optimized_routes"`
	TripDetails     *TripDetails `json:"trip_details"`
	Hotel           *Hotel       `json:"hotel"`
}

// Probe is the outcome of a diagnostic request.
type Probe struct {
	Status int
	Body   string
	Host   string
}

func (p Probe) OK() bool {
	return p.Status >= 200 && p.Status < 300
}

// Number decodes a JSON number, a numeric string or null.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*n = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = Number(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode number: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// unparseable numeric strings decode as zero
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

// Text decodes a JSON string or number as a string.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode text: %w", err)
	}
	*t = Text(n.String())
	return nil
}

func isNull(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// IsNull reports whether a raw field is absent or null.
func IsNull(data json.RawMessage) bool {
	return isNull(data)
}
