package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/set-night/tripmind/internal/domain"
	"github.com/set-night/tripmind/internal/planner"
)

// Enhance refines one card with free-text instructions. Only one attempt per
// card may be outstanding: a second call while one is pending returns
// ErrEnhancePending and changes nothing. On failure the card is left exactly
// as it was and a failure message is appended.
func (e *Engine) Enhance(ctx context.Context, ref domain.CardRef, instructions string) error {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return domain.ErrEmptyMessage
	}
	if e.closed() {
		return domain.ErrEngineClosed
	}

	epoch, snapshot, err := e.store.AcquireTicket(ref)
	if err != nil {
		return err
	}
	outcome := domain.TicketFailed
	defer func() { e.store.ReleaseTicket(epoch, ref, outcome) }()

	log := e.log.With("message_index", ref.Message, "card_index", ref.Card, "kind", snapshot.Kind())

	updated, err := e.enhanceEntry(ctx, ref, snapshot, instructions)
	if err != nil {
		log.Warn("card enhancement failed", "error", err)
		e.appendAssistant(epoch, enhanceFailureText(snapshot, err))
		return nil
	}

	if err := e.store.UpdateCard(epoch, ref, updated); err != nil {
		log.Debug("enhanced card dropped", "error", err)
		return err
	}
	outcome = domain.TicketSucceeded
	e.appendAssistant(epoch, enhanceSuccessText(snapshot))
	log.Info("card enhanced")
	return nil
}

func (e *Engine) enhanceEntry(ctx context.Context, ref domain.CardRef, snapshot domain.Entry, instructions string) (domain.Entry, error) {
	switch prev := snapshot.(type) {
	case domain.Itinerary:
		return e.enhanceItinerary(ctx, ref.Card, prev, instructions)
	case domain.TransitRoute:
		return e.enhanceTransit(ctx, ref.Card, prev, instructions)
	case domain.Lodging:
		next, err := e.enhanceViaChat(ctx, domain.KindLodging, lodgingPrompt(prev, instructions))
		if err != nil {
			return nil, err
		}
		return mergeLodging(prev, next.(domain.Lodging)), nil
	case domain.Flight:
		next, err := e.enhanceViaChat(ctx, domain.KindFlight, flightPrompt(prev, instructions))
		if err != nil {
			return nil, err
		}
		return mergeFlight(prev, next.(domain.Flight)), nil
	default:
		return nil, domain.ErrCardNotFound
	}
}

func (e *Engine) enhanceItinerary(ctx context.Context, cardIndex int, prev domain.Itinerary, instructions string) (domain.Entry, error) {
	var query string
	if users := e.store.UserTexts(); len(users) > 0 {
		query = users[0]
	}

	raw, err := e.planner.EnhanceItinerary(ctx, planner.EnhanceRequest{
		PlanDetails: e.planDetails(prev),
		QueryEN:     query,
		UserEnhance: instructions,
		CardIndex:   cardIndex,
	})
	if err != nil {
		return nil, fmt.Errorf("enhance itinerary: %w", err)
	}
	if !raw.OK() {
		return nil, rejectionFromBody(raw)
	}
	plan, err := decodeEnhancedPlan(raw.Body)
	if err != nil {
		return nil, err
	}
	return mergeItinerary(prev, plan.Plan), nil
}

// planDetails builds the plan the enhance route expects, synthesising trip
// details for cards that never had them.
func (e *Engine) planDetails(it domain.Itinerary) planner.PlanDetails {
	var trip planner.TripDetails
	if it.Trip != nil {
		trip = tripWire(*it.Trip)
	} else {
		days := max(it.DurationDays, 1)
		start := e.now()
		trip = planner.TripDetails{
			TripName:      firstNonEmpty(it.Summary, it.Name),
			ItineraryName: it.Name,
			StartDate:     start.Format("2006-01-02"),
			EndDate:       start.AddDate(0, 0, days).Format("2006-01-02"),
			DurationDays:  planner.Number(days),
			Destination:   it.Name,
		}
	}

	details := planner.PlanDetails{
		TripDetails:     trip,
		Hotel:           hotelWire(it.Hotel),
		OptimizedRoutes: make(map[string]planner.OptimizedRoute, len(it.Days)),
		Itinerary:       make(map[string][]planner.Spot, len(it.Days)),
	}
	for _, d := range it.Days {
		spots := spotsWire(d.Stops)
		details.OptimizedRoutes[d.Label] = planner.OptimizedRoute{OptimizedOrder: spots, Polyline: d.Polyline}
		details.Itinerary[d.Label] = spots
	}
	return details
}

func (e *Engine) enhanceTransit(ctx context.Context, cardIndex int, prev domain.TransitRoute, instructions string) (domain.Entry, error) {
	raw, err := e.planner.EnhanceTransit(ctx, planner.TransitEnhanceRequest{
		RouteDetails: transitPayload(prev),
		UserEnhance:  instructions,
		CardIndex:    cardIndex,
	})
	if err != nil {
		return nil, fmt.Errorf("enhance bus route: %w", err)
	}
	if !raw.OK() {
		return nil, rejectionFromBody(raw)
	}
	var reply planner.TransitEnhanceReply
	if err := json.Unmarshal(raw.Body, &reply); err != nil {
		return nil, fmt.Errorf("parse bus enhance reply: %w", err)
	}
	if planner.IsNull(reply.EnhancedBusData) {
		if reply.Message != "" {
			return nil, &serviceRejection{detail: reply.Message}
		}
		return nil, errNoEnhancedData
	}
	return mergeTransit(prev, reply.EnhancedBusData)
}

// enhanceViaChat sends a refinement prompt through the chat route and takes
// the first entry of the requested kind from the reply.
func (e *Engine) enhanceViaChat(ctx context.Context, kind domain.CardKind, prompt string) (domain.Entry, error) {
	raw, err := e.planner.Chat(ctx, planner.ChatRequest{
		Query:          prompt,
		ConversationID: e.store.SessionID(),
		RunID:          uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("enhance %s: %w", kind, err)
	}
	switch r := Classify(raw, e.jitter).Reply.(type) {
	case domain.SetReply:
		if r.Kind == kind && len(r.Entries) > 0 {
			return r.Entries[0], nil
		}
		return nil, errNoEnhancedData
	case domain.ServiceError:
		return nil, &serviceRejection{detail: r.Detail}
	case domain.QuotaExceeded:
		return nil, &serviceRejection{detail: "the planning service quota is exhausted"}
	default:
		return nil, errNoEnhancedData
	}
}

func rejectionFromBody(raw *planner.RawReply) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw.Body, &body)
	detail := firstNonEmpty(body.Error, body.Message)
	if detail == "" {
		detail = fmt.Sprintf("status %d", raw.Status)
	}
	return &serviceRejection{detail: detail}
}

func lodgingPrompt(l domain.Lodging, instructions string) string {
	return fmt.Sprintf("Find better hotel accommodations with these preferences: %q. "+
		"Current hotel: %s at %s with rating %.1f. Please provide better alternatives.",
		instructions, l.Name, l.Address, l.Rating)
}

func flightPrompt(f domain.Flight, instructions string) string {
	return fmt.Sprintf("Find better flight options with these preferences: %q. "+
		"Current flight: %s %s from %s to %s departing %s, duration %s, price ₹%s. Please provide better alternatives.",
		instructions, f.Carrier, f.FlightNumber, f.OriginIATA, f.DestinationIATA, f.DepartureTime, f.Duration, f.Price.StringFixed(0))
}

func enhanceSuccessText(prev domain.Entry) string {
	switch v := prev.(type) {
	case domain.Itinerary:
		return fmt.Sprintf("✨ Your plan %q has been enhanced with your preferences! Check the updated card above.", v.Name)
	case domain.TransitRoute:
		return "✨ Your bus route has been enhanced with your preferences!"
	case domain.Lodging:
		return "✨ Your accommodation option has been enhanced with your preferences!"
	case domain.Flight:
		return "✨ Your flight option has been enhanced with your preferences!"
	default:
		return "✨ Your card has been enhanced with your preferences!"
	}
}

func enhanceFailureText(prev domain.Entry, err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Sprintf("⚠️ Connection error during %s enhancement. Please try again.", noun(prev.Kind()))
	}
	detail := "Please try again."
	var rejection *serviceRejection
	if errors.As(err, &rejection) {
		detail = rejection.detail
	}
	return fmt.Sprintf("⚠️ Sorry, I couldn't enhance the %s. %s", noun(prev.Kind()), detail)
}

func noun(kind domain.CardKind) string {
	switch kind {
	case domain.KindItinerary:
		return "plan"
	case domain.KindTransit:
		return "bus route"
	case domain.KindLodging:
		return "accommodation"
	case domain.KindFlight:
		return "flight"
	default:
		return "card"
	}
}
