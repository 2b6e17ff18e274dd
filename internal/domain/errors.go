package domain

import "errors"

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrMessageTooLong  = errors.New("message exceeds word limit")
	ErrBusy            = errors.New("previous message still in flight")
	ErrCardNotFound    = errors.New("card not found")
	ErrEnhancePending  = errors.New("card enhancement already pending")
	ErrNoSession       = errors.New("no session established")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotItinerary    = errors.New("card is not an itinerary")
	ErrStaleSession    = errors.New("session changed while request was in flight")
	ErrEngineClosed    = errors.New("engine closed")
)
