package domain

// TicketStatus tracks one enhancement attempt on a card.
type TicketStatus string

const (
	TicketIdle      TicketStatus = "idle"
	TicketPending   TicketStatus = "pending"
	TicketSucceeded TicketStatus = "succeeded"
	TicketFailed    TicketStatus = "failed"
)

// CardRef addresses one card entry by (message index, card index).
type CardRef struct {
	Message int
	Card    int
}
