// Package queue defines message payloads exchanged over the
// message broker and the background consumer that records them.
package queue

// TicketIssuedEvent is published after a ticket has been rendered
// and handed to the notifier. It carries enough information for
// downstream consumers to log or trigger analytics without
// querying the primary database.
type TicketIssuedEvent struct {
	BookingRef   string `json:"booking_ref"`
	AttendeeName string `json:"attendee_name"`
	Plus1Name    string `json:"plus1_name,omitempty"`
	Email        string `json:"email"`
	Tickets      int    `json:"tickets"`
	Amount       int64  `json:"amount"`
	EventTitle   string `json:"event_title"`
	IssuedAt     string `json:"issued_at"`
}
