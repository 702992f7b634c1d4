// Package queue carries ticket events over RabbitMQ: the publisher the
// booking engine reports to after commit, and the background consumer
// that journals every event to a log file.
package queue

import (
	"time"

	"github.com/iliyamo/airport-booking/internal/model"
)

// Event types.
const (
	TicketBooked    = "ticket.booked"
	TicketCancelled = "ticket.cancelled"
)

// TicketEvent is published once per committed booking or cancellation.
// It carries enough of the ticket for downstream consumers to log, notify
// or feed analytics without querying the primary database.
type TicketEvent struct {
	Type         string    `json:"type"`
	OrderNumber  string    `json:"order_number"`
	PassengerID  int64     `json:"passenger_id"`
	FlightNumber string    `json:"flight_number"`
	SeatNumber   string    `json:"seat_number"`
	SeatClass    string    `json:"seat_class"`
	PriceCents   int64     `json:"price_cents"`
	RefundCents  int64     `json:"refund_cents,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func newTicketEvent(typ string, t model.Ticket, at time.Time) TicketEvent {
	ev := TicketEvent{
		Type:         typ,
		OrderNumber:  t.OrderNumber,
		PassengerID:  t.PassengerID,
		FlightNumber: t.FlightNumber,
		SeatNumber:   t.SeatNumber,
		SeatClass:    string(t.SeatClass),
		PriceCents:   t.PriceCents,
		OccurredAt:   at.UTC(),
	}
	if t.CancellationReason != nil {
		ev.Reason = *t.CancellationReason
	}
	return ev
}
