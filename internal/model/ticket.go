package model

import (
	"strings"
	"time"
)

// SeatClass is the cabin a ticket is sold in.
type SeatClass string

const (
	Economy  SeatClass = "Economy"
	Business SeatClass = "Business"
	First    SeatClass = "First"
)

// SeatClasses lists the cabins from cheapest to most expensive.
var SeatClasses = []SeatClass{Economy, Business, First}

// ParseSeatClass maps case-insensitive input to its canonical form.
func ParseSeatClass(s string) (SeatClass, bool) {
	for _, c := range SeatClasses {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, true
		}
	}
	return "", false
}

// BookingStatus is the one-way state of a ticket.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "Confirmed"
	BookingCancelled BookingStatus = "Cancelled"
)

// NormalizeSeat trims and upper-cases a seat label such as " 12c ".
func NormalizeSeat(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Ticket is a single seat sold on a flight. Rows in `tickets` are never
// deleted; cancellation flips BookingStatus and stores the reason.
//
// Fields:
//  OrderNumber        – unique order identifier (TKT-...).
//  PassengerID        – owning passenger.
//  FlightNumber       – flight the seat belongs to.
//  SeatNumber         – normalized seat label.
//  SeatClass          – cabin.
//  PriceCents         – price fixed at booking time.
//  BookingStatus      – Confirmed or Cancelled.
//  BookedAt           – when the ticket was created.
//  CancellationReason – set only once cancelled.
type Ticket struct {
	OrderNumber        string        `json:"order_number"`
	PassengerID        int64         `json:"passenger_id"`
	FlightNumber       string        `json:"flight_number"`
	SeatNumber         string        `json:"seat_number"`
	SeatClass          SeatClass     `json:"seat_class"`
	PriceCents         int64         `json:"price_cents"`
	BookingStatus      BookingStatus `json:"booking_status"`
	BookedAt           time.Time     `json:"booked_at"`
	CancellationReason *string       `json:"cancellation_reason,omitempty"`
}

// CancellationLog is the audit row written together with a cancellation.
type CancellationLog struct {
	ID           int64     `json:"id"`
	OrderNumber  string    `json:"order_number"`
	FlightNumber string    `json:"flight_number"`
	Reason       string    `json:"reason"`
	RefundCents  int64     `json:"refund_cents"`
	CancelledAt  time.Time `json:"cancelled_at"`
}

// Booking is a ticket joined with its flight for passenger history views.
type Booking struct {
	Ticket
	DepartureAirport string       `json:"departure_airport"`
	ArrivalAirport   string       `json:"arrival_airport"`
	FlightDate       time.Time    `json:"flight_date"`
	FlightStatus     FlightStatus `json:"flight_status"`
}
