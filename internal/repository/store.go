package repository

import (
	"context"

	"github.com/iliyamo/airport-booking/internal/model"
)

// TxStore opens units of work. InTx commits when fn returns nil and rolls
// back otherwise. Lookups of missing rows fail with ErrNotFound, unique
// key violations with ErrDuplicate, and retryable failures with
// ErrTransient.
type TxStore interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the read/write surface available inside a unit of work. Reads
// observe the unit's own writes.
type Tx interface {
	GetFlight(ctx context.Context, flightNumber string) (model.Flight, error)
	// LockFlight reads the flight and holds its row lock until the unit
	// ends. Calling it again for the same flight is allowed.
	LockFlight(ctx context.Context, flightNumber string) (model.Flight, error)
	ListActiveFlights(ctx context.Context) ([]model.Flight, error)
	InsertFlight(ctx context.Context, f model.Flight) error
	UpdateFlightStatus(ctx context.Context, flightNumber string, status model.FlightStatus) error
	SetAvailableSeats(ctx context.Context, flightNumber string, n int) error
	CountConfirmedTickets(ctx context.Context, flightNumber string) (int, error)
	SeatTaken(ctx context.Context, flightNumber string, class model.SeatClass, seat string) (bool, error)

	GetAirport(ctx context.Context, id string) (model.Airport, error)

	GetPassenger(ctx context.Context, id int64) (model.Passenger, error)
	FindPassengerByEmail(ctx context.Context, email string) (model.Passenger, error)
	InsertPassenger(ctx context.Context, p model.Passenger) (int64, error)

	InsertTicket(ctx context.Context, t model.Ticket) error
	GetTicket(ctx context.Context, orderNumber string) (model.Ticket, error)
	// LockTicket rereads a ticket after its flight has been locked.
	LockTicket(ctx context.Context, orderNumber string) (model.Ticket, error)
	MarkTicketCancelled(ctx context.Context, orderNumber, reason string) error
	InsertCancellationLog(ctx context.Context, l model.CancellationLog) error
}
