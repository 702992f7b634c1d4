package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/airport-booking/internal/model"
	"github.com/iliyamo/airport-booking/internal/repository"
)

// FlightSpec is the input to CreateFlight.
type FlightSpec struct {
	FlightNumber     string
	DepartureAirport string
	ArrivalAirport   string
	FlightDate       time.Time
	DepartureTime    time.Duration
	ArrivalTime      time.Duration
	TotalSeats       int
	FlightCompanyID  *int64
}

// Catalog owns flight records.
type Catalog struct {
	store Store
	now   func() time.Time
}

// NewCatalog returns a catalog backed by store.
func NewCatalog(store Store) *Catalog {
	if store == nil {
		panic("booking: nil store")
	}
	return &Catalog{store: store, now: time.Now}
}

// GetFlight returns the committed state of one flight.
func (c *Catalog) GetFlight(ctx context.Context, flightNumber string) (model.Flight, error) {
	var f model.Flight
	err := c.store.InTx(ctx, func(tx Tx) error {
		var err error
		f, err = getFlight(ctx, tx, flightNumber)
		return err
	})
	return f, storeErr(err)
}

// ListActiveFlights returns scheduled and boarding flights ordered by
// date then departure time.
func (c *Catalog) ListActiveFlights(ctx context.Context) ([]model.Flight, error) {
	var out []model.Flight
	err := c.store.InTx(ctx, func(tx Tx) error {
		var err error
		out, err = tx.ListActiveFlights(ctx)
		return err
	})
	return out, storeErr(err)
}

// CreateFlight validates spec and inserts a scheduled flight with every
// seat available.
func (c *Catalog) CreateFlight(ctx context.Context, spec FlightSpec) (model.Flight, error) {
	spec.FlightNumber = strings.ToUpper(strings.TrimSpace(spec.FlightNumber))
	spec.DepartureAirport = strings.ToUpper(strings.TrimSpace(spec.DepartureAirport))
	spec.ArrivalAirport = strings.ToUpper(strings.TrimSpace(spec.ArrivalAirport))
	switch {
	case spec.FlightNumber == "":
		return model.Flight{}, validationf("flight_number is required")
	case tooLong(spec.FlightNumber, maxFlightNumberLen):
		return model.Flight{}, validationf("flight_number must be at most %d characters", maxFlightNumberLen)
	case spec.TotalSeats <= 0:
		return model.Flight{}, validationf("total_seats must be positive")
	case spec.DepartureAirport == "" || spec.ArrivalAirport == "":
		return model.Flight{}, validationf("departure_airport and arrival_airport are required")
	case spec.DepartureAirport == spec.ArrivalAirport:
		return model.Flight{}, validationf("departure and arrival airports must differ")
	case spec.FlightDate.IsZero():
		return model.Flight{}, validationf("flight_date is required")
	}

	f := model.Flight{
		FlightNumber:     spec.FlightNumber,
		DepartureAirport: spec.DepartureAirport,
		ArrivalAirport:   spec.ArrivalAirport,
		FlightDate:       spec.FlightDate,
		DepartureTime:    spec.DepartureTime,
		ArrivalTime:      spec.ArrivalTime,
		TotalSeats:       spec.TotalSeats,
		AvailableSeats:   spec.TotalSeats,
		Status:           model.FlightScheduled,
		FlightCompanyID:  spec.FlightCompanyID,
		CreatedAt:        c.now().UTC(),
	}
	err := c.store.InTx(ctx, func(tx Tx) error {
		for _, code := range []string{f.DepartureAirport, f.ArrivalAirport} {
			if _, err := tx.GetAirport(ctx, code); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return validationf("unknown airport %s", code)
				}
				return err
			}
		}
		if err := tx.InsertFlight(ctx, f); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrDuplicateFlight
			}
			return err
		}
		return nil
	})
	if err != nil {
		return model.Flight{}, storeErr(err)
	}
	return f, nil
}

// SetStatus moves a flight along its lifecycle.
func (c *Catalog) SetStatus(ctx context.Context, flightNumber string, next model.FlightStatus) error {
	err := c.store.InTx(ctx, func(tx Tx) error {
		f, err := lockFlight(ctx, tx, flightNumber)
		if err != nil {
			return err
		}
		if !f.Status.CanTransition(next) {
			return ErrInvalidTransition
		}
		return tx.UpdateFlightStatus(ctx, f.FlightNumber, next)
	})
	return storeErr(err)
}

// AdjustAvailableSeats applies delta to the flight's seat counter in its
// own unit of work and returns the new count.
func (c *Catalog) AdjustAvailableSeats(ctx context.Context, flightNumber string, delta int) (int, error) {
	var n int
	err := c.store.InTx(ctx, func(tx Tx) error {
		var err error
		n, err = adjustSeats(ctx, tx, flightNumber, delta)
		return err
	})
	return n, storeErr(err)
}

// adjustSeats is the transaction-scoped form used by the engines. The
// counter must stay within [0, total_seats].
func adjustSeats(ctx context.Context, tx Tx, flightNumber string, delta int) (int, error) {
	f, err := lockFlight(ctx, tx, flightNumber)
	if err != nil {
		return 0, err
	}
	n := f.AvailableSeats + delta
	if n < 0 || n > f.TotalSeats {
		return f.AvailableSeats, ErrCapacityExceeded
	}
	if err := tx.SetAvailableSeats(ctx, f.FlightNumber, n); err != nil {
		return 0, err
	}
	return n, nil
}

// flight numbers are stored upper-case
func normFlight(n string) string { return strings.ToUpper(strings.TrimSpace(n)) }

func getFlight(ctx context.Context, tx Tx, flightNumber string) (model.Flight, error) {
	f, err := tx.GetFlight(ctx, normFlight(flightNumber))
	if errors.Is(err, repository.ErrNotFound) {
		return f, ErrFlightNotFound
	}
	return f, err
}

func lockFlight(ctx context.Context, tx Tx, flightNumber string) (model.Flight, error) {
	f, err := tx.LockFlight(ctx, normFlight(flightNumber))
	if errors.Is(err, repository.ErrNotFound) {
		return f, ErrFlightNotFound
	}
	return f, err
}
