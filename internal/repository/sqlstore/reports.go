package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/airport-booking/internal/model"
	"github.com/iliyamo/airport-booking/internal/report"
	"github.com/iliyamo/airport-booking/internal/repository"
)

func (s *Store) GetPassenger(ctx context.Context, id int64) (model.Passenger, error) {
	p, err := scanPassenger(s.db.QueryRowContext(ctx, `SELECT `+passengerCols+` FROM passengers WHERE passenger_id = ?`, id))
	if err != nil {
		return p, fmt.Errorf("passenger %d: %w", id, repository.Classify(err))
	}
	return p, nil
}

func (s *Store) PassengerSpend(ctx context.Context, id int64) (report.Spend, error) {
	var sp report.Spend
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(price_cents), 0)
		FROM tickets WHERE passenger_id = ? AND booking_status = 'Confirmed'`, id).
		Scan(&sp.Tickets, &sp.SpentCents)
	return sp, repository.Classify(err)
}

// PassengerBookings lists every ticket of the passenger, newest first,
// cancelled ones included.
func (s *Store) PassengerBookings(ctx context.Context, id int64) ([]model.Booking, error) {
	const q = `SELECT t.order_number, t.passenger_id, t.flight_number, t.seat_number, t.seat_class,
			t.price_cents, t.booking_status, t.booked_at, t.cancellation_reason,
			f.departure_airport, f.arrival_airport, f.flight_date, f.status
		FROM tickets t
		JOIN flights f ON f.flight_number = t.flight_number
		WHERE t.passenger_id = ?
		ORDER BY t.booked_at DESC`
	rows, err := s.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, repository.Classify(err)
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		var (
			b      model.Booking
			status string
		)
		tk, err := scanTicket(scanFunc(func(dest ...any) error {
			return rows.Scan(append(dest, &b.DepartureAirport, &b.ArrivalAirport, &b.FlightDate, &status)...)
		}))
		if err != nil {
			return nil, err
		}
		b.Ticket = tk
		b.FlightStatus = model.FlightStatus(status)
		out = append(out, b)
	}
	return out, repository.Classify(rows.Err())
}

// scanFunc adapts a closure to scanner so joined rows can reuse the
// single-table scan helpers.
type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

func (s *Store) Dashboard(ctx context.Context, today, since time.Time) (report.Dashboard, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM flights WHERE flight_date >= ?),
		(SELECT COUNT(DISTINCT passenger_id) FROM tickets WHERE booking_status = 'Confirmed'),
		(SELECT COALESCE(SUM(price_cents), 0) FROM tickets WHERE booking_status = 'Confirmed' AND booked_at >= ?),
		(SELECT COUNT(*) FROM workers WHERE status = 'active')`
	var d report.Dashboard
	err := s.db.QueryRowContext(ctx, q, today.Format("2006-01-02"), since.UTC()).
		Scan(&d.UpcomingFlights, &d.Passengers, &d.RevenueLast7dCents, &d.ActiveWorkers)
	return d, repository.Classify(err)
}

// FlightRevenue aggregates tickets per flight dated within [from, to],
// highest revenue first.
func (s *Store) FlightRevenue(ctx context.Context, from, to time.Time) ([]report.FlightRevenue, error) {
	const q = `SELECT f.flight_number, f.flight_date,
			COALESCE(SUM(t.booking_status = 'Confirmed'), 0),
			COALESCE(SUM(CASE WHEN t.booking_status = 'Confirmed' THEN t.price_cents END), 0),
			COALESCE(SUM(t.booking_status = 'Cancelled'), 0)
		FROM flights f
		LEFT JOIN tickets t ON t.flight_number = f.flight_number
		WHERE f.flight_date BETWEEN ? AND ?
		GROUP BY f.flight_number, f.flight_date
		ORDER BY 4 DESC, f.flight_number`
	rows, err := s.db.QueryContext(ctx, q, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, repository.Classify(err)
	}
	defer rows.Close()
	out := []report.FlightRevenue{}
	for rows.Next() {
		var r report.FlightRevenue
		if err := rows.Scan(&r.FlightNumber, &r.FlightDate, &r.ConfirmedTickets, &r.RevenueCents, &r.CancelledTickets); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, repository.Classify(rows.Err())
}

func (s *Store) CompanyRevenue(ctx context.Context, companyID int64) (report.CompanyRevenue, error) {
	const q = `SELECT COUNT(DISTINCT f.flight_number),
			COALESCE(SUM(t.booking_status = 'Confirmed'), 0),
			COALESCE(SUM(CASE WHEN t.booking_status = 'Confirmed' THEN t.price_cents END), 0)
		FROM flights f
		LEFT JOIN tickets t ON t.flight_number = f.flight_number
		WHERE f.flight_company_id = ?`
	out := report.CompanyRevenue{CompanyID: companyID}
	err := s.db.QueryRowContext(ctx, q, companyID).Scan(&out.Flights, &out.ConfirmedTickets, &out.RevenueCents)
	return out, repository.Classify(err)
}

func (s *Store) ActiveWorkers(ctx context.Context, airportID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM workers WHERE airport_id = ? AND status = 'active'`, airportID).Scan(&n)
	return n, repository.Classify(err)
}
