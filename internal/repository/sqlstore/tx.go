package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/airport-booking/internal/model"
	"github.com/iliyamo/airport-booking/internal/repository"
)

// sqlTx implements repository.Tx on a *sql.Tx.
type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) flight(ctx context.Context, n, suffix string) (model.Flight, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+flightCols+` FROM flights WHERE flight_number = ?`+suffix, n)
	f, err := scanFlight(row)
	if err != nil {
		return f, fmt.Errorf("flight %s: %w", n, repository.Classify(err))
	}
	return f, nil
}

func (t *sqlTx) GetFlight(ctx context.Context, n string) (model.Flight, error) {
	return t.flight(ctx, n, "")
}

// LockFlight takes the row's exclusive lock. Concurrent bookings on the
// same flight queue here until innodb_lock_wait_timeout or the context
// deadline, both of which surface as ErrTransient.
func (t *sqlTx) LockFlight(ctx context.Context, n string) (model.Flight, error) {
	return t.flight(ctx, n, " FOR UPDATE")
}

func (t *sqlTx) ListActiveFlights(ctx context.Context) ([]model.Flight, error) {
	const q = `SELECT ` + flightCols + ` FROM flights
		WHERE status IN ('scheduled', 'boarding')
		ORDER BY flight_date, departure_hour, flight_number`
	rows, err := t.tx.QueryContext(ctx, q)
	if err != nil {
		return nil, repository.Classify(err)
	}
	defer rows.Close()
	var out []model.Flight
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, repository.Classify(rows.Err())
}

func (t *sqlTx) InsertFlight(ctx context.Context, f model.Flight) error {
	const q = `INSERT INTO flights (flight_number, departure_airport, arrival_airport, flight_date,
		departure_hour, arrival_hour, total_seats, available_seats, status, flight_company_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var company any
	if f.FlightCompanyID != nil {
		company = *f.FlightCompanyID
	}
	_, err := t.tx.ExecContext(ctx, q, f.FlightNumber, f.DepartureAirport, f.ArrivalAirport,
		f.FlightDate.Format("2006-01-02"), model.FormatClock(f.DepartureTime), model.FormatClock(f.ArrivalTime),
		f.TotalSeats, f.AvailableSeats, string(f.Status), company)
	if err != nil {
		return fmt.Errorf("flight %s: %w", f.FlightNumber, repository.Classify(err))
	}
	return nil
}

func (t *sqlTx) UpdateFlightStatus(ctx context.Context, n string, st model.FlightStatus) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE flights SET status = ? WHERE flight_number = ?`, string(st), n)
	return repository.Classify(err)
}

func (t *sqlTx) SetAvailableSeats(ctx context.Context, n string, avail int) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE flights SET available_seats = ? WHERE flight_number = ?`, avail, n)
	return repository.Classify(err)
}

func (t *sqlTx) CountConfirmedTickets(ctx context.Context, n string) (int, error) {
	var c int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets WHERE flight_number = ? AND booking_status = 'Confirmed'`, n).Scan(&c)
	return c, repository.Classify(err)
}

func (t *sqlTx) SeatTaken(ctx context.Context, n string, class model.SeatClass, seat string) (bool, error) {
	var taken bool
	err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM tickets WHERE flight_number = ? AND seat_key = ?)`,
		n, seatKey(class, seat)).Scan(&taken)
	return taken, repository.Classify(err)
}

func (t *sqlTx) GetAirport(ctx context.Context, id string) (model.Airport, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+airportCols+` FROM airports WHERE airport_id = ?`, id)
	a, err := scanAirport(row)
	if err != nil {
		return a, fmt.Errorf("airport %s: %w", id, repository.Classify(err))
	}
	return a, nil
}

func (t *sqlTx) GetPassenger(ctx context.Context, id int64) (model.Passenger, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+passengerCols+` FROM passengers WHERE passenger_id = ?`, id)
	p, err := scanPassenger(row)
	if err != nil {
		return p, fmt.Errorf("passenger %d: %w", id, repository.Classify(err))
	}
	return p, nil
}

// FindPassengerByEmail uses a locking read so that, after a duplicate key
// error on insert, the row committed by the other unit is visible.
func (t *sqlTx) FindPassengerByEmail(ctx context.Context, email string) (model.Passenger, error) {
	email = model.NormalizeEmail(email)
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+passengerCols+` FROM passengers WHERE email = ? LOCK IN SHARE MODE`, email)
	p, err := scanPassenger(row)
	if err != nil {
		return p, fmt.Errorf("passenger %s: %w", email, repository.Classify(err))
	}
	return p, nil
}

func (t *sqlTx) InsertPassenger(ctx context.Context, p model.Passenger) (int64, error) {
	var age any
	if p.Age != nil {
		age = *p.Age
	}
	res, err := t.tx.ExecContext(ctx, `INSERT INTO passengers (name, email, phone, age) VALUES (?, ?, ?, ?)`,
		p.Name, model.NormalizeEmail(p.Email), nullable(p.Phone), age)
	if err != nil {
		return 0, fmt.Errorf("passenger %s: %w", p.Email, repository.Classify(err))
	}
	id, err := res.LastInsertId()
	return id, repository.Classify(err)
}

func (t *sqlTx) InsertTicket(ctx context.Context, tk model.Ticket) error {
	const q = `INSERT INTO tickets (order_number, passenger_id, flight_number, seat_number, seat_class,
		price_cents, booking_status, booked_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := t.tx.ExecContext(ctx, q, tk.OrderNumber, tk.PassengerID, tk.FlightNumber, tk.SeatNumber,
		string(tk.SeatClass), tk.PriceCents, string(tk.BookingStatus), tk.BookedAt.UTC())
	if err != nil {
		return fmt.Errorf("ticket %s: %w", tk.OrderNumber, repository.Classify(err))
	}
	return nil
}

func (t *sqlTx) ticket(ctx context.Context, order, suffix string) (model.Ticket, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+ticketCols+` FROM tickets WHERE order_number = ?`+suffix, order)
	tk, err := scanTicket(row)
	if err != nil {
		return tk, fmt.Errorf("ticket %s: %w", order, repository.Classify(err))
	}
	return tk, nil
}

func (t *sqlTx) GetTicket(ctx context.Context, order string) (model.Ticket, error) {
	return t.ticket(ctx, order, "")
}

func (t *sqlTx) LockTicket(ctx context.Context, order string) (model.Ticket, error) {
	return t.ticket(ctx, order, " FOR UPDATE")
}

func (t *sqlTx) MarkTicketCancelled(ctx context.Context, order, reason string) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE tickets SET booking_status = 'Cancelled', cancellation_reason = ? WHERE order_number = ?`,
		reason, order)
	if err != nil {
		return repository.Classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ticket %s: %w", order, repository.ErrNotFound)
	}
	return nil
}

func (t *sqlTx) InsertCancellationLog(ctx context.Context, l model.CancellationLog) error {
	const q = `INSERT INTO ticket_cancellations (order_number, flight_number, reason, refund_cents, cancelled_at)
		VALUES (?, ?, ?, ?, ?)`
	_, err := t.tx.ExecContext(ctx, q, l.OrderNumber, l.FlightNumber, l.Reason, l.RefundCents, l.CancelledAt.UTC())
	return repository.Classify(err)
}
