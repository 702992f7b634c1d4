package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/iliyamo/airport-booking/internal/model"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const flightCols = `flight_number, departure_airport, arrival_airport, flight_date,
	departure_hour, arrival_hour, total_seats, available_seats, status,
	flight_company_id, created_at`

// scanFlight reads one flights row. TIME columns arrive as text even with
// parseTime enabled, so they are parsed here.
func scanFlight(r scanner) (model.Flight, error) {
	var (
		f        model.Flight
		dep, arr string
		status   string
		company  sql.NullInt64
	)
	if err := r.Scan(&f.FlightNumber, &f.DepartureAirport, &f.ArrivalAirport, &f.FlightDate,
		&dep, &arr, &f.TotalSeats, &f.AvailableSeats, &status, &company, &f.CreatedAt); err != nil {
		return f, err
	}
	var ok1, ok2 bool
	f.DepartureTime, ok1 = model.ParseClock(dep)
	f.ArrivalTime, ok2 = model.ParseClock(arr)
	if !ok1 || !ok2 {
		return f, fmt.Errorf("flight %s: bad schedule %q-%q", f.FlightNumber, dep, arr)
	}
	f.Status = model.FlightStatus(status)
	if company.Valid {
		id := company.Int64
		f.FlightCompanyID = &id
	}
	return f, nil
}

const airportCols = `airport_id, name, city, country, latitude, longitude`

func scanAirport(r scanner) (model.Airport, error) {
	var (
		a        model.Airport
		lat, lon sql.NullFloat64
	)
	if err := r.Scan(&a.ID, &a.Name, &a.City, &a.Country, &lat, &lon); err != nil {
		return a, err
	}
	if lat.Valid && lon.Valid {
		a.Latitude, a.Longitude = &lat.Float64, &lon.Float64
	}
	return a, nil
}

const passengerCols = `passenger_id, name, email, phone, age, created_at`

func scanPassenger(r scanner) (model.Passenger, error) {
	var (
		p     model.Passenger
		phone sql.NullString
		age   sql.NullInt64
	)
	if err := r.Scan(&p.ID, &p.Name, &p.Email, &phone, &age, &p.CreatedAt); err != nil {
		return p, err
	}
	p.Phone = phone.String
	if age.Valid {
		v := int(age.Int64)
		p.Age = &v
	}
	return p, nil
}

const ticketCols = `order_number, passenger_id, flight_number, seat_number, seat_class,
	price_cents, booking_status, booked_at, cancellation_reason`

func scanTicket(r scanner) (model.Ticket, error) {
	var (
		t             model.Ticket
		class, status string
		reason        sql.NullString
	)
	if err := r.Scan(&t.OrderNumber, &t.PassengerID, &t.FlightNumber, &t.SeatNumber, &class,
		&t.PriceCents, &status, &t.BookedAt, &reason); err != nil {
		return t, err
	}
	t.SeatClass = model.SeatClass(class)
	t.BookingStatus = model.BookingStatus(status)
	if reason.Valid {
		r := reason.String
		t.CancellationReason = &r
	}
	return t, nil
}

const workerCols = `worker_id, name, email, age, job, payment_cents, role, airport_id,
	store_id, supervisor_id, hire_date, status`

func scanWorker(r scanner) (model.Worker, error) {
	var (
		w                   model.Worker
		email               sql.NullString
		role, status        string
		storeID, supervisor sql.NullInt64
	)
	if err := r.Scan(&w.ID, &w.Name, &email, &w.Age, &w.Job, &w.PaymentCents, &role, &w.AirportID,
		&storeID, &supervisor, &w.HireDate, &status); err != nil {
		return w, err
	}
	w.Role = model.Role(role)
	w.Status = model.WorkerStatus(status)
	if email.Valid {
		e := email.String
		w.Email = &e
	}
	w.StoreID = nullID(storeID)
	w.SupervisorID = nullID(supervisor)
	return w, nil
}

const storeCols = `store_id, name, place, store_type, product_type, airport_id`

func scanStore(r scanner) (model.Store, error) {
	var s model.Store
	err := r.Scan(&s.ID, &s.Name, &s.Place, &s.StoreType, &s.ProductType, &s.AirportID)
	return s, err
}

func nullID(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// nullable turns the zero value into SQL NULL.
func nullable[T comparable](v T) any {
	var zero T
	if v == zero {
		return nil
	}
	return v
}

// seatKey mirrors the generated tickets.seat_key column.
func seatKey(class model.SeatClass, seat string) string {
	return string(class) + ":" + seat
}
