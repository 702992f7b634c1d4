package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/iliyamo/airport-booking/internal/model"
	"github.com/iliyamo/airport-booking/internal/repository"
)

// tx is one unit of work. Staged rows shadow committed ones.
type tx struct {
	s          *Store
	held       map[string]bool
	lockOrder  []string
	flights    map[string]model.Flight
	tickets    map[string]model.Ticket
	passengers map[int64]model.Passenger
	emails     map[string]int64
	logs       []model.CancellationLog
}

func (t *tx) lock(ctx context.Context, key string) error {
	if t.held[key] {
		return nil
	}
	if err := t.s.acquire(ctx, key); err != nil {
		return err
	}
	t.held[key] = true
	t.lockOrder = append(t.lockOrder, key)
	return nil
}

func (t *tx) releaseAll() {
	for i := len(t.lockOrder) - 1; i >= 0; i-- {
		t.s.release(t.lockOrder[i])
	}
	t.lockOrder = nil
	t.held = map[string]bool{}
}

func (t *tx) commit() {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, f := range t.flights {
		s.flights[k] = f
	}
	for k, tk := range t.tickets {
		s.tickets[k] = tk
	}
	for k, p := range t.passengers {
		s.passengers[k] = p
	}
	for k, id := range t.emails {
		s.emails[k] = id
	}
	for _, l := range t.logs {
		l.ID = s.next("cancellation")
		s.cancellations = append(s.cancellations, l)
	}
}

func flightKey(n string) string { return "flight:" + n }

func (t *tx) flight(n string) (model.Flight, bool) {
	if f, ok := t.flights[n]; ok {
		return f, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	f, ok := t.s.flights[n]
	return f, ok
}

// ticketView merges committed and staged tickets.
func (t *tx) ticketView() map[string]model.Ticket {
	t.s.mu.RLock()
	out := make(map[string]model.Ticket, len(t.s.tickets)+len(t.tickets))
	for k, v := range t.s.tickets {
		out[k] = v
	}
	t.s.mu.RUnlock()
	for k, v := range t.tickets {
		out[k] = v
	}
	return out
}

func (t *tx) GetFlight(_ context.Context, n string) (model.Flight, error) {
	f, ok := t.flight(n)
	if !ok {
		return f, fmt.Errorf("flight %s: %w", n, repository.ErrNotFound)
	}
	return f, nil
}

func (t *tx) LockFlight(ctx context.Context, n string) (model.Flight, error) {
	if err := t.lock(ctx, flightKey(n)); err != nil {
		return model.Flight{}, err
	}
	return t.GetFlight(ctx, n)
}

func (t *tx) ListActiveFlights(context.Context) ([]model.Flight, error) {
	t.s.mu.RLock()
	seen := make(map[string]model.Flight, len(t.s.flights))
	for k, f := range t.s.flights {
		seen[k] = f
	}
	t.s.mu.RUnlock()
	for k, f := range t.flights {
		seen[k] = f
	}
	var out []model.Flight
	for _, f := range seen {
		if f.Status.Bookable() {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Departs().Equal(out[j].Departs()) {
			return out[i].Departs().Before(out[j].Departs())
		}
		return out[i].FlightNumber < out[j].FlightNumber
	})
	return out, nil
}

func (t *tx) InsertFlight(ctx context.Context, f model.Flight) error {
	if err := t.lock(ctx, flightKey(f.FlightNumber)); err != nil {
		return err
	}
	if _, ok := t.flight(f.FlightNumber); ok {
		return fmt.Errorf("flight %s: %w", f.FlightNumber, repository.ErrDuplicate)
	}
	t.flights[f.FlightNumber] = f
	return nil
}

func (t *tx) UpdateFlightStatus(ctx context.Context, n string, st model.FlightStatus) error {
	f, err := t.LockFlight(ctx, n)
	if err != nil {
		return err
	}
	f.Status = st
	t.flights[n] = f
	return nil
}

func (t *tx) SetAvailableSeats(ctx context.Context, n string, avail int) error {
	f, err := t.LockFlight(ctx, n)
	if err != nil {
		return err
	}
	f.AvailableSeats = avail
	t.flights[n] = f
	return nil
}

func (t *tx) CountConfirmedTickets(_ context.Context, n string) (int, error) {
	c := 0
	for _, tk := range t.ticketView() {
		if tk.FlightNumber == n && tk.BookingStatus == model.BookingConfirmed {
			c++
		}
	}
	return c, nil
}

func (t *tx) SeatTaken(_ context.Context, n string, class model.SeatClass, seat string) (bool, error) {
	for _, tk := range t.ticketView() {
		if tk.FlightNumber == n && tk.SeatClass == class && tk.SeatNumber == seat &&
			tk.BookingStatus == model.BookingConfirmed {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) GetAirport(_ context.Context, id string) (model.Airport, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	a, ok := t.s.airports[id]
	if !ok {
		return a, fmt.Errorf("airport %s: %w", id, repository.ErrNotFound)
	}
	return a, nil
}

func (t *tx) GetPassenger(_ context.Context, id int64) (model.Passenger, error) {
	if p, ok := t.passengers[id]; ok {
		return p, nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	p, ok := t.s.passengers[id]
	if !ok {
		return p, fmt.Errorf("passenger %d: %w", id, repository.ErrNotFound)
	}
	return p, nil
}

func (t *tx) emailID(email string) (int64, bool) {
	if id, ok := t.emails[email]; ok {
		return id, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	id, ok := t.s.emails[email]
	return id, ok
}

func (t *tx) FindPassengerByEmail(ctx context.Context, email string) (model.Passenger, error) {
	email = model.NormalizeEmail(email)
	id, ok := t.emailID(email)
	if !ok {
		return model.Passenger{}, fmt.Errorf("passenger %s: %w", email, repository.ErrNotFound)
	}
	return t.GetPassenger(ctx, id)
}

// InsertPassenger holds the email's key until the unit ends, so a second
// unit inserting the same email waits and then sees ErrDuplicate.
func (t *tx) InsertPassenger(ctx context.Context, p model.Passenger) (int64, error) {
	p.Email = model.NormalizeEmail(p.Email)
	if err := t.lock(ctx, "email:"+p.Email); err != nil {
		return 0, err
	}
	if _, ok := t.emailID(p.Email); ok {
		return 0, fmt.Errorf("passenger %s: %w", p.Email, repository.ErrDuplicate)
	}
	p.ID = t.s.next("passenger")
	t.passengers[p.ID] = p
	t.emails[p.Email] = p.ID
	return p.ID, nil
}

func (t *tx) InsertTicket(_ context.Context, tk model.Ticket) error {
	view := t.ticketView()
	if _, ok := view[tk.OrderNumber]; ok {
		return fmt.Errorf("ticket %s: %w", tk.OrderNumber, repository.ErrDuplicate)
	}
	for _, o := range view {
		if o.FlightNumber == tk.FlightNumber && o.SeatClass == tk.SeatClass &&
			o.SeatNumber == tk.SeatNumber && o.BookingStatus == model.BookingConfirmed {
			return fmt.Errorf("seat %s %s on %s: %w", tk.SeatClass, tk.SeatNumber, tk.FlightNumber, repository.ErrDuplicate)
		}
	}
	t.tickets[tk.OrderNumber] = tk
	return nil
}

func (t *tx) GetTicket(_ context.Context, order string) (model.Ticket, error) {
	if tk, ok := t.tickets[order]; ok {
		return tk, nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	tk, ok := t.s.tickets[order]
	if !ok {
		return tk, fmt.Errorf("ticket %s: %w", order, repository.ErrNotFound)
	}
	return tk, nil
}

// LockTicket relies on the caller holding the flight lock, which guards
// every write to the flight's tickets.
func (t *tx) LockTicket(ctx context.Context, order string) (model.Ticket, error) {
	return t.GetTicket(ctx, order)
}

func (t *tx) MarkTicketCancelled(ctx context.Context, order, reason string) error {
	tk, err := t.GetTicket(ctx, order)
	if err != nil {
		return err
	}
	tk.BookingStatus = model.BookingCancelled
	r := reason
	tk.CancellationReason = &r
	t.tickets[order] = tk
	return nil
}

func (t *tx) InsertCancellationLog(_ context.Context, l model.CancellationLog) error {
	t.logs = append(t.logs, l)
	return nil
}
