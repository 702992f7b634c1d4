// Package memstore is an in-process implementation of the booking store
// and of the workforce and report repositories. A unit of work stages
// its writes and applies them on commit; row locks are per-key and held
// until the unit ends, so two units touching the same flight serialize
// while units on different flights run in parallel.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/iliyamo/airport-booking/internal/model"
	"github.com/iliyamo/airport-booking/internal/report"
	"github.com/iliyamo/airport-booking/internal/repository"
	"github.com/iliyamo/airport-booking/internal/workforce"
)

var (
	_ repository.TxStore   = (*Store)(nil)
	_ workforce.Repository = (*Store)(nil)
	_ report.Reader        = (*Store)(nil)
)

// Store holds committed state.
type Store struct {
	mu            sync.RWMutex
	flights       map[string]model.Flight
	tickets       map[string]model.Ticket
	passengers    map[int64]model.Passenger
	emails        map[string]int64
	airports      map[string]model.Airport
	cancellations []model.CancellationLog
	workers       map[int64]model.Worker
	stores        map[int64]model.Store
	seq           map[string]int64

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// New returns an empty store.
func New() *Store {
	return &Store{
		flights:    map[string]model.Flight{},
		tickets:    map[string]model.Ticket{},
		passengers: map[int64]model.Passenger{},
		emails:     map[string]int64{},
		airports:   map[string]model.Airport{},
		workers:    map[int64]model.Worker{},
		stores:     map[int64]model.Store{},
		seq:        map[string]int64{},
		locks:      map[string]chan struct{}{},
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// PutAirport inserts or replaces an airport.
func (s *Store) PutAirport(a model.Airport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.airports[a.ID] = a
}

// PutFlight inserts or replaces a flight as-is, bypassing validation.
func (s *Store) PutFlight(f model.Flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flights[f.FlightNumber] = f
}

// ListAirports returns airports ordered by id.
func (s *Store) ListAirports(context.Context) ([]model.Airport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Airport, 0, len(s.airports))
	for _, a := range s.airports {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Cancellations returns a copy of the cancellation log.
func (s *Store) Cancellations() []model.CancellationLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.CancellationLog(nil), s.cancellations...)
}

// next allocates an id from the named sequence. Ids consumed by rolled
// back units are not reused.
func (s *Store) next(name string) int64 {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	s.seq[name]++
	return s.seq[name]
}

// acquire takes the row lock for key, waiting until ctx is done.
func (s *Store) acquire(ctx context.Context, key string) error {
	s.locksMu.Lock()
	ch, ok := s.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[key] = ch
	}
	s.locksMu.Unlock()

	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: lock wait on %s: %v", repository.ErrTransient, key, ctx.Err())
		}
		return ctx.Err()
	}
}

func (s *Store) release(key string) {
	s.locksMu.Lock()
	ch := s.locks[key]
	s.locksMu.Unlock()
	<-ch
}

// InTx runs fn as one unit of work.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := &tx{
		s:          s,
		held:       map[string]bool{},
		flights:    map[string]model.Flight{},
		tickets:    map[string]model.Ticket{},
		passengers: map[int64]model.Passenger{},
		emails:     map[string]int64{},
	}
	defer t.releaseAll()

	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: commit: %v", repository.ErrTransient, err)
		}
		return err
	}
	t.commit()
	return nil
}

// --- workforce.Repository ---

func (s *Store) ListWorkers(_ context.Context, airportID string) ([]model.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Worker
	for _, w := range s.workers {
		if airportID == "" || w.AirportID == airportID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetWorker(_ context.Context, id int64) (model.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workers[id]
	if !ok {
		return w, fmt.Errorf("worker %d: %w", id, repository.ErrNotFound)
	}
	return w, nil
}

func (s *Store) InsertWorker(_ context.Context, w model.Worker) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.Email != nil {
		for _, o := range s.workers {
			if o.Email != nil && *o.Email == *w.Email {
				return 0, fmt.Errorf("worker email %s: %w", *w.Email, repository.ErrDuplicate)
			}
		}
	}
	w.ID = s.next("worker")
	s.workers[w.ID] = w
	return w.ID, nil
}

func (s *Store) UpdateWorkerJob(_ context.Context, id int64, job string, role model.Role, paymentCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workers[id]
	if !ok {
		return fmt.Errorf("worker %d: %w", id, repository.ErrNotFound)
	}
	w.Job, w.Role, w.PaymentCents = job, role, paymentCents
	s.workers[id] = w
	return nil
}

func (s *Store) GetStore(_ context.Context, id int64) (model.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stores[id]
	if !ok {
		return st, fmt.Errorf("store %d: %w", id, repository.ErrNotFound)
	}
	return st, nil
}

func (s *Store) ListStores(_ context.Context, airportID string) ([]model.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Store
	for _, st := range s.stores {
		if airportID == "" || st.AirportID == airportID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) InsertStore(_ context.Context, st model.Store) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.airports[st.AirportID]; !ok {
		return 0, fmt.Errorf("airport %s: %w", st.AirportID, repository.ErrNotFound)
	}
	st.ID = s.next("store")
	s.stores[st.ID] = st
	return st.ID, nil
}

// PutWorker stores w with its id unchanged, for seeding.
func (s *Store) PutWorker(w model.Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers[w.ID] = w
	s.locksMu.Lock()
	if w.ID > s.seq["worker"] {
		s.seq["worker"] = w.ID
	}
	s.locksMu.Unlock()
}
