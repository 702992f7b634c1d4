package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/airport-booking/internal/model"
	"github.com/iliyamo/airport-booking/internal/report"
	"github.com/iliyamo/airport-booking/internal/repository"
)

func (s *Store) GetPassenger(_ context.Context, id int64) (model.Passenger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.passengers[id]
	if !ok {
		return p, fmt.Errorf("passenger %d: %w", id, repository.ErrNotFound)
	}
	return p, nil
}

func (s *Store) PassengerSpend(_ context.Context, id int64) (report.Spend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sp report.Spend
	for _, t := range s.tickets {
		if t.PassengerID == id && t.BookingStatus == model.BookingConfirmed {
			sp.Tickets++
			sp.SpentCents += t.PriceCents
		}
	}
	return sp, nil
}

func (s *Store) PassengerBookings(_ context.Context, id int64) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Booking{}
	for _, t := range s.tickets {
		if t.PassengerID != id {
			continue
		}
		f := s.flights[t.FlightNumber]
		out = append(out, model.Booking{
			Ticket:           t,
			DepartureAirport: f.DepartureAirport,
			ArrivalAirport:   f.ArrivalAirport,
			FlightDate:       f.FlightDate,
			FlightStatus:     f.Status,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookedAt.After(out[j].BookedAt) })
	return out, nil
}

func (s *Store) Dashboard(_ context.Context, today, since time.Time) (report.Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var d report.Dashboard
	for _, f := range s.flights {
		if !f.FlightDate.Before(today) {
			d.UpcomingFlights++
		}
	}
	pax := map[int64]bool{}
	for _, t := range s.tickets {
		if t.BookingStatus != model.BookingConfirmed {
			continue
		}
		pax[t.PassengerID] = true
		if !t.BookedAt.Before(since) {
			d.RevenueLast7dCents += t.PriceCents
		}
	}
	d.Passengers = len(pax)
	for _, w := range s.workers {
		if w.Status == model.WorkerActive {
			d.ActiveWorkers++
		}
	}
	return d, nil
}

func (s *Store) FlightRevenue(_ context.Context, from, to time.Time) ([]report.FlightRevenue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	by := map[string]*report.FlightRevenue{}
	for _, f := range s.flights {
		if f.FlightDate.Before(from) || f.FlightDate.After(to) {
			continue
		}
		by[f.FlightNumber] = &report.FlightRevenue{FlightNumber: f.FlightNumber, FlightDate: f.FlightDate}
	}
	for _, t := range s.tickets {
		r, ok := by[t.FlightNumber]
		if !ok {
			continue
		}
		if t.BookingStatus == model.BookingConfirmed {
			r.ConfirmedTickets++
			r.RevenueCents += t.PriceCents
		} else {
			r.CancelledTickets++
		}
	}
	out := make([]report.FlightRevenue, 0, len(by))
	for _, r := range by {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RevenueCents != out[j].RevenueCents {
			return out[i].RevenueCents > out[j].RevenueCents
		}
		return out[i].FlightNumber < out[j].FlightNumber
	})
	return out, nil
}

func (s *Store) CompanyRevenue(_ context.Context, companyID int64) (report.CompanyRevenue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := report.CompanyRevenue{CompanyID: companyID}
	own := map[string]bool{}
	for _, f := range s.flights {
		if f.FlightCompanyID != nil && *f.FlightCompanyID == companyID {
			own[f.FlightNumber] = true
			out.Flights++
		}
	}
	for _, t := range s.tickets {
		if own[t.FlightNumber] && t.BookingStatus == model.BookingConfirmed {
			out.ConfirmedTickets++
			out.RevenueCents += t.PriceCents
		}
	}
	return out, nil
}

func (s *Store) ActiveWorkers(_ context.Context, airportID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, w := range s.workers {
		if w.AirportID == airportID && w.Status == model.WorkerActive {
			n++
		}
	}
	return n, nil
}
