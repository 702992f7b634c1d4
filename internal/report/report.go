// Package report serves read-only aggregations over committed tickets,
// flights and workers: passenger loyalty, booking history, the operator
// dashboard, per-flight and per-company revenue and airport headcount.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/airport-booking/internal/model"
)

// ErrInvalidRange is returned for an empty or inverted date range.
var ErrInvalidRange = errors.New("invalid date range")

// ErrInvalidKey is returned for a malformed company id or airport code.
var ErrInvalidKey = errors.New("invalid report key")

// Tier is a passenger loyalty level.
type Tier string

const (
	Bronze   Tier = "Bronze"
	Silver   Tier = "Silver"
	Gold     Tier = "Gold"
	Platinum Tier = "Platinum"
)

// tierRules are checked from the top; reaching either bound qualifies.
var tierRules = []struct {
	tier       Tier
	spentCents int64
	tickets    int
}{
	{Platinum, 5_000_000, 20},
	{Gold, 2_000_000, 10},
	{Silver, 500_000, 5},
}

// Spend summarizes a passenger's confirmed tickets.
type Spend struct {
	Tickets    int   `json:"tickets"`
	SpentCents int64 `json:"spent_cents"`
}

// TierFor classifies a spend summary.
func TierFor(s Spend) Tier {
	for _, r := range tierRules {
		if s.SpentCents >= r.spentCents || s.Tickets >= r.tickets {
			return r.tier
		}
	}
	return Bronze
}

// Loyalty is the response of the loyalty endpoint.
type Loyalty struct {
	PassengerID int64 `json:"passenger_id"`
	Tier        Tier  `json:"loyalty_tier"`
	Spend
}

// Dashboard holds headline counters for the back office.
type Dashboard struct {
	UpcomingFlights    int   `json:"total_flights"`
	Passengers         int   `json:"total_passengers"`
	RevenueLast7dCents int64 `json:"total_revenue_cents"`
	ActiveWorkers      int   `json:"total_workers"`
}

// FlightRevenue is one row of the flight revenue report.
type FlightRevenue struct {
	FlightNumber     string    `json:"flight_number"`
	FlightDate       time.Time `json:"flight_date"`
	ConfirmedTickets int       `json:"confirmed_tickets"`
	RevenueCents     int64     `json:"revenue_cents"`
	CancelledTickets int       `json:"cancelled_tickets"`
}

// CompanyRevenue totals the confirmed tickets of one operating company.
type CompanyRevenue struct {
	CompanyID        int64 `json:"company_id"`
	Flights          int   `json:"flights"`
	ConfirmedTickets int   `json:"confirmed_tickets"`
	RevenueCents     int64 `json:"total_revenue_cents"`
}

// WorkerCount is the active headcount of one airport.
type WorkerCount struct {
	AirportID string `json:"airport_id"`
	Workers   int    `json:"worker_count"`
}

// Reader is the query surface behind the reports. Missing passengers
// fail with repository.ErrNotFound.
type Reader interface {
	GetPassenger(ctx context.Context, id int64) (model.Passenger, error)
	PassengerSpend(ctx context.Context, passengerID int64) (Spend, error)
	PassengerBookings(ctx context.Context, passengerID int64) ([]model.Booking, error)
	// Dashboard counts flights on or after today and revenue of tickets
	// booked at or after since.
	Dashboard(ctx context.Context, today, since time.Time) (Dashboard, error)
	// FlightRevenue covers flights dated within [from, to].
	FlightRevenue(ctx context.Context, from, to time.Time) ([]FlightRevenue, error)
	// CompanyRevenue is zero for a company without flights.
	CompanyRevenue(ctx context.Context, companyID int64) (CompanyRevenue, error)
	// ActiveWorkers counts active workers assigned to airportID.
	ActiveWorkers(ctx context.Context, airportID string) (int, error)
}

// Service answers report queries.
type Service struct {
	r   Reader
	now func() time.Time
}

// NewService returns a Service over r.
func NewService(r Reader) *Service {
	if r == nil {
		panic("report: nil reader")
	}
	return &Service{r: r, now: time.Now}
}

// Loyalty derives the tier of a passenger from confirmed tickets.
func (s *Service) Loyalty(ctx context.Context, passengerID int64) (Loyalty, error) {
	if _, err := s.r.GetPassenger(ctx, passengerID); err != nil {
		return Loyalty{}, err
	}
	sp, err := s.r.PassengerSpend(ctx, passengerID)
	if err != nil {
		return Loyalty{}, err
	}
	return Loyalty{PassengerID: passengerID, Tier: TierFor(sp), Spend: sp}, nil
}

// Bookings lists a passenger's tickets, newest first.
func (s *Service) Bookings(ctx context.Context, passengerID int64) ([]model.Booking, error) {
	if _, err := s.r.GetPassenger(ctx, passengerID); err != nil {
		return nil, err
	}
	return s.r.PassengerBookings(ctx, passengerID)
}

// Dashboard returns the headline counters as of now.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	now := s.now().UTC()
	today := now.Truncate(24 * time.Hour)
	return s.r.Dashboard(ctx, today, now.AddDate(0, 0, -7))
}

// FlightRevenue reports per-flight revenue for flights dated in [from, to].
func (s *Service) FlightRevenue(ctx context.Context, from, to time.Time) ([]FlightRevenue, error) {
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: start_date and end_date are required", ErrInvalidRange)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end_date before start_date", ErrInvalidRange)
	}
	return s.r.FlightRevenue(ctx, from, to)
}

// CompanyRevenue reports the confirmed revenue of one flight company.
func (s *Service) CompanyRevenue(ctx context.Context, companyID int64) (CompanyRevenue, error) {
	if companyID <= 0 {
		return CompanyRevenue{}, fmt.Errorf("%w: company_id must be positive", ErrInvalidKey)
	}
	return s.r.CompanyRevenue(ctx, companyID)
}

// AirportWorkers counts the active workers of an airport.
func (s *Service) AirportWorkers(ctx context.Context, airportID string) (WorkerCount, error) {
	airportID = strings.ToUpper(strings.TrimSpace(airportID))
	if len(airportID) != 3 {
		return WorkerCount{}, fmt.Errorf("%w: airport_id must be a 3-letter code", ErrInvalidKey)
	}
	n, err := s.r.ActiveWorkers(ctx, airportID)
	if err != nil {
		return WorkerCount{}, err
	}
	return WorkerCount{AirportID: airportID, Workers: n}, nil
}
