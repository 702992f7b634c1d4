package booking

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jftuga/geodist"

	"github.com/iliyamo/airport-booking/internal/model"
	"github.com/iliyamo/airport-booking/internal/repository"
)

// DemandTier raises the fare once occupancy reaches Threshold.
type DemandTier struct {
	Threshold  float64
	Multiplier float64
}

// FarePolicy holds the pricing parameters. All amounts are in cents.
type FarePolicy struct {
	BaseCents      float64
	PerKmCents     float64
	PerMinuteCents float64
	Multipliers    map[model.SeatClass]float64
	DemandTiers    []DemandTier
}

// DefaultFarePolicy returns the stock pricing parameters.
func DefaultFarePolicy() FarePolicy {
	return FarePolicy{
		BaseCents:  150000,
		PerKmCents: 600,
		Multipliers: map[model.SeatClass]float64{
			model.Economy:  1.0,
			model.Business: 2.5,
			model.First:    4.0,
		},
		DemandTiers: []DemandTier{{0.5, 1.1}, {0.75, 1.25}, {0.9, 1.5}},
	}
}

// Validate rejects policies that could price below zero or make the
// fare fall as occupancy rises.
func (p FarePolicy) Validate() error {
	if p.BaseCents < 0 || p.PerKmCents < 0 || p.PerMinuteCents < 0 {
		return errors.New("fare amounts must not be negative")
	}
	for _, c := range model.SeatClasses {
		if m, ok := p.Multipliers[c]; !ok || m <= 0 {
			return fmt.Errorf("multiplier for %s must be positive", c)
		}
	}
	prev := DemandTier{Threshold: 0, Multiplier: 1}
	for i, t := range p.DemandTiers {
		if t.Threshold < 0 || t.Threshold > 1 {
			return fmt.Errorf("demand tier %d: threshold %.2f outside [0,1]", i, t.Threshold)
		}
		if t.Threshold < prev.Threshold || t.Multiplier < prev.Multiplier {
			return fmt.Errorf("demand tier %d: thresholds and multipliers must be non-decreasing", i)
		}
		prev = t
	}
	return nil
}

// demand returns the multiplier of the highest tier reached.
func (p FarePolicy) demand(occupancy float64) float64 {
	m := 1.0
	for _, t := range p.DemandTiers {
		if occupancy >= t.Threshold {
			m = t.Multiplier
		}
	}
	return m
}

// Quote prices one seat on f. It is a pure function of its inputs.
func (p FarePolicy) Quote(f model.Flight, class model.SeatClass, distanceKm float64) int64 {
	base := p.BaseCents + p.PerKmCents*distanceKm + p.PerMinuteCents*f.Duration().Minutes()
	return int64(math.Round(base * p.Multipliers[class] * p.demand(f.Occupancy())))
}

// DistanceKm is the Vincenty distance between two airports, or 0 when
// either lacks coordinates or the formula does not converge.
func DistanceKm(from, to model.Airport) float64 {
	if !from.HasCoordinates() || !to.HasCoordinates() {
		return 0
	}
	_, km, err := geodist.VincentyDistance(
		geodist.Coord{Lat: *from.Latitude, Lon: *from.Longitude},
		geodist.Coord{Lat: *to.Latitude, Lon: *to.Longitude},
	)
	if err != nil {
		return 0
	}
	return km
}

// FareCalculator prices seats against the current flight state.
type FareCalculator struct {
	store  Store
	policy FarePolicy
}

// NewFareCalculator returns a calculator using policy.
func NewFareCalculator(store Store, policy FarePolicy) *FareCalculator {
	if store == nil {
		panic("booking: nil store")
	}
	return &FareCalculator{store: store, policy: policy}
}

// Policy returns the active pricing parameters.
func (c *FareCalculator) Policy() FarePolicy { return c.policy }

// Price quotes a seat class on a flight at its committed occupancy.
func (c *FareCalculator) Price(ctx context.Context, flightNumber, seatClass string) (int64, error) {
	class, ok := model.ParseSeatClass(seatClass)
	if !ok {
		return 0, ErrInvalidSeatClass
	}
	var price int64
	err := c.store.InTx(ctx, func(tx Tx) error {
		f, err := getFlight(ctx, tx, flightNumber)
		if err != nil {
			return err
		}
		price, err = c.priceTx(ctx, tx, f, class)
		return err
	})
	return price, storeErr(err)
}

// Distance resolves two airports and returns the kilometres between them.
func (c *FareCalculator) Distance(ctx context.Context, from, to string) (float64, error) {
	var km float64
	err := c.store.InTx(ctx, func(tx Tx) error {
		a, err := tx.GetAirport(ctx, from)
		if err != nil {
			return err
		}
		b, err := tx.GetAirport(ctx, to)
		if err != nil {
			return err
		}
		km = DistanceKm(a, b)
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return 0, newKind(ErrNotFound, "airport not found")
	}
	return km, storeErr(err)
}

// priceTx prices against the flight as already read inside tx.
func (c *FareCalculator) priceTx(ctx context.Context, tx Tx, f model.Flight, class model.SeatClass) (int64, error) {
	from, err := tx.GetAirport(ctx, f.DepartureAirport)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return 0, err
	}
	to, err := tx.GetAirport(ctx, f.ArrivalAirport)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return 0, err
	}
	return c.policy.Quote(f, class, DistanceKm(from, to)), nil
}
