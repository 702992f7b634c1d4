package model

import (
	"strings"
	"time"
)

// FlightStatus is the lifecycle state of a flight.
type FlightStatus string

const (
	FlightScheduled FlightStatus = "scheduled"
	FlightBoarding  FlightStatus = "boarding"
	FlightDeparted  FlightStatus = "departed"
	FlightArrived   FlightStatus = "arrived"
	FlightCancelled FlightStatus = "cancelled"
)

// flightOrder ranks the forward lifecycle. Cancelled is outside the order.
var flightOrder = map[FlightStatus]int{
	FlightScheduled: 0,
	FlightBoarding:  1,
	FlightDeparted:  2,
	FlightArrived:   3,
}

// ParseFlightStatus accepts any casing of a known status.
func ParseFlightStatus(s string) (FlightStatus, bool) {
	st := FlightStatus(strings.ToLower(strings.TrimSpace(s)))
	if st == FlightCancelled {
		return st, true
	}
	_, ok := flightOrder[st]
	return st, ok
}

// Terminal reports whether no further transition is possible.
func (s FlightStatus) Terminal() bool {
	return s == FlightArrived || s == FlightCancelled
}

// Bookable reports whether tickets may be sold in this state.
func (s FlightStatus) Bookable() bool {
	return s == FlightScheduled || s == FlightBoarding
}

// CanTransition reports whether a flight in status s may move to next.
// Steps only go forward; cancelled is reachable from any non-terminal
// state. Re-applying the current status is not a transition.
func (s FlightStatus) CanTransition(next FlightStatus) bool {
	if s.Terminal() || s == next {
		return false
	}
	if next == FlightCancelled {
		return true
	}
	from, ok1 := flightOrder[s]
	to, ok2 := flightOrder[next]
	return ok1 && ok2 && to > from
}

// Flight is a scheduled flight between two airports. It corresponds to
// a row in the `flights` table.
//
// Fields:
//  FlightNumber     – unique identifier, e.g. AI101.
//  DepartureAirport – airport code of the origin.
//  ArrivalAirport   – airport code of the destination.
//  FlightDate       – calendar date of departure (UTC midnight).
//  DepartureTime    – offset from midnight of FlightDate.
//  ArrivalTime      – offset from midnight, may be smaller than
//                     DepartureTime for overnight flights.
//  TotalSeats       – fixed capacity.
//  AvailableSeats   – seats still for sale.
//  Status           – lifecycle state.
//  FlightCompanyID  – operating company (nil when unknown).
type Flight struct {
	FlightNumber     string        `json:"flight_number"`
	DepartureAirport string        `json:"departure_airport"`
	ArrivalAirport   string        `json:"arrival_airport"`
	FlightDate       time.Time     `json:"flight_date"`
	DepartureTime    time.Duration `json:"-"`
	ArrivalTime      time.Duration `json:"-"`
	TotalSeats       int           `json:"total_seats"`
	AvailableSeats   int           `json:"available_seats"`
	Status           FlightStatus  `json:"status"`
	FlightCompanyID  *int64        `json:"flight_company_id,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// Duration returns the block time, wrapping past midnight.
func (f Flight) Duration() time.Duration {
	d := f.ArrivalTime - f.DepartureTime
	if d < 0 {
		d += 24 * time.Hour
	}
	return d
}

// Occupancy is the sold fraction of the flight in [0,1].
func (f Flight) Occupancy() float64 {
	if f.TotalSeats <= 0 {
		return 0
	}
	return float64(f.TotalSeats-f.AvailableSeats) / float64(f.TotalSeats)
}

// Departs returns the absolute departure instant.
func (f Flight) Departs() time.Time {
	return f.FlightDate.Add(f.DepartureTime)
}

// FormatClock renders an offset from midnight as HH:MM:SS.
func FormatClock(d time.Duration) string {
	t := time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(d)
	return t.Format("15:04:05")
}

// ParseClock parses HH:MM or HH:MM:SS into an offset from midnight.
func ParseClock(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, true
		}
	}
	return 0, false
}
