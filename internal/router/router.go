// Package router registers the HTTP API on an echo instance, one file per
// audience.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/airport-booking/internal/handler"
	"github.com/iliyamo/airport-booking/internal/middleware"
)

// Handlers bundles every endpoint group.
type Handlers struct {
	Health     *handler.HealthHandler
	Flights    *handler.FlightHandler
	Tickets    *handler.TicketHandler
	Passengers *handler.PassengerHandler
	Airports   *handler.AirportHandler
	Workers    *handler.WorkerHandler
	Reports    *handler.ReportHandler
}

// Options carries the cross-cutting middleware. Nil entries are skipped.
type Options struct {
	RoleHeader string
	UserHeader string
	RateLimit  echo.MiddlewareFunc // booking and cancellation
	Cache      echo.MiddlewareFunc // report endpoints
}

// Register mounts the whole API under /api. Caller identity is read from
// the role and user headers on every request; role checks are attached
// per route.
func Register(e *echo.Echo, h Handlers, opts Options) {
	api := e.Group("/api", middleware.Identity(opts.RoleHeader, opts.UserHeader))
	RegisterPublic(api, h)
	RegisterCustomer(api, h, opts.RateLimit)
	RegisterStaff(api, h)
	RegisterReports(api, h, opts.Cache)
}

// RegisterPublic exposes unauthenticated browse endpoints.
func RegisterPublic(g *echo.Group, h Handlers) {
	g.GET("/health", h.Health.Health)

	g.GET("/flights", h.Flights.ListFlights)
	g.GET("/flights/:flight_number", h.Flights.GetFlight)
	g.GET("/flights/:flight_number/price/:seat_class", h.Flights.Price)
	g.GET("/flights/:flight_number/occupancy", h.Flights.Occupancy)
	g.GET("/flights/:flight_number/available-seats", h.Flights.AvailableSeats)
	g.GET("/flights/:flight_number/tickets-sold", h.Flights.TicketsSold)

	g.GET("/airports", h.Airports.ListAirports)
	g.GET("/airports/:departure/:arrival/distance", h.Airports.Distance)
}

// chain drops nil middleware so optional layers can be passed through.
func chain(mw ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mw))
	for _, m := range mw {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
