package handler

import (
	"context"
	"math"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/airport-booking/internal/booking"
	"github.com/iliyamo/airport-booking/internal/model"
)

// FlightCatalog is the catalog surface used by the flight endpoints.
type FlightCatalog interface {
	GetFlight(ctx context.Context, flightNumber string) (model.Flight, error)
	ListActiveFlights(ctx context.Context) ([]model.Flight, error)
	CreateFlight(ctx context.Context, spec booking.FlightSpec) (model.Flight, error)
	SetStatus(ctx context.Context, flightNumber string, next model.FlightStatus) error
}

// Fares quotes prices and airport distances.
type Fares interface {
	Price(ctx context.Context, flightNumber, seatClass string) (int64, error)
	Distance(ctx context.Context, from, to string) (float64, error)
}

// FlightHandler serves flight browsing and flight administration.
type FlightHandler struct {
	Catalog FlightCatalog
	Fares   Fares
	Tickets Tickets
}

// NewFlightHandler panics if any dependency is nil.
func NewFlightHandler(catalog FlightCatalog, fares Fares, tickets Tickets) *FlightHandler {
	if catalog == nil || fares == nil || tickets == nil {
		panic("nil dependency passed to NewFlightHandler")
	}
	return &FlightHandler{Catalog: catalog, Fares: fares, Tickets: tickets}
}

// flightView renders schedule fields the way clients send them.
type flightView struct {
	model.Flight
	FlightDate    string `json:"flight_date"`
	DepartureHour string `json:"departure_hour"`
	ArrivalHour   string `json:"arrival_hour"`
}

func viewFlight(f model.Flight) flightView {
	return flightView{
		Flight:        f,
		FlightDate:    f.FlightDate.Format("2006-01-02"),
		DepartureHour: model.FormatClock(f.DepartureTime),
		ArrivalHour:   model.FormatClock(f.ArrivalTime),
	}
}

// ListFlights returns scheduled and boarding flights in departure order.
func (h *FlightHandler) ListFlights(c echo.Context) error {
	fs, err := h.Catalog.ListActiveFlights(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	out := make([]flightView, 0, len(fs))
	for _, f := range fs {
		out = append(out, viewFlight(f))
	}
	return data(c, http.StatusOK, out)
}

func (h *FlightHandler) GetFlight(c echo.Context) error {
	f, err := h.Catalog.GetFlight(c.Request().Context(), c.Param("flight_number"))
	if err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusOK, viewFlight(f))
}

type createFlightReq struct {
	FlightNumber     string `json:"flight_number"`
	DepartureAirport string `json:"departure_airport"`
	ArrivalAirport   string `json:"arrival_airport"`
	FlightDate       string `json:"flight_date"`
	DepartureHour    string `json:"departure_hour"`
	ArrivalHour      string `json:"arrival_hour"`
	TotalSeats       int    `json:"total_seats"`
	FlightCompanyID  *int64 `json:"flight_company_id"`
}

// CreateFlight adds a scheduled flight with every seat available.
func (h *FlightHandler) CreateFlight(c echo.Context) error {
	var req createFlightReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	date, ok := parseDate(req.FlightDate)
	if !ok {
		return badRequest(c, "flight_date must be YYYY-MM-DD")
	}
	dep, ok1 := model.ParseClock(req.DepartureHour)
	arr, ok2 := model.ParseClock(req.ArrivalHour)
	if !ok1 || !ok2 {
		return badRequest(c, "departure_hour and arrival_hour must be HH:MM or HH:MM:SS")
	}
	f, err := h.Catalog.CreateFlight(c.Request().Context(), booking.FlightSpec{
		FlightNumber:     req.FlightNumber,
		DepartureAirport: req.DepartureAirport,
		ArrivalAirport:   req.ArrivalAirport,
		FlightDate:       date,
		DepartureTime:    dep,
		ArrivalTime:      arr,
		TotalSeats:       req.TotalSeats,
		FlightCompanyID:  req.FlightCompanyID,
	})
	if err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusCreated, viewFlight(f))
}

// UpdateStatus moves a flight along its status machine.
func (h *FlightHandler) UpdateStatus(c echo.Context) error {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	st, ok := model.ParseFlightStatus(req.Status)
	if !ok {
		return badRequest(c, "status must be one of scheduled, boarding, departed, arrived, cancelled")
	}
	ctx := c.Request().Context()
	fn := c.Param("flight_number")
	if err := h.Catalog.SetStatus(ctx, fn, st); err != nil {
		return fail(c, err)
	}
	f, err := h.Catalog.GetFlight(ctx, fn)
	if err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusOK, viewFlight(f))
}

// Price quotes the current fare of one seat class.
func (h *FlightHandler) Price(c echo.Context) error {
	fn := strings.ToUpper(c.Param("flight_number"))
	cents, err := h.Fares.Price(c.Request().Context(), fn, c.Param("seat_class"))
	if err != nil {
		return fail(c, err)
	}
	class, _ := model.ParseSeatClass(c.Param("seat_class"))
	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"flight_number": fn,
		"seat_class":    class,
		"price":         major(cents),
		"price_cents":   cents,
	})
}

// Occupancy reports the sold share of seats as a percentage.
func (h *FlightHandler) Occupancy(c echo.Context) error {
	f, err := h.Catalog.GetFlight(c.Request().Context(), c.Param("flight_number"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"flight_number": f.FlightNumber,
		"occupancy":     math.Round(f.Occupancy()*10000) / 100,
	})
}

func (h *FlightHandler) AvailableSeats(c echo.Context) error {
	f, err := h.Catalog.GetFlight(c.Request().Context(), c.Param("flight_number"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":         true,
		"flight_number":   f.FlightNumber,
		"available_seats": f.AvailableSeats,
		"total_seats":     f.TotalSeats,
	})
}

// TicketsSold counts confirmed tickets of the flight.
func (h *FlightHandler) TicketsSold(c echo.Context) error {
	fn := c.Param("flight_number")
	n, err := h.Tickets.TicketsSold(c.Request().Context(), fn)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "flight_number": strings.ToUpper(fn), "tickets_sold": n})
}
