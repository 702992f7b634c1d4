package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/airport-booking/internal/model"
	"github.com/iliyamo/airport-booking/internal/report"
)

// Reports is the read side used by passenger and back-office endpoints.
type Reports interface {
	Loyalty(ctx context.Context, passengerID int64) (report.Loyalty, error)
	Bookings(ctx context.Context, passengerID int64) ([]model.Booking, error)
	Dashboard(ctx context.Context) (report.Dashboard, error)
	FlightRevenue(ctx context.Context, from, to time.Time) ([]report.FlightRevenue, error)
	CompanyRevenue(ctx context.Context, companyID int64) (report.CompanyRevenue, error)
	AirportWorkers(ctx context.Context, airportID string) (report.WorkerCount, error)
}

// PassengerHandler serves a passenger's own history.
type PassengerHandler struct {
	Reports Reports
}

// NewPassengerHandler panics on a nil reader.
func NewPassengerHandler(r Reports) *PassengerHandler {
	if r == nil {
		panic("nil reports passed to NewPassengerHandler")
	}
	return &PassengerHandler{Reports: r}
}

// Bookings lists every ticket of the passenger, newest first.
func (h *PassengerHandler) Bookings(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid passenger id")
	}
	bs, err := h.Reports.Bookings(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusOK, bs)
}

// Loyalty reports the passenger's tier and the spend behind it.
func (h *PassengerHandler) Loyalty(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid passenger id")
	}
	l, err := h.Reports.Loyalty(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"passenger_id": l.PassengerID,
		"loyalty_tier": l.Tier,
		"tickets":      l.Tickets,
		"spent_cents":  l.SpentCents,
	})
}
