package handler

import (
	"context"
	"math"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/airport-booking/internal/model"
)

// AirportLister lists airports.
type AirportLister interface {
	ListAirports(ctx context.Context) ([]model.Airport, error)
}

// AirportHandler serves airport reference data.
type AirportHandler struct {
	Airports AirportLister
	Fares    Fares
}

// NewAirportHandler panics if any dependency is nil.
func NewAirportHandler(airports AirportLister, fares Fares) *AirportHandler {
	if airports == nil || fares == nil {
		panic("nil dependency passed to NewAirportHandler")
	}
	return &AirportHandler{Airports: airports, Fares: fares}
}

func (h *AirportHandler) ListAirports(c echo.Context) error {
	as, err := h.Airports.ListAirports(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusOK, as)
}

// Distance returns the great-circle distance between two airports in
// kilometres, rounded to one decimal.
func (h *AirportHandler) Distance(c echo.Context) error {
	from := strings.ToUpper(c.Param("departure"))
	to := strings.ToUpper(c.Param("arrival"))
	km, err := h.Fares.Distance(c.Request().Context(), from, to)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":           true,
		"departure_airport": from,
		"arrival_airport":   to,
		"distance_km":       math.Round(km*10) / 10,
	})
}
