package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/airport-booking/internal/report"
	"github.com/iliyamo/airport-booking/internal/workforce"
)

// ReportHandler serves back-office reports. Its routes sit behind the
// response cache, so handlers must stay free of side effects.
type ReportHandler struct {
	Reports   Reports
	Workforce Workforce
}

// NewReportHandler panics if any dependency is nil.
func NewReportHandler(r Reports, w Workforce) *ReportHandler {
	if r == nil || w == nil {
		panic("nil dependency passed to NewReportHandler")
	}
	return &ReportHandler{Reports: r, Workforce: w}
}

func (h *ReportHandler) Dashboard(c echo.Context) error {
	d, err := h.Reports.Dashboard(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":             true,
		"total_flights":       d.UpcomingFlights,
		"total_passengers":    d.Passengers,
		"total_revenue":       major(d.RevenueLast7dCents),
		"total_revenue_cents": d.RevenueLast7dCents,
		"total_workers":       d.ActiveWorkers,
	})
}

// Payroll aggregates active workers per airport, optionally for one.
func (h *ReportHandler) Payroll(c echo.Context) error {
	var req struct {
		AirportID string `json:"airport_id"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	lines, err := h.Workforce.Payroll(c.Request().Context(), req.AirportID)
	if err != nil {
		return fail(c, err)
	}
	if lines == nil {
		lines = []workforce.PayrollLine{}
	}
	return data(c, http.StatusOK, lines)
}

// FlightRevenue reports ticket revenue per flight dated in the range.
func (h *ReportHandler) FlightRevenue(c echo.Context) error {
	var req struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	from, ok1 := parseDate(req.StartDate)
	to, ok2 := parseDate(req.EndDate)
	if !ok1 || !ok2 {
		return fail(c, report.ErrInvalidRange)
	}
	rows, err := h.Reports.FlightRevenue(c.Request().Context(), from, to)
	if err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusOK, rows)
}

// CompanyRevenue totals confirmed ticket revenue of one flight company.
func (h *ReportHandler) CompanyRevenue(c echo.Context) error {
	id, ok := pathID(c, "company_id")
	if !ok {
		return badRequest(c, "invalid company id")
	}
	r, err := h.Reports.CompanyRevenue(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":             true,
		"company_id":          r.CompanyID,
		"flights":             r.Flights,
		"confirmed_tickets":   r.ConfirmedTickets,
		"total_revenue":       major(r.RevenueCents),
		"total_revenue_cents": r.RevenueCents,
	})
}

func (h *ReportHandler) AirportWorkers(c echo.Context) error {
	wc, err := h.Reports.AirportWorkers(c.Request().Context(), c.Param("airport_id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"airport_id":   wc.AirportID,
		"worker_count": wc.Workers,
	})
}
