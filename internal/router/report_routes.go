package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/airport-booking/internal/middleware"
	"github.com/iliyamo/airport-booking/internal/model"
)

// RegisterReports registers the back-office reports for Admin and
// Manager. The role check runs before the cache so a cached response is
// never served to a caller who may not see it.
func RegisterReports(g *echo.Group, h Handlers, cache echo.MiddlewareFunc) {
	mw := chain(middleware.RequireRole(model.RoleAdmin, model.RoleManager), cache)
	g.GET("/dashboard/stats", h.Reports.Dashboard, mw...)
	g.POST("/reports/payroll", h.Reports.Payroll, mw...)
	g.POST("/reports/flight-revenue", h.Reports.FlightRevenue, mw...)
	g.GET("/flight-companies/:company_id/revenue", h.Reports.CompanyRevenue, mw...)
	g.GET("/airports/:airport_id/workers/count", h.Reports.AirportWorkers, mw...)
}
