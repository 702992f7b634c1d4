package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/airport-booking/internal/middleware"
	"github.com/iliyamo/airport-booking/internal/model"
)

// RegisterStaff registers flight operations and workforce management.
// Every route requires a role header naming one of the allowed roles.
func RegisterStaff(g *echo.Group, h Handlers) {
	flightOps := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleAirportStaff)
	managers := middleware.RequireRole(model.RoleAdmin, model.RoleManager)
	admin := middleware.RequireRole(model.RoleAdmin)

	// ---- Flights ----
	g.POST("/flights", h.Flights.CreateFlight, flightOps)
	g.PATCH("/flights/:flight_number/status", h.Flights.UpdateStatus, flightOps)

	// ---- Workers ----
	g.GET("/workers", h.Workers.ListWorkers, managers)
	g.POST("/workers/hire", h.Workers.Hire, managers)
	g.PATCH("/workers/:worker_id/job", h.Workers.ChangeJob, admin)
	g.GET("/workers/:worker_id/earnings", h.Workers.Earnings, managers)
	g.GET("/workers/:worker_id/promotion", h.Workers.Promotion, managers)

	// ---- Stores ----
	g.GET("/stores", h.Workers.ListStores, admin)
	g.POST("/admin/stores", h.Workers.CreateStore, admin)
}
