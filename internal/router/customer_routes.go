package router

import (
	"github.com/labstack/echo/v4"
)

// RegisterCustomer registers passenger endpoints. Booking and
// cancellation sit behind the rate limiter; passengers are identified by
// order number or passenger id, not by a session.
func RegisterCustomer(g *echo.Group, h Handlers, rateLimit echo.MiddlewareFunc) {
	limited := chain(rateLimit)
	g.POST("/tickets", h.Tickets.Book, limited...)
	g.POST("/tickets/:order_number/cancel", h.Tickets.Cancel, limited...)
	g.GET("/tickets/:order_number", h.Tickets.GetTicket)

	g.GET("/passengers/:id/bookings", h.Passengers.Bookings)
	g.GET("/passengers/:id/loyalty", h.Passengers.Loyalty)
}
