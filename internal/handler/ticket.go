package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/airport-booking/internal/booking"
	"github.com/iliyamo/airport-booking/internal/model"
)

// Tickets is the booking engine surface.
type Tickets interface {
	Book(ctx context.Context, req booking.BookingRequest) (model.Ticket, error)
	Cancel(ctx context.Context, orderNumber, reason string) (booking.Cancellation, error)
	GetTicket(ctx context.Context, orderNumber string) (model.Ticket, error)
	TicketsSold(ctx context.Context, flightNumber string) (int, error)
}

// TicketHandler sells and cancels tickets.
type TicketHandler struct {
	Tickets Tickets
}

// NewTicketHandler panics on a nil engine.
func NewTicketHandler(tickets Tickets) *TicketHandler {
	if tickets == nil {
		panic("nil engine passed to NewTicketHandler")
	}
	return &TicketHandler{Tickets: tickets}
}

type bookTicketReq struct {
	PassengerID     *int64 `json:"passenger_id"`
	PassengerName   string `json:"passenger_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Age             *int   `json:"age"`
	FlightNumber    string `json:"flight_number"`
	SeatNumber      string `json:"seat_number"`
	SeatClass       string `json:"seat_class"`
	FlightCompanyID *int64 `json:"flight_company_id"`
}

// Book sells one seat. The response carries the order number the
// passenger uses to look up or cancel the ticket.
func (h *TicketHandler) Book(c echo.Context) error {
	var req bookTicketReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	if req.FlightNumber == "" || req.SeatNumber == "" || req.SeatClass == "" {
		return badRequest(c, "flight_number, seat_number and seat_class are required")
	}
	t, err := h.Tickets.Book(c.Request().Context(), booking.BookingRequest{
		PassengerID:     req.PassengerID,
		Name:            req.PassengerName,
		Email:           req.Email,
		Phone:           req.Phone,
		Age:             req.Age,
		FlightNumber:    req.FlightNumber,
		SeatNumber:      req.SeatNumber,
		SeatClass:       req.SeatClass,
		FlightCompanyID: req.FlightCompanyID,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"order_number":  t.OrderNumber,
		"passenger_id":  t.PassengerID,
		"flight_number": t.FlightNumber,
		"seat_number":   t.SeatNumber,
		"seat_class":    t.SeatClass,
		"price":         major(t.PriceCents),
		"price_cents":   t.PriceCents,
	})
}

// Cancel voids a ticket and reports the refund.
func (h *TicketHandler) Cancel(c echo.Context) error {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	out, err := h.Tickets.Cancel(c.Request().Context(), c.Param("order_number"), req.Reason)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"message":      "Ticket cancelled",
		"order_number": out.Ticket.OrderNumber,
		"refund":       major(out.RefundCents),
		"refund_cents": out.RefundCents,
	})
}

func (h *TicketHandler) GetTicket(c echo.Context) error {
	t, err := h.Tickets.GetTicket(c.Request().Context(), c.Param("order_number"))
	if err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusOK, t)
}
