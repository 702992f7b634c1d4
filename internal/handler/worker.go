package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/airport-booking/internal/middleware"
	"github.com/iliyamo/airport-booking/internal/model"
	"github.com/iliyamo/airport-booking/internal/workforce"
)

// Workforce is the staff and store management surface.
type Workforce interface {
	ListWorkers(ctx context.Context, airportID string) ([]model.Worker, error)
	ListStores(ctx context.Context, airportID string) ([]model.Store, error)
	CreateStore(ctx context.Context, st model.Store) (model.Store, error)
	Hire(ctx context.Context, caller workforce.Caller, req workforce.HireRequest) (model.Worker, error)
	ChangeJob(ctx context.Context, id int64, req workforce.JobChange) (model.Worker, error)
	Earnings(ctx context.Context, id int64, months, bonusPercent int) (workforce.Earnings, error)
	Promotion(ctx context.Context, id int64) (workforce.Promotion, error)
	Payroll(ctx context.Context, airportID string) ([]workforce.PayrollLine, error)
}

// WorkerHandler serves staff and store endpoints. Role checks happen in
// the router; Hire additionally scopes managers to their own airport.
type WorkerHandler struct {
	Workforce Workforce
}

// NewWorkerHandler panics on a nil service.
func NewWorkerHandler(w Workforce) *WorkerHandler {
	if w == nil {
		panic("nil workforce passed to NewWorkerHandler")
	}
	return &WorkerHandler{Workforce: w}
}

func (h *WorkerHandler) ListWorkers(c echo.Context) error {
	ws, err := h.Workforce.ListWorkers(c.Request().Context(), c.QueryParam("airport_id"))
	if err != nil {
		return fail(c, err)
	}
	if ws == nil {
		ws = []model.Worker{}
	}
	return data(c, http.StatusOK, ws)
}

// Hire adds a worker on behalf of the calling Admin or Manager.
func (h *WorkerHandler) Hire(c echo.Context) error {
	var req workforce.HireRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	role, _ := middleware.CallerRole(c)
	w, err := h.Workforce.Hire(c.Request().Context(), workforce.Caller{Role: role, ID: middleware.CallerID(c)}, req)
	if err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusCreated, w)
}

// ChangeJob updates a worker's job title, role or pay.
func (h *WorkerHandler) ChangeJob(c echo.Context) error {
	id, ok := pathID(c, "worker_id")
	if !ok {
		return badRequest(c, "invalid worker id")
	}
	var req workforce.JobChange
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	w, err := h.Workforce.ChangeJob(c.Request().Context(), id, req)
	if err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusOK, w)
}

// Earnings projects pay over ?months= (12) with a ?bonus= percentage (10).
func (h *WorkerHandler) Earnings(c echo.Context) error {
	id, ok := pathID(c, "worker_id")
	if !ok {
		return badRequest(c, "invalid worker id")
	}
	months, ok1 := queryInt(c, "months", 12)
	bonus, ok2 := queryInt(c, "bonus", 10)
	if !ok1 || !ok2 {
		return badRequest(c, "months and bonus must be integers")
	}
	e, err := h.Workforce.Earnings(c.Request().Context(), id, months, bonus)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"worker_id":      e.WorkerID,
		"months":         e.Months,
		"bonus_percent":  e.BonusPercent,
		"earnings":       major(e.EarningsCents),
		"earnings_cents": e.EarningsCents,
	})
}

func (h *WorkerHandler) Promotion(c echo.Context) error {
	id, ok := pathID(c, "worker_id")
	if !ok {
		return badRequest(c, "invalid worker id")
	}
	p, err := h.Workforce.Promotion(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusOK, p)
}

func (h *WorkerHandler) ListStores(c echo.Context) error {
	ss, err := h.Workforce.ListStores(c.Request().Context(), c.QueryParam("airport_id"))
	if err != nil {
		return fail(c, err)
	}
	if ss == nil {
		ss = []model.Store{}
	}
	return data(c, http.StatusOK, ss)
}

// CreateStore opens a store in an existing airport.
func (h *WorkerHandler) CreateStore(c echo.Context) error {
	var st model.Store
	if err := c.Bind(&st); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	st.ID = 0
	out, err := h.Workforce.CreateStore(c.Request().Context(), st)
	if err != nil {
		return fail(c, err)
	}
	return data(c, http.StatusCreated, out)
}
