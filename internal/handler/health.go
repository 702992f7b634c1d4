package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by both store implementations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness of the process and its store.
type HealthHandler struct {
	Store Pinger
}

// NewHealthHandler panics on a nil store.
func NewHealthHandler(store Pinger) *HealthHandler {
	if store == nil {
		panic("nil store passed to NewHealthHandler")
	}
	return &HealthHandler{Store: store}
}

// Health is used by load balancers and monitoring. It answers 503 when
// the store does not respond within two seconds.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		c.Set(ctxError, err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"success": false, "message": "store unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "status": "ok"})
}
