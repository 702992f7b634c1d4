// Package handler exposes the HTTP API. Every response is a JSON object
// with a boolean "success"; failures carry a "message" and a status code
// derived from the error's kind.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/airport-booking/internal/booking"
	"github.com/iliyamo/airport-booking/internal/report"
	"github.com/iliyamo/airport-booking/internal/repository"
	"github.com/iliyamo/airport-booking/internal/workforce"
)

// ctxError is where fail leaves the error for the request logger.
const ctxError = "handler_error"

// statusOf maps an error onto an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, booking.ErrValidation),
		errors.Is(err, workforce.ErrInvalid),
		errors.Is(err, report.ErrInvalidRange),
		errors.Is(err, report.ErrInvalidKey),
		errors.Is(err, repository.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrConflict),
		errors.Is(err, repository.ErrDuplicate),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, booking.ErrTransient), errors.Is(err, repository.ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error envelope. Server-side failures get a generic
// message; the error itself is kept on the context for logging.
func fail(c echo.Context, err error) error {
	c.Set(ctxError, err)
	status := statusOf(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		msg = "internal server error"
	case http.StatusServiceUnavailable:
		msg = "service busy, please retry"
	}
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": msg})
}

// data writes {success: true, data: v}.
func data(c echo.Context, status int, v any) error {
	return c.JSON(status, echo.Map{"success": true, "data": v})
}

// HandlerError returns the error a handler failed with, if any.
func HandlerError(c echo.Context) error {
	err, _ := c.Get(ctxError).(error)
	return err
}

func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(c echo.Context, name string, def int) (int, bool) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	return t, err == nil
}

// major renders minor units as a decimal amount.
func major(cents int64) float64 { return float64(cents) / 100 }
