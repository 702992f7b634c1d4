package middleware // middleware provides shared request processing for handlers

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/airport-booking/internal/model"
)

// Context keys set by Identity.
const (
	ctxRole   = "role"
	ctxUserID = "user_id"
)

// Identity copies the caller's role and id from the request headers into
// the context. Authentication happens upstream of this service; the
// headers are trusted as-is.
func Identity(roleHeader, userHeader string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header
			c.Set(ctxRole, strings.TrimSpace(h.Get(roleHeader)))
			c.Set(ctxUserID, strings.TrimSpace(h.Get(userHeader)))
			return next(c)
		}
	}
}

// CallerRole returns the parsed role of the caller.
func CallerRole(c echo.Context) (model.Role, bool) {
	raw, _ := c.Get(ctxRole).(string)
	return model.ParseRole(raw)
}

// CallerID returns the numeric caller id, or nil when absent or malformed.
func CallerID(c echo.Context) *int64 {
	raw, _ := c.Get(ctxUserID).(string)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

// userID is the rate limiter's view of the caller; "anon" when unknown.
func userID(c echo.Context) string {
	if s, _ := c.Get(ctxUserID).(string); s != "" {
		return s
	}
	return "anon"
}

func roleName(c echo.Context) string {
	if r, ok := CallerRole(c); ok {
		return string(r)
	}
	return "none"
}
