package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/airport-booking/internal/model"
)

// RequireRole rejects requests whose caller role, as stored by Identity,
// is not one of roles. A missing role header yields 401, an unknown or
// disallowed role 403. Role names compare case-insensitively.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, _ := c.Get(ctxRole).(string); raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Missing caller role header"})
			}
			role, ok := CallerRole(c)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Forbidden: insufficient privileges"})
			}
			return next(c)
		}
	}
}
