package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lab-seat-reservation/internal/model"
)

// RequireRole returns a middleware that enforces that the authenticated
// caller holds one of the given roles.  It assumes JWTAuth ran earlier in
// the chain and stored the caller in the context; a missing caller is
// treated the same as a disallowed role.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := c.Get(CallerKey).(model.Caller)
			if !ok || !allowed[caller.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
