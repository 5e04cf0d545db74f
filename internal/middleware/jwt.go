// Package middleware provides shared request processing for handlers.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lab-seat-reservation/internal/model"
)

// CallerKey is the context key under which JWTAuth stores the parsed
// model.Caller.
const CallerKey = "caller"

// JWTAuth returns an Echo middleware that validates a Bearer access token
// issued by the identity service and injects the resulting model.Caller
// into the request context.  The token carries the user ID in "sub", the
// role in "role" and the ban overlay in "banned"; this service never
// queries identity state itself.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			caller, err := callerFromClaims(claims)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			c.Set(CallerKey, caller)
			return next(c)
		}
	}
}

// callerFromClaims builds a model.Caller from the token claims.  The "sub"
// claim may arrive as a JSON number or a string depending on the issuer.
func callerFromClaims(claims jwt.MapClaims) (model.Caller, error) {
	var caller model.Caller
	switch v := claims["sub"].(type) {
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return caller, err
		}
		caller.UserID = id
	case float64:
		caller.UserID = uint64(v)
	default:
		return caller, echo.ErrUnauthorized
	}
	role, _ := claims["role"].(string)
	switch role {
	case model.RoleStudent, model.RoleTeacher, model.RoleAdmin:
		caller.Role = role
	default:
		return caller, echo.ErrUnauthorized
	}
	if banned, ok := claims["banned"].(bool); ok {
		caller.IsBanned = banned
	}
	return caller, nil
}
