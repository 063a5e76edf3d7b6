package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"microloan-ledger/internal/domain/errs"
	"microloan-ledger/internal/domain/identity"
)

const HeaderUsername = "Ax-Username"

// Resolver turns a username into the acting principal.
type Resolver func(ctx context.Context, username string) (identity.Actor, error)

// Actor loads the caller named by Ax-Username and stores it on the request
// context. Unknown users get 401.
func Actor(resolve Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			name := strings.TrimSpace(c.Request().Header.Get(HeaderUsername))
			if name == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing " + HeaderUsername})
			}
			a, err := resolve(c.Request().Context(), name)
			switch {
			case errors.Is(err, errs.ErrNotFound):
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unknown user"})
			case err != nil:
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "user store unavailable"})
			}
			req := c.Request()
			c.SetRequest(req.WithContext(identity.WithActor(req.Context(), a)))
			return next(c)
		}
	}
}

// ActorFrom returns the actor stored by Actor.
func ActorFrom(c echo.Context) (identity.Actor, bool) {
	return identity.FromContext(c.Request().Context())
}
