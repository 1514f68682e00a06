// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"codeberg.org/fkoehler/go-account-service/internal/i18n"
	"codeberg.org/fkoehler/go-account-service/internal/models"
	"codeberg.org/fkoehler/go-account-service/internal/services/auth"
	"codeberg.org/fkoehler/go-account-service/internal/services/token"
)

// userContextKey is the Echo context key the authenticated user is stored
// under.
const userContextKey = "auth.user"

// UserResolver resolves a bearer token to the active account behind it.
// *auth.Service satisfies it.
type UserResolver interface {
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
}

// RequireAuth authenticates the request via the Authorization bearer token
// and stores the resolved user in the Echo context.
func RequireAuth(resolver UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			tokenString, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return unauthorized(c, "error_token_invalid")
			}

			user, err := resolver.CurrentUser(ctx, tokenString)
			switch {
			case errors.Is(err, token.ErrMalformed):
				return unauthorized(c, "error_token_malformed")
			case errors.Is(err, token.ErrInvalid):
				return unauthorized(c, "error_token_invalid")
			case errors.Is(err, auth.ErrUserDisabled):
				return echo.NewHTTPError(http.StatusForbidden, i18n.T(ctx, "error_user_disabled"))
			case err != nil:
				return echo.NewHTTPError(http.StatusInternalServerError, i18n.T(ctx, "error_internal"))
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// RequireAdmin allows only admin accounts through. Must run after
// RequireAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := UserFromContext(c)
			if user == nil || !user.IsAdmin {
				return echo.NewHTTPError(http.StatusForbidden, i18n.T(c.Request().Context(), "error_token_invalid"))
			}
			return next(c)
		}
	}
}

// UserFromContext returns the user stored by RequireAuth, or nil.
func UserFromContext(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):], true
	}
	return "", false
}

func unauthorized(c echo.Context, key string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return echo.NewHTTPError(http.StatusUnauthorized, i18n.T(c.Request().Context(), key))
}
