// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

package main

import (
	"github.com/labstack/echo/v4"

	"codeberg.org/fkoehler/go-account-service/internal/handlers"
	"codeberg.org/fkoehler/go-account-service/internal/middleware"
	"codeberg.org/fkoehler/go-account-service/internal/services/auth"
)

// setupRoutes wires the endpoints. Everything under /users and the
// verification endpoints require a bearer token; registration, login,
// refresh, and the password-reset pair are public.
func setupRoutes(e *echo.Echo, h *handlers.Handler, authService *auth.Service) {
	e.GET("/health", h.Health)

	a := e.Group("/auth")
	a.POST("/register", h.Register)
	a.POST("/token", h.Login)
	a.POST("/token/refresh", h.Refresh)
	a.POST("/password-reset", h.RequestPasswordReset)
	a.POST("/password-reset/complete", h.CompletePasswordReset)

	protected := a.Group("", middleware.RequireAuth(authService))
	protected.POST("/verify-email", h.VerifyEmail)
	protected.POST("/verify-email/resend", h.ResendVerification)
	protected.POST("/email-change", h.RequestEmailChange)
	protected.POST("/email-change/confirm", h.ConfirmEmailChange)

	u := e.Group("/users", middleware.RequireAuth(authService))
	u.GET("/me", h.Me)
	u.PATCH("/me", h.UpdateUsername)
	u.PUT("/me/password", h.ChangePassword)
	u.PATCH("/:id/disabled", h.SetUserDisabled, middleware.RequireAdmin())
}
