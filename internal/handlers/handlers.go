// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

// Package handlers maps the auth service onto JSON endpoints. It owns no
// business rules; it binds requests, calls the facade, and translates error
// kinds into HTTP statuses and localized messages.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/fkoehler/go-account-service/internal/services/auth"
)

// Handler bundles the dependencies of all endpoints.
type Handler struct {
	auth *auth.Service
}

// New creates the handler set.
func New(authService *auth.Service) *Handler {
	return &Handler{auth: authService}
}

// Health reports liveness.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type messageResponse struct {
	Message string `json:"msg"`
}
