// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/fkoehler/go-account-service/internal/middleware"
)

// Me returns the authenticated user's profile.
func (h *Handler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.UserFromContext(c))
}

type updateUsernameRequest struct {
	Username string `json:"username"`
}

// UpdateUsername renames the authenticated user.
func (h *Handler) UpdateUsername(c echo.Context) error {
	var req updateUsernameRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	user := middleware.UserFromContext(c)

	if err := h.auth.UpdateUsername(c.Request().Context(), user.ID, req.Username); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "username updated"})
}

type setDisabledRequest struct {
	Disabled bool `json:"disabled"`
}

// SetUserDisabled enables or disables another account. Admin-only.
func (h *Handler) SetUserDisabled(c echo.Context) error {
	var req setDisabledRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.auth.SetUserDisabled(c.Request().Context(), c.Param("id"), req.Disabled); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "user updated"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword sets a new password for the authenticated user.
func (h *Handler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	user := middleware.UserFromContext(c)

	if err := h.auth.ChangePassword(c.Request().Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "password updated"})
}
