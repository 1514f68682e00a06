// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/fkoehler/go-account-service/internal/i18n"
	"codeberg.org/fkoehler/go-account-service/internal/middleware"
	"codeberg.org/fkoehler/go-account-service/internal/services/auth"
	"codeberg.org/fkoehler/go-account-service/internal/services/email"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account and mails the signup confirmation code.
func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	user, err := h.auth.Register(ctx, req.Username, req.Email, req.Password)
	if errors.Is(err, email.ErrDeliveryFailed) {
		// The account exists even though the mail bounced; the client
		// retries delivery via resend.
		return c.JSON(http.StatusCreated, map[string]any{
			"user":    user,
			"warning": i18n.T(ctx, "error_delivery_failed"),
		})
	}
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	StayLoggedIn bool   `json:"stay_logged_in"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// Login exchanges credentials for a token pair.
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	pair, err := h.auth.Login(c.Request().Context(), req.Username, req.Password, req.StayLoggedIn)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh rotates a refresh token into a new pair.
func (h *Handler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	pair, err := h.auth.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
	})
}

type verifyEmailRequest struct {
	Code string `json:"code"`
}

// VerifyEmail consumes a signup confirmation code for the logged-in user.
func (h *Handler) VerifyEmail(c echo.Context) error {
	var req verifyEmailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	user := middleware.UserFromContext(c)

	if err := h.auth.ConfirmEmail(ctx, user.ID, req.Code); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: i18n.T(ctx, "email_verification_subject")})
}

// ResendVerification re-issues the signup code, subject to the cooldown.
func (h *Handler) ResendVerification(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.UserFromContext(c)

	if err := h.auth.ResendVerification(ctx, user.ID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "sent"})
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset mails a reset code. An unknown address still reports
// success so the endpoint does not leak which emails have accounts.
func (h *Handler) RequestPasswordReset(c echo.Context) error {
	var req passwordResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	err := h.auth.RequestPasswordReset(ctx, req.Email)
	if err != nil && !errors.Is(err, auth.ErrUserNotFound) {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "sent"})
}

type completePasswordResetRequest struct {
	Email       string `json:"email"`
	Code        string `json:"verification_code"`
	NewPassword string `json:"new_password"`
}

// CompletePasswordReset consumes the reset code and sets the new password.
func (h *Handler) CompletePasswordReset(c echo.Context) error {
	var req completePasswordResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.auth.CompletePasswordReset(c.Request().Context(), req.Email, req.Code, req.NewPassword); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "password updated"})
}

type emailChangeRequest struct {
	NewEmail string `json:"new_email"`
}

// RequestEmailChange mails a confirmation code to the new address.
func (h *Handler) RequestEmailChange(c echo.Context) error {
	var req emailChangeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	user := middleware.UserFromContext(c)

	if err := h.auth.RequestEmailChange(c.Request().Context(), user.ID, req.NewEmail); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "sent"})
}

type confirmEmailChangeRequest struct {
	NewEmail string `json:"new_email"`
	Code     string `json:"code"`
}

// ConfirmEmailChange consumes the code and switches the account email.
func (h *Handler) ConfirmEmailChange(c echo.Context) error {
	var req confirmEmailChangeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	user := middleware.UserFromContext(c)

	if err := h.auth.ConfirmEmailChange(c.Request().Context(), user.ID, req.NewEmail, req.Code); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "email updated"})
}
