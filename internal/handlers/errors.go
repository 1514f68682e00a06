// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/fkoehler/go-account-service/internal/i18n"
	"codeberg.org/fkoehler/go-account-service/internal/repository"
	"codeberg.org/fkoehler/go-account-service/internal/services/auth"
	"codeberg.org/fkoehler/go-account-service/internal/services/email"
	"codeberg.org/fkoehler/go-account-service/internal/services/token"
	"codeberg.org/fkoehler/go-account-service/internal/services/verification"
)

// errorResponse is the JSON error body. The key is stable for clients; the
// detail is localized for humans.
type errorResponse struct {
	Key    string `json:"error"`
	Detail string `json:"detail"`
}

// errorMapping pins every error kind to an HTTP status and a message key.
// Raw error text never reaches the client.
var errorMapping = []struct {
	err    error
	status int
	key    string
}{
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "error_invalid_credentials"},
	{auth.ErrUsernameTaken, http.StatusConflict, "error_username_taken"},
	{auth.ErrEmailTaken, http.StatusConflict, "error_email_taken"},
	{auth.ErrUserNotFound, http.StatusNotFound, "error_user_not_found"},
	{auth.ErrUserDisabled, http.StatusForbidden, "error_user_disabled"},
	{auth.ErrUsernameInvalid, http.StatusBadRequest, "error_username_invalid"},
	{auth.ErrEmailInvalid, http.StatusBadRequest, "error_email_invalid"},
	{auth.ErrPasswordWeak, http.StatusBadRequest, "error_password_weak"},
	{auth.ErrEmailAlreadyVerified, http.StatusBadRequest, "error_email_already_verified"},
	{auth.ErrSameEmail, http.StatusBadRequest, "error_same_email"},
	{auth.ErrSamePassword, http.StatusBadRequest, "error_same_password"},
	{token.ErrMalformed, http.StatusUnauthorized, "error_token_malformed"},
	{token.ErrInvalid, http.StatusUnauthorized, "error_token_invalid"},
	{verification.ErrNoCode, http.StatusBadRequest, "error_no_code_found"},
	{verification.ErrExpired, http.StatusBadRequest, "error_code_expired"},
	{verification.ErrAlreadyUsed, http.StatusBadRequest, "error_code_already_used"},
	{verification.ErrMismatch, http.StatusBadRequest, "error_code_mismatch"},
	{verification.ErrResendCooldown, http.StatusTooManyRequests, "error_resend_cooldown"},
	{repository.ErrUnavailable, http.StatusServiceUnavailable, "error_storage_unavailable"},
	{email.ErrDeliveryFailed, http.StatusBadGateway, "error_delivery_failed"},
}

// writeError renders an error as a localized JSON response.
func writeError(c echo.Context, err error) error {
	ctx := c.Request().Context()

	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			if m.status == http.StatusUnauthorized {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
			}
			return c.JSON(m.status, errorResponse{Key: m.key, Detail: i18n.T(ctx, m.key)})
		}
	}

	slog.Error("request_failed", "error", err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Key: "error_internal", Detail: i18n.T(ctx, "error_internal")})
}
