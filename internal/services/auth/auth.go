// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

// Package auth orchestrates the credential use-cases: registration, login,
// token refresh, and the three code-guarded account mutations. It owns the
// mapping from verification codes to their purpose-specific side effects;
// the verification engine itself does not know why a code was issued.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"codeberg.org/fkoehler/go-account-service/internal/models"
	"codeberg.org/fkoehler/go-account-service/internal/repository"
	"codeberg.org/fkoehler/go-account-service/internal/services/password"
	"codeberg.org/fkoehler/go-account-service/internal/services/token"
	"codeberg.org/fkoehler/go-account-service/internal/services/verification"
)

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrEmailTaken           = errors.New("email already taken")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserDisabled         = errors.New("user is disabled")
	ErrEmailAlreadyVerified = errors.New("email already verified")
	ErrSameEmail            = errors.New("new email equals current email")
	ErrSamePassword         = errors.New("new password equals current password")
)

// Mailer delivers account emails. A failed delivery is recoverable: the code
// referenced in the mail stays valid.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, username, code string) error
	SendPasswordResetCode(ctx context.Context, to, username, code string) error
	SendEmailChangeCode(ctx context.Context, to, username, code string) error
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Service wires the collaborators together. All fields are set at
// construction and never change, so a single instance serves concurrent
// requests.
type Service struct {
	repo   *repository.Repository
	tokens *token.Service
	hasher *password.Hasher
	codes  *verification.Engine
	mailer Mailer
	now    func() time.Time
}

// NewService creates the auth facade with explicitly passed collaborators.
func NewService(repo *repository.Repository, tokens *token.Service, hasher *password.Hasher, codes *verification.Engine, mailer Mailer) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		hasher: hasher,
		codes:  codes,
		mailer: mailer,
		now:    time.Now,
	}
}

// Register creates a new identity with an unverified email, issues a signup
// confirmation code, and mails it. If the mail cannot be delivered the user
// and the code still exist; the error tells the caller to retry via resend.
func (s *Service) Register(ctx context.Context, username, email, plaintext string) (*models.User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePasswordStrength(plaintext); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetUserByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("checking username: %w", err)
	}
	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	passwordHash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		// Unique constraints backstop the check-then-create race.
		return nil, conflictError(err)
	}

	code, err := s.codes.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("register_success", "user_id", user.ID, "username", username)

	if err := s.mailer.SendVerificationCode(ctx, user.Email, user.Username, code); err != nil {
		slog.Warn("mail_failed", "user_id", user.ID, "kind", "verification")
		return user, err
	}
	return user, nil
}

// Login authenticates a user and returns a fresh token pair. User absent,
// wrong password, and disabled account are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, plaintext string, extended bool) (*TokenPair, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn a bcrypt comparison so timing does not reveal
			// which usernames exist.
			s.hasher.DummyCompare(plaintext)
			slog.Warn("login_failed", "username", username, "reason", "user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if !s.hasher.Verify(plaintext, user.PasswordHash) {
		slog.Warn("login_failed", "username", username, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}
	if user.Disabled {
		slog.Warn("login_failed", "username", username, "reason", "disabled")
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.UpdateLastSeen(ctx, user.ID, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("updating last seen: %w", err)
	}

	pair, err := s.issuePair(user.ID, extended)
	if err != nil {
		return nil, err
	}
	slog.Info("login_success", "user_id", user.ID, "extended", extended)
	return pair, nil
}

// Refresh rotates a refresh token into a new access/refresh pair for the same
// subject. The old refresh token stays cryptographically valid until its
// expiry; rotation is purely client-side discard.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, token.ErrInvalid
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if user.Disabled {
		return nil, ErrUserDisabled
	}

	return s.issuePair(user.ID, claims.Extended)
}

// CurrentUser resolves an access token to the active account behind it.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	subjectID, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetUserByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, token.ErrInvalid
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if user.Disabled {
		return nil, ErrUserDisabled
	}
	return user, nil
}

// ConfirmEmail consumes a signup confirmation code and flips email_verified.
func (s *Service) ConfirmEmail(ctx context.Context, userID, code string) error {
	if err := s.codes.Verify(ctx, userID, code); err != nil {
		return err
	}
	if err := s.repo.SetEmailVerified(ctx, userID, true); err != nil {
		return fmt.Errorf("marking email verified: %w", err)
	}
	slog.Info("email_verified", "user_id", userID)
	return nil
}

// ResendVerification issues a fresh signup code, subject to the cooldown, and
// mails it. Replaces whatever code was pending before.
func (s *Service) ResendVerification(ctx context.Context, userID string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("loading user: %w", err)
	}
	if user.EmailVerified {
		return ErrEmailAlreadyVerified
	}
	if err := s.codes.CheckResendAllowed(ctx, userID); err != nil {
		return err
	}

	code, err := s.codes.Issue(ctx, userID)
	if err != nil {
		return err
	}
	slog.Info("code_issued", "user_id", userID, "purpose", "verification")
	return s.mailer.SendVerificationCode(ctx, user.Email, user.Username, code)
}

// RequestPasswordReset issues a reset code for the account behind the email
// address and mails it. Whether an unknown address is reported as success is
// the HTTP layer's policy; the facade is explicit about ErrUserNotFound.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("loading user: %w", err)
	}
	if err := s.codes.CheckResendAllowed(ctx, user.ID); err != nil {
		return err
	}

	code, err := s.codes.Issue(ctx, user.ID)
	if err != nil {
		return err
	}
	slog.Info("code_issued", "user_id", user.ID, "purpose", "password_reset")
	return s.mailer.SendPasswordResetCode(ctx, user.Email, user.Username, code)
}

// CompletePasswordReset consumes a reset code and replaces the password hash.
func (s *Service) CompletePasswordReset(ctx context.Context, email, code, newPassword string) error {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("loading user: %w", err)
	}
	if err := ValidatePasswordStrength(newPassword); err != nil {
		return err
	}
	if err := s.codes.Verify(ctx, user.ID, code); err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateUserPassword(ctx, user.ID, passwordHash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	slog.Info("password_reset", "user_id", user.ID)
	return nil
}

// RequestEmailChange issues a confirmation code for switching to newEmail and
// mails it to that address. The target address is not persisted; the caller
// presents it again on confirmation.
func (s *Service) RequestEmailChange(ctx context.Context, userID, newEmail string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("loading user: %w", err)
	}
	if err := ValidateEmail(newEmail); err != nil {
		return err
	}
	if strings.EqualFold(newEmail, user.Email) {
		return ErrSameEmail
	}
	if err := s.checkEmailUnused(ctx, newEmail); err != nil {
		return err
	}
	if err := s.codes.CheckResendAllowed(ctx, userID); err != nil {
		return err
	}

	code, err := s.codes.Issue(ctx, userID)
	if err != nil {
		return err
	}
	slog.Info("code_issued", "user_id", userID, "purpose", "email_change")
	return s.mailer.SendEmailChangeCode(ctx, newEmail, user.Username, code)
}

// ConfirmEmailChange consumes the code and writes the new address, already
// verified, in one statement.
func (s *Service) ConfirmEmailChange(ctx context.Context, userID, newEmail, code string) error {
	if err := ValidateEmail(newEmail); err != nil {
		return err
	}
	if err := s.checkEmailUnused(ctx, newEmail); err != nil {
		return err
	}
	if err := s.codes.Verify(ctx, userID, code); err != nil {
		return err
	}
	if err := s.repo.UpdateUserEmail(ctx, userID, newEmail, true); err != nil {
		return conflictError(err)
	}
	slog.Info("email_changed", "user_id", userID)
	return nil
}

// ChangePassword replaces the password of a logged-in user who knows their
// current one.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("loading user: %w", err)
	}
	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := ValidatePasswordStrength(newPassword); err != nil {
		return err
	}
	if s.hasher.Verify(newPassword, user.PasswordHash) {
		return ErrSamePassword
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateUserPassword(ctx, userID, passwordHash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

// UpdateUsername changes the username, keeping it unique.
func (s *Service) UpdateUsername(ctx context.Context, userID, newUsername string) error {
	if err := ValidateUsername(newUsername); err != nil {
		return err
	}
	if existing, err := s.repo.GetUserByUsername(ctx, newUsername); err == nil {
		if existing.ID == userID {
			return nil
		}
		return ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("checking username: %w", err)
	}
	if err := s.repo.UpdateUsername(ctx, userID, newUsername); err != nil {
		return conflictError(err)
	}
	return nil
}

// SetUserDisabled enables or disables an account. A disabled account cannot
// log in, refresh, or pass token resolution; tokens already issued keep their
// cryptographic validity but stop resolving to a user.
func (s *Service) SetUserDisabled(ctx context.Context, userID string, disabled bool) error {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("loading user: %w", err)
	}
	if err := s.repo.SetUserDisabled(ctx, userID, disabled); err != nil {
		return fmt.Errorf("updating disabled flag: %w", err)
	}
	slog.Info("user_disabled_changed", "user_id", userID, "disabled", disabled)
	return nil
}

func (s *Service) issuePair(subjectID string, extended bool) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(subjectID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(subjectID, extended)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) checkEmailUnused(ctx context.Context, email string) error {
	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("checking email: %w", err)
	}
	return nil
}

func conflictError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateUsername):
		return ErrUsernameTaken
	case errors.Is(err, repository.ErrDuplicateEmail):
		return ErrEmailTaken
	}
	return err
}
