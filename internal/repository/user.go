// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/fkoehler/go-account-service/internal/models"
)

// CreateUser creates a new user. Unique constraint violations surface as
// ErrDuplicateUsername or ErrDuplicateEmail.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, email_verified, disabled, is_admin, premium_level, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.EmailVerified, user.Disabled, user.IsAdmin, user.PremiumLevel, user.CreatedAt)
	return wrapError(err)
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username (case-insensitive).
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE username = ?`, username)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email address (case-insensitive).
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// UpdateUsername changes a user's username.
func (r *Repository) UpdateUsername(ctx context.Context, id, username string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET username = ? WHERE id = ?`, username, id)
	return wrapError(err)
}

// UpdateUserPassword updates a user's password hash.
func (r *Repository) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	return wrapError(err)
}

// UpdateUserEmail replaces the email address in a single statement. The
// verified flag is written together with the address so an email change
// confirmed by code lands atomically.
func (r *Repository) UpdateUserEmail(ctx context.Context, id, email string, verified bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET email = ?, email_verified = ? WHERE id = ?`, email, verified, id)
	return wrapError(err)
}

// SetEmailVerified flips the email_verified flag.
func (r *Repository) SetEmailVerified(ctx context.Context, id string, verified bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET email_verified = ? WHERE id = ?`, verified, id)
	return wrapError(err)
}

// SetUserDisabled enables or disables an account.
func (r *Repository) SetUserDisabled(ctx context.Context, id string, disabled bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET disabled = ? WHERE id = ?`, disabled, id)
	return wrapError(err)
}

// UpdateLastSeen records a successful login.
func (r *Repository) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_seen = ? WHERE id = ?`, at, id)
	return wrapError(err)
}

// DeleteUser deletes a user. The verification code row cascades.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return wrapError(err)
}
