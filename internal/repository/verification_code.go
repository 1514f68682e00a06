// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/fkoehler/go-account-service/internal/models"
)

// UpsertVerificationCode stores a fresh code for the user, replacing any
// existing row. verified_at is reset so a re-issued code is pending again.
// The single-statement upsert is the only concurrency control the code table
// needs; rows for different users are independent.
func (r *Repository) UpsertVerificationCode(ctx context.Context, userID, value string, createdAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO verification_codes (user_id, value, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET value = excluded.value, created_at = excluded.created_at, verified_at = NULL`,
		userID, value, createdAt)
	return wrapError(err)
}

// GetVerificationCode retrieves the code row for a user.
func (r *Repository) GetVerificationCode(ctx context.Context, userID string) (*models.VerificationCode, error) {
	var code models.VerificationCode
	err := r.db.GetContext(ctx, &code, `SELECT * FROM verification_codes WHERE user_id = ?`, userID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &code, nil
}

// MarkVerificationCodeUsed sets verified_at, consuming the code. The row is
// kept so a replayed code is detected as already used.
func (r *Repository) MarkVerificationCodeUsed(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE verification_codes SET verified_at = ? WHERE user_id = ?`, at, userID)
	return wrapError(err)
}
