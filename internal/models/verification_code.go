// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

package models

import "time"

// VerificationCode is the single pending or most recently resolved code for a
// user. user_id is the primary key, so issuing a new code always replaces the
// previous row regardless of why it was issued. A set VerifiedAt marks the
// code as consumed; rows are replaced, never deleted.
type VerificationCode struct { //nolint:govet // fieldalignment: readability over optimization
	UserID     string     `db:"user_id" json:"user_id"`
	Value      string     `db:"value" json:"-"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	VerifiedAt *time.Time `db:"verified_at" json:"verified_at,omitempty"`
}
