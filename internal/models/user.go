// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

package models

import (
	"time"
)

// User is the identity record owned by the repository layer. The ID is an
// opaque UUID and never changes; username and email are unique.
type User struct { //nolint:govet // fieldalignment not critical for models
	ID            string     `db:"id" json:"id"`
	Username      string     `db:"username" json:"username"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	EmailVerified bool       `db:"email_verified" json:"email_verified"`
	Disabled      bool       `db:"disabled" json:"disabled"`
	IsAdmin       bool       `db:"is_admin" json:"is_admin"`
	PremiumLevel  int64      `db:"premium_level" json:"premium_level"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	LastSeen      *time.Time `db:"last_seen" json:"last_seen,omitempty"`
}
