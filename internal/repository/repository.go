// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

// Package repository implements the persistence layer for identities and
// verification codes on top of SQLite.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/vinovest/sqlx"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateUsername is returned when the username unique constraint is violated.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrDuplicateEmail is returned when the email unique constraint is violated.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrUnavailable is returned when the storage call timed out or was cancelled.
	ErrUnavailable = errors.New("storage unavailable")
)

// Repository wraps sqlx for database operations.
type Repository struct {
	db *sqlx.DB
}

// New creates a new Repository instance.
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// DB returns the underlying sqlx DB for direct access.
func (r *Repository) DB() *sqlx.DB {
	return r.db
}

// wrapError converts driver errors to repository errors. Raw driver error
// text never crosses the repository boundary.
func wrapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrUnavailable
	case isUniqueViolation(err, "users.username"):
		return ErrDuplicateUsername
	case isUniqueViolation(err, "users.email"):
		return ErrDuplicateEmail
	}
	return err
}

func isUniqueViolation(err error, column string) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}
