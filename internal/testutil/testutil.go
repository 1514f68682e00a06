// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"

	"codeberg.org/fkoehler/go-account-service/internal/database"
	"codeberg.org/fkoehler/go-account-service/internal/models"
	"codeberg.org/fkoehler/go-account-service/internal/repository"
	"codeberg.org/fkoehler/go-account-service/internal/services/token"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, repository.New(db)
}

// NewTestUser creates a test user. The password hash is a throwaway value;
// tests that exercise login set a real hash themselves.
func NewTestUser(t *testing.T, repo *repository.Repository, username, email string) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

var (
	keysOnce sync.Once
	keys     *token.KeyPair
	keysErr  error
)

// TestKeys returns a process-wide RSA key pair. Generation is expensive, so
// all tests share one pair.
func TestKeys(t *testing.T) *token.KeyPair {
	t.Helper()
	keysOnce.Do(func() {
		keys, keysErr = token.GenerateKeyPair()
	})
	require.NoError(t, keysErr)
	return keys
}
