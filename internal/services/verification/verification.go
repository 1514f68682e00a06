// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

// Package verification implements the single-use code state machine that
// guards email confirmation, password reset, and email change. The engine is
// purpose-agnostic: it only manages the one code row a user can have, and the
// caller applies the purpose-specific side effect after Verify succeeds.
package verification

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"codeberg.org/fkoehler/go-account-service/internal/models"
	"codeberg.org/fkoehler/go-account-service/internal/repository"
)

// CodeLength is the number of digits in a verification code.
const CodeLength = 6

// Defaults for the validity window and the resend cooldown.
const (
	DefaultCodeTTL        = 24 * time.Hour
	DefaultResendCooldown = 60 * time.Second
)

var (
	// ErrNoCode is returned when no code was ever issued for the user.
	ErrNoCode = errors.New("no verification code found")
	// ErrAlreadyUsed is returned when the code was consumed before.
	ErrAlreadyUsed = errors.New("verification code already used")
	// ErrExpired is returned when the code is older than the validity window.
	ErrExpired = errors.New("verification code expired")
	// ErrMismatch is returned when the submitted value differs.
	ErrMismatch = errors.New("verification code mismatch")
	// ErrResendCooldown is returned when a resend is attempted too soon.
	ErrResendCooldown = errors.New("resend cooldown active")
)

// Store is the persistence surface the engine needs. *repository.Repository
// satisfies it.
type Store interface {
	UpsertVerificationCode(ctx context.Context, userID, value string, createdAt time.Time) error
	GetVerificationCode(ctx context.Context, userID string) (*models.VerificationCode, error)
	MarkVerificationCodeUsed(ctx context.Context, userID string, at time.Time) error
}

// Config tunes the engine. Zero values fall back to the defaults above.
type Config struct {
	CodeTTL        time.Duration
	ResendCooldown time.Duration
	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// Engine drives the code lifecycle over a Store.
type Engine struct {
	store    Store
	ttl      time.Duration
	cooldown time.Duration
	now      func() time.Time
}

// NewEngine creates a verification engine.
func NewEngine(store Store, cfg Config) *Engine {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = DefaultCodeTTL
	}
	if cfg.ResendCooldown <= 0 {
		cfg.ResendCooldown = DefaultResendCooldown
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{store: store, ttl: cfg.CodeTTL, cooldown: cfg.ResendCooldown, now: now}
}

// Issue generates a fresh code and stores it, unconditionally replacing any
// previous code for the user. The caller decides whether issuing was allowed
// in the first place (see CheckResendAllowed).
func (e *Engine) Issue(ctx context.Context, userID string) (string, error) {
	value, err := GenerateCode()
	if err != nil {
		return "", err
	}
	if err := e.store.UpsertVerificationCode(ctx, userID, value, e.now()); err != nil {
		return "", fmt.Errorf("storing verification code: %w", err)
	}
	return value, nil
}

// CheckResendAllowed refuses a resend while the cooldown since the last issue
// is still running. A user without a code row may always be sent one.
func (e *Engine) CheckResendAllowed(ctx context.Context, userID string) error {
	code, err := e.store.GetVerificationCode(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading verification code: %w", err)
	}
	if e.now().Sub(code.CreatedAt) < e.cooldown {
		return ErrResendCooldown
	}
	return nil
}

// Verify checks the submitted value against the stored code and consumes it
// on success. The row is kept with verified_at set, so a second Verify with
// the same value reports ErrAlreadyUsed. A mismatch does not consume the
// code. Expiry is evaluated lazily from created_at; nothing sweeps old rows.
func (e *Engine) Verify(ctx context.Context, userID, submitted string) error {
	code, err := e.store.GetVerificationCode(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNoCode
	}
	if err != nil {
		return fmt.Errorf("loading verification code: %w", err)
	}

	if code.VerifiedAt != nil {
		return ErrAlreadyUsed
	}
	if e.now().Sub(code.CreatedAt) > e.ttl {
		return ErrExpired
	}
	if subtle.ConstantTimeCompare([]byte(code.Value), []byte(submitted)) != 1 {
		return ErrMismatch
	}

	if err := e.store.MarkVerificationCodeUsed(ctx, userID, e.now()); err != nil {
		return fmt.Errorf("consuming verification code: %w", err)
	}
	return nil
}

// GenerateCode returns a cryptographically uniform 6-digit code, zero-padded.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generating verification code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n), nil
}
