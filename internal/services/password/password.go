// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

// Package password wraps bcrypt hashing behind a small, stateless hasher.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies passwords with bcrypt. Every hash carries its
// own random salt, so Hash never produces the same output twice.
type Hasher struct {
	cost int
}

// NewHasher creates a hasher with the default bcrypt cost.
func NewHasher() *Hasher {
	return &Hasher{cost: bcrypt.DefaultCost}
}

// NewHasherWithCost creates a hasher with an explicit cost, mainly to keep
// test suites fast.
func NewHasherWithCost(cost int) *Hasher {
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of the plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches the stored hash. A malformed hash
// is treated as a mismatch, never an error.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// DummyCompare burns the same CPU as a real comparison. Login uses it when
// the user does not exist so response timing does not reveal which usernames
// are taken.
func (h *Hasher) DummyCompare(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plaintext))
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)
