// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

package auth

import (
	"errors"
	"regexp"
)

var (
	ErrUsernameInvalid = errors.New("username format invalid")
	ErrEmailInvalid    = errors.New("email format invalid")
	ErrPasswordWeak    = errors.New("password does not meet requirements")
)

var (
	usernameRe = regexp.MustCompile(`^\w{3,}$`)
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)
	upperRe    = regexp.MustCompile(`[A-Z]`)
	digitRe    = regexp.MustCompile(`[0-9]`)
)

// ValidateUsername requires at least three word characters.
func ValidateUsername(username string) error {
	if !usernameRe.MatchString(username) {
		return ErrUsernameInvalid
	}
	return nil
}

// ValidateEmail checks the address shape. Deliverability is proven by the
// verification code, not here.
func ValidateEmail(email string) error {
	if !emailRe.MatchString(email) {
		return ErrEmailInvalid
	}
	return nil
}

// ValidatePasswordStrength requires eight characters, one uppercase letter,
// and one digit.
func ValidatePasswordStrength(plaintext string) error {
	if len(plaintext) < 8 || !upperRe.MatchString(plaintext) || !digitRe.MatchString(plaintext) {
		return ErrPasswordWeak
	}
	return nil
}
