// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

// Package token issues and verifies the RS256-signed access and refresh
// tokens. Tokens are stateless: validity is decided by signature and claims
// alone, there is no server-side revocation store.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type claim values.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	// ErrMalformed is returned when a token cannot be decoded at all.
	ErrMalformed = errors.New("token malformed")
	// ErrInvalid is returned when a token decodes but fails signature,
	// expiry, or type checks.
	ErrInvalid = errors.New("token invalid")
	// ErrSigningKeyMissing is returned when issuance is attempted on a
	// verify-only service.
	ErrSigningKeyMissing = errors.New("signing key not available")
)

// Claims is the signed claim set carried by every token.
type Claims struct {
	TokenType string `json:"token_type"`
	Extended  bool   `json:"extended,omitempty"`
	jwt.RegisteredClaims
}

// Config holds the token lifetimes.
type Config struct {
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	ExtendedRefreshTTL time.Duration
	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// Service signs and verifies tokens with an RSA key pair.
type Service struct {
	keys *KeyPair
	cfg  Config
	now  func() time.Time
}

// NewService creates a token service. A key pair without a private key yields
// a verify-only service.
func NewService(keys *KeyPair, cfg Config) (*Service, error) {
	if keys == nil || keys.Public == nil {
		return nil, errors.New("public key is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.ExtendedRefreshTTL <= 0 {
		cfg.ExtendedRefreshTTL = cfg.RefreshTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{keys: keys, cfg: cfg, now: now}, nil
}

// IssueAccessToken signs a short-lived access token for the subject.
func (s *Service) IssueAccessToken(subjectID string) (string, error) {
	return s.issue(subjectID, TypeAccess, s.cfg.AccessTTL, false)
}

// IssueRefreshToken signs a refresh token. With extended set, the longer
// "stay logged in" lifetime applies and is recorded in the claims so a
// rotation can preserve it.
func (s *Service) IssueRefreshToken(subjectID string, extended bool) (string, error) {
	ttl := s.cfg.RefreshTTL
	if extended {
		ttl = s.cfg.ExtendedRefreshTTL
	}
	return s.issue(subjectID, TypeRefresh, ttl, extended)
}

func (s *Service) issue(subjectID, tokenType string, ttl time.Duration, extended bool) (string, error) {
	if s.keys.Private == nil {
		return "", ErrSigningKeyMissing
	}

	now := s.now()
	claims := Claims{
		TokenType: tokenType,
		Extended:  extended,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.keys.Private)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken checks signature, expiry, and type and returns the
// subject ID.
func (s *Service) VerifyAccessToken(tokenString string) (string, error) {
	claims, err := s.parse(tokenString, TypeAccess)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// VerifyRefreshToken checks signature, expiry, and type and returns the
// subject ID.
func (s *Service) VerifyRefreshToken(tokenString string) (string, error) {
	claims, err := s.parse(tokenString, TypeRefresh)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ParseRefreshToken returns the full refresh claim set so a rotation can
// carry the extended flag over to the new pair.
func (s *Service) ParseRefreshToken(tokenString string) (*Claims, error) {
	return s.parse(tokenString, TypeRefresh)
}

func (s *Service) parse(tokenString, wantType string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)

	var claims Claims
	parsed, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return s.keys.Public, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrMalformed
	case err != nil:
		return nil, ErrInvalid
	case !parsed.Valid:
		return nil, ErrInvalid
	}

	if claims.TokenType != wantType || claims.Subject == "" {
		return nil, ErrInvalid
	}
	return &claims, nil
}
