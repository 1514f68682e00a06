// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

package token_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/fkoehler/go-account-service/internal/services/token"
	"codeberg.org/fkoehler/go-account-service/internal/testutil"
)

func newService(t *testing.T, now *time.Time) *token.Service {
	t.Helper()
	svc, err := token.NewService(testutil.TestKeys(t), token.Config{
		AccessTTL:          30 * time.Minute,
		RefreshTTL:         30 * 24 * time.Hour,
		ExtendedRefreshTTL: 90 * 24 * time.Hour,
		Now:                func() time.Time { return *now },
	})
	require.NoError(t, err)
	return svc
}

func TestAccessTokenRoundTrip(t *testing.T) {
	now := time.Now()
	svc := newService(t, &now)

	signed, err := svc.IssueAccessToken("subject-1")
	require.NoError(t, err)

	subject, err := svc.VerifyAccessToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "subject-1", subject)
}

func TestAccessTokenExpires(t *testing.T) {
	now := time.Now()
	svc := newService(t, &now)

	signed, err := svc.IssueAccessToken("subject-1")
	require.NoError(t, err)

	now = now.Add(31 * time.Minute)
	_, err = svc.VerifyAccessToken(signed)
	assert.ErrorIs(t, err, token.ErrInvalid)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	now := time.Now()
	svc := newService(t, &now)

	signed, err := svc.IssueRefreshToken("subject-1", false)
	require.NoError(t, err)

	subject, err := svc.VerifyRefreshToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "subject-1", subject)
}

func TestRefreshTokenExtendedLifetime(t *testing.T) {
	now := time.Now()
	svc := newService(t, &now)

	regular, err := svc.IssueRefreshToken("subject-1", false)
	require.NoError(t, err)
	extended, err := svc.IssueRefreshToken("subject-1", true)
	require.NoError(t, err)

	// Past the regular lifetime, only the extended token still verifies.
	now = now.Add(31 * 24 * time.Hour)
	_, err = svc.VerifyRefreshToken(regular)
	assert.ErrorIs(t, err, token.ErrInvalid)

	claims, err := svc.ParseRefreshToken(extended)
	require.NoError(t, err)
	assert.True(t, claims.Extended)
}

func TestVerify_WrongTokenType(t *testing.T) {
	now := time.Now()
	svc := newService(t, &now)

	access, err := svc.IssueAccessToken("subject-1")
	require.NoError(t, err)
	refresh, err := svc.IssueRefreshToken("subject-1", false)
	require.NoError(t, err)

	_, err = svc.VerifyRefreshToken(access)
	assert.ErrorIs(t, err, token.ErrInvalid)

	_, err = svc.VerifyAccessToken(refresh)
	assert.ErrorIs(t, err, token.ErrInvalid)
}

func TestVerify_Malformed(t *testing.T) {
	now := time.Now()
	svc := newService(t, &now)

	_, err := svc.VerifyAccessToken("not-a-token")
	assert.ErrorIs(t, err, token.ErrMalformed)

	_, err = svc.VerifyAccessToken("")
	assert.ErrorIs(t, err, token.ErrMalformed)
}

func TestVerify_ForeignSignature(t *testing.T) {
	now := time.Now()
	svc := newService(t, &now)

	otherKeys, err := token.GenerateKeyPair()
	require.NoError(t, err)
	other, err := token.NewService(otherKeys, token.Config{
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	})
	require.NoError(t, err)

	forged, err := other.IssueAccessToken("subject-1")
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(forged)
	assert.ErrorIs(t, err, token.ErrInvalid)
}

func TestVerifyOnlyServiceCannotSign(t *testing.T) {
	keys := testutil.TestKeys(t)
	svc, err := token.NewService(token.VerifyOnly(keys.Public), token.Config{
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	})
	require.NoError(t, err)

	_, err = svc.IssueAccessToken("subject-1")
	assert.ErrorIs(t, err, token.ErrSigningKeyMissing)
}

func TestVerifyOnlyServiceVerifies(t *testing.T) {
	now := time.Now()
	signer := newService(t, &now)
	keys := testutil.TestKeys(t)

	verifier, err := token.NewService(token.VerifyOnly(keys.Public), token.Config{
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	})
	require.NoError(t, err)

	signed, err := signer.IssueAccessToken("subject-1")
	require.NoError(t, err)

	subject, err := verifier.VerifyAccessToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "subject-1", subject)
}
