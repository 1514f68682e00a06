// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/fkoehler/go-account-service/internal/repository"
	"codeberg.org/fkoehler/go-account-service/internal/testutil"
)

func TestUpsertVerificationCode_InsertAndGet(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice", "alice@example.com")
	createdAt := time.Now().UTC()

	require.NoError(t, repo.UpsertVerificationCode(ctx, user.ID, "042316", createdAt))

	code, err := repo.GetVerificationCode(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "042316", code.Value)
	assert.WithinDuration(t, createdAt, code.CreatedAt, time.Second)
	assert.Nil(t, code.VerifiedAt)
}

func TestUpsertVerificationCode_ReplacesAndResetsVerifiedAt(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice", "alice@example.com")

	require.NoError(t, repo.UpsertVerificationCode(ctx, user.ID, "111111", time.Now().UTC()))
	require.NoError(t, repo.MarkVerificationCodeUsed(ctx, user.ID, time.Now().UTC()))

	// A new code replaces the consumed one and is pending again.
	require.NoError(t, repo.UpsertVerificationCode(ctx, user.ID, "222222", time.Now().UTC()))

	code, err := repo.GetVerificationCode(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "222222", code.Value)
	assert.Nil(t, code.VerifiedAt)
}

func TestGetVerificationCode_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetVerificationCode(context.Background(), "no-such-user")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMarkVerificationCodeUsed(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice", "alice@example.com")
	require.NoError(t, repo.UpsertVerificationCode(ctx, user.ID, "333333", time.Now().UTC()))

	usedAt := time.Now().UTC()
	require.NoError(t, repo.MarkVerificationCodeUsed(ctx, user.ID, usedAt))

	code, err := repo.GetVerificationCode(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, code.VerifiedAt)
	assert.WithinDuration(t, usedAt, *code.VerifiedAt, time.Second)
}

func TestVerificationCodesAreIndependentPerUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	alice := testutil.NewTestUser(t, repo, "alice", "alice@example.com")
	bob := testutil.NewTestUser(t, repo, "bob", "bob@example.com")

	require.NoError(t, repo.UpsertVerificationCode(ctx, alice.ID, "111111", time.Now().UTC()))
	require.NoError(t, repo.UpsertVerificationCode(ctx, bob.ID, "222222", time.Now().UTC()))

	code, err := repo.GetVerificationCode(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "111111", code.Value)
}
