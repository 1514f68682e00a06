// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"codeberg.org/fkoehler/go-account-service/internal/repository"
	"codeberg.org/fkoehler/go-account-service/internal/services/auth"
	"codeberg.org/fkoehler/go-account-service/internal/services/password"
	"codeberg.org/fkoehler/go-account-service/internal/services/token"
	"codeberg.org/fkoehler/go-account-service/internal/services/verification"
	"codeberg.org/fkoehler/go-account-service/internal/testutil"
)

// sentMail records one delivery attempt made through the stub mailer.
type sentMail struct {
	kind string
	to   string
	code string
}

// stubMailer captures outgoing mails instead of sending them. Setting fail
// makes every delivery report a failure.
type stubMailer struct {
	sent []sentMail
	fail error
}

func (m *stubMailer) SendVerificationCode(_ context.Context, to, _, code string) error {
	m.sent = append(m.sent, sentMail{kind: "verification", to: to, code: code})
	return m.fail
}

func (m *stubMailer) SendPasswordResetCode(_ context.Context, to, _, code string) error {
	m.sent = append(m.sent, sentMail{kind: "password_reset", to: to, code: code})
	return m.fail
}

func (m *stubMailer) SendEmailChangeCode(_ context.Context, to, _, code string) error {
	m.sent = append(m.sent, sentMail{kind: "email_change", to: to, code: code})
	return m.fail
}

func (m *stubMailer) last(t *testing.T) sentMail {
	t.Helper()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

type fixture struct {
	svc    *auth.Service
	repo   *repository.Repository
	mailer *stubMailer
	now    *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	_, repo := testutil.NewTestDB(t)

	now := time.Now()
	tokens, err := token.NewService(testutil.TestKeys(t), token.Config{
		AccessTTL:          30 * time.Minute,
		RefreshTTL:         30 * 24 * time.Hour,
		ExtendedRefreshTTL: 90 * 24 * time.Hour,
		Now:                func() time.Time { return now },
	})
	require.NoError(t, err)

	codes := verification.NewEngine(repo, verification.Config{
		Now: func() time.Time { return now },
	})

	mailer := &stubMailer{}
	svc := auth.NewService(repo, tokens, password.NewHasherWithCost(bcrypt.MinCost), codes, mailer)
	return &fixture{svc: svc, repo: repo, mailer: mailer, now: &now}
}

func (f *fixture) advance(d time.Duration) {
	*f.now = f.now.Add(d)
}

func (f *fixture) register(t *testing.T) string {
	t.Helper()
	user, err := f.svc.Register(context.Background(), "alice", "alice@example.com", "Secret123")
	require.NoError(t, err)
	return user.ID
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	user, err := f.svc.Register(context.Background(), "alice", "alice@example.com", "Secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.EmailVerified)
	assert.NotEqual(t, "Secret123", user.PasswordHash)

	mail := f.mailer.last(t)
	assert.Equal(t, "verification", mail.kind)
	assert.Equal(t, "alice@example.com", mail.to)
	assert.Len(t, mail.code, verification.CodeLength)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "ab", "alice@example.com", "Secret123")
	assert.ErrorIs(t, err, auth.ErrUsernameInvalid)

	_, err = f.svc.Register(ctx, "alice", "not-an-email", "Secret123")
	assert.ErrorIs(t, err, auth.ErrEmailInvalid)

	_, err = f.svc.Register(ctx, "alice", "alice@example.com", "weakpass")
	assert.ErrorIs(t, err, auth.ErrPasswordWeak)
}

func TestRegister_Conflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t)

	_, err := f.svc.Register(ctx, "alice", "other@example.com", "Secret123")
	assert.ErrorIs(t, err, auth.ErrUsernameTaken)

	_, err = f.svc.Register(ctx, "bob", "alice@example.com", "Secret123")
	assert.ErrorIs(t, err, auth.ErrEmailTaken)
}

func TestRegister_MailFailureKeepsAccountAndCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mailer.fail = errors.New("smtp down")

	user, err := f.svc.Register(ctx, "alice", "alice@example.com", "Secret123")
	require.Error(t, err)
	require.NotNil(t, user)

	// The stored code is still usable even though the mail never arrived.
	code := f.mailer.last(t).code
	require.NoError(t, f.svc.ConfirmEmail(ctx, user.ID, code))
}

func TestLoginAndCurrentUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.register(t)

	pair, err := f.svc.Login(ctx, "alice", "Secret123", false)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	user, err := f.svc.CurrentUser(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	require.NotNil(t, user.LastSeen)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t)

	_, err := f.svc.Login(ctx, "alice", "wrong-password", false)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody", "Secret123", false)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLogin_DisabledUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.register(t)
	require.NoError(t, f.repo.SetUserDisabled(ctx, userID, true))

	// Indistinguishable from a wrong password.
	_, err := f.svc.Login(ctx, "alice", "Secret123", false)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t)

	pair, err := f.svc.Login(ctx, "alice", "Secret123", false)
	require.NoError(t, err)

	f.advance(time.Minute)
	rotated, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t)

	pair, err := f.svc.Login(ctx, "alice", "Secret123", false)
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, token.ErrInvalid)
}

func TestRefresh_DisabledUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.register(t)

	pair, err := f.svc.Login(ctx, "alice", "Secret123", false)
	require.NoError(t, err)

	require.NoError(t, f.repo.SetUserDisabled(ctx, userID, true))
	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrUserDisabled)
}

func TestConfirmEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.register(t)
	code := f.mailer.last(t).code

	// A wrong submission does not burn the code.
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	err := f.svc.ConfirmEmail(ctx, userID, wrong)
	assert.ErrorIs(t, err, verification.ErrMismatch)

	require.NoError(t, f.svc.ConfirmEmail(ctx, userID, code))

	user, err := f.repo.GetUserByID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)

	// Replaying the consumed code fails.
	err = f.svc.ConfirmEmail(ctx, userID, code)
	assert.ErrorIs(t, err, verification.ErrAlreadyUsed)
}

func TestResendVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.register(t)

	// Still inside the cooldown from registration.
	err := f.svc.ResendVerification(ctx, userID)
	assert.ErrorIs(t, err, verification.ErrResendCooldown)

	f.advance(verification.DefaultResendCooldown + time.Second)
	require.NoError(t, f.svc.ResendVerification(ctx, userID))
	require.Len(t, f.mailer.sent, 2)

	// The reissued code replaces the original.
	require.NoError(t, f.svc.ConfirmEmail(ctx, userID, f.mailer.last(t).code))
}

func TestResendVerification_AlreadyVerified(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.register(t)
	require.NoError(t, f.svc.ConfirmEmail(ctx, userID, f.mailer.last(t).code))

	err := f.svc.ResendVerification(ctx, userID)
	assert.ErrorIs(t, err, auth.ErrEmailAlreadyVerified)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t)
	f.advance(verification.DefaultResendCooldown + time.Second)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@example.com"))
	mail := f.mailer.last(t)
	assert.Equal(t, "password_reset", mail.kind)

	require.NoError(t, f.svc.CompletePasswordReset(ctx, "alice@example.com", mail.code, "NewSecret4"))

	// The old password stops working, the new one logs in.
	_, err := f.svc.Login(ctx, "alice", "Secret123", false)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "alice", "NewSecret4", false)
	require.NoError(t, err)
}

func TestRequestPasswordReset_UnknownEmail(t *testing.T) {
	f := newFixture(t)

	err := f.svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
	assert.Empty(t, f.mailer.sent)
}

func TestCompletePasswordReset_WeakPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t)
	f.advance(verification.DefaultResendCooldown + time.Second)
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@example.com"))
	code := f.mailer.last(t).code

	err := f.svc.CompletePasswordReset(ctx, "alice@example.com", code, "weakpass")
	assert.ErrorIs(t, err, auth.ErrPasswordWeak)

	// The rejected attempt must not consume the code.
	require.NoError(t, f.svc.CompletePasswordReset(ctx, "alice@example.com", code, "NewSecret4"))
}

func TestEmailChangeFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.register(t)
	f.advance(verification.DefaultResendCooldown + time.Second)

	require.NoError(t, f.svc.RequestEmailChange(ctx, userID, "new@example.com"))
	mail := f.mailer.last(t)
	assert.Equal(t, "email_change", mail.kind)
	// The code goes to the address being claimed.
	assert.Equal(t, "new@example.com", mail.to)

	require.NoError(t, f.svc.ConfirmEmailChange(ctx, userID, "new@example.com", mail.code))

	user, err := f.repo.GetUserByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.True(t, user.EmailVerified)
}

func TestRequestEmailChange_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.register(t)
	f.advance(verification.DefaultResendCooldown + time.Second)

	err := f.svc.RequestEmailChange(ctx, userID, "Alice@Example.com")
	assert.ErrorIs(t, err, auth.ErrSameEmail)

	_, err = f.svc.Register(ctx, "bob", "bob@example.com", "Secret123")
	require.NoError(t, err)

	err = f.svc.RequestEmailChange(ctx, userID, "bob@example.com")
	assert.ErrorIs(t, err, auth.ErrEmailTaken)
}

func TestConfirmEmailChange_TargetTakenMeanwhile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.register(t)
	f.advance(verification.DefaultResendCooldown + time.Second)
	require.NoError(t, f.svc.RequestEmailChange(ctx, userID, "new@example.com"))
	code := f.mailer.last(t).code

	// Someone else claims the address between request and confirmation.
	_, err := f.svc.Register(ctx, "bob", "new@example.com", "Secret123")
	require.NoError(t, err)

	err = f.svc.ConfirmEmailChange(ctx, userID, "new@example.com", code)
	assert.ErrorIs(t, err, auth.ErrEmailTaken)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.register(t)

	err := f.svc.ChangePassword(ctx, userID, "wrong-password", "NewSecret4")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	err = f.svc.ChangePassword(ctx, userID, "Secret123", "Secret123")
	assert.ErrorIs(t, err, auth.ErrSamePassword)

	require.NoError(t, f.svc.ChangePassword(ctx, userID, "Secret123", "NewSecret4"))
	_, err = f.svc.Login(ctx, "alice", "NewSecret4", false)
	require.NoError(t, err)
}

func TestSetUserDisabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.register(t)

	err := f.svc.SetUserDisabled(ctx, "no-such-user", true)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	require.NoError(t, f.svc.SetUserDisabled(ctx, userID, true))
	_, err = f.svc.Login(ctx, "alice", "Secret123", false)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	require.NoError(t, f.svc.SetUserDisabled(ctx, userID, false))
	_, err = f.svc.Login(ctx, "alice", "Secret123", false)
	require.NoError(t, err)
}

func TestUpdateUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.register(t)

	// Keeping the current name is a no-op, not a conflict.
	require.NoError(t, f.svc.UpdateUsername(ctx, userID, "alice"))

	_, err := f.svc.Register(ctx, "bob", "bob@example.com", "Secret123")
	require.NoError(t, err)
	err = f.svc.UpdateUsername(ctx, userID, "bob")
	assert.ErrorIs(t, err, auth.ErrUsernameTaken)

	require.NoError(t, f.svc.UpdateUsername(ctx, userID, "alice2"))
	user, err := f.repo.GetUserByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "alice2", user.Username)
}
