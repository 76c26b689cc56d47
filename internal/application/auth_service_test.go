package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavlang/backend/internal/domain/entity"
	"github.com/wavlang/backend/internal/domain/repository"
	"github.com/wavlang/backend/pkg/googleauth"
	"github.com/wavlang/backend/pkg/helpers"
	"github.com/wavlang/backend/pkg/mailer"
)

type authFixture struct {
	svc    *AuthService
	users  *memUserRepo
	tokens *memTokenRepo
	pub    *memPublisher
	google *fakeGoogle
}

func newAuthFixture() *authFixture {
	users := newMemUserRepo()
	tokens := newMemTokenRepo()
	pub := &memPublisher{}
	google := &fakeGoogle{}
	svc := NewAuthService(
		users,
		NewTokenService(tokens, nil),
		helpers.NewJWTManager("test-secret", 24*time.Hour),
		nil, // no session cache in unit tests
		pub,
		google,
		nil,
		"https://app.example.com",
		true,
	)
	return &authFixture{svc: svc, users: users, tokens: tokens, pub: pub, google: google}
}

func (f *authFixture) register(t *testing.T, email string) *entity.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  "sup3rsecret",
	})
	require.NoError(t, err)
	return u
}

func (f *authFixture) lastJob(t *testing.T) mailer.EmailJob {
	t.Helper()
	jobs := f.pub.published()
	require.NotEmpty(t, jobs)
	job, ok := jobs[len(jobs)-1].(mailer.EmailJob)
	require.True(t, ok)
	return job
}

func TestRegisterCreatesUnverifiedUserAndQueuesOTP(t *testing.T) {
	f := newAuthFixture()

	u := f.register(t, "ada@example.com")
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.Verified)
	assert.NotEqual(t, "sup3rsecret", u.Password, "password must be stored hashed")

	job := f.lastJob(t)
	assert.Equal(t, "ada@example.com", job.To)
	assert.Equal(t, mailer.TemplateVerifyEmail, job.Template)
	code, _ := job.Data["Code"].(string)
	assert.Len(t, code, 6)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "ada@example.com")

	_, err := f.svc.Register(context.Background(), RegisterInput{
		FirstName: "Other",
		LastName:  "Person",
		Email:     "ada@example.com",
		Password:  "different1",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestVerifyEmailHappyPath(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	u := f.register(t, "ada@example.com")
	code := f.lastJob(t).Data["Code"].(string)

	require.NoError(t, f.svc.VerifyEmail(ctx, u.ID, code))

	got, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Verified)

	// the OTP is single-use
	err = f.svc.VerifyEmail(ctx, u.ID, code)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestVerifyEmailWrongCode(t *testing.T) {
	f := newAuthFixture()
	u := f.register(t, "ada@example.com")
	code := f.lastJob(t).Data["Code"].(string)

	wrong := "000000"
	if wrong == code {
		wrong = "111111"
	}
	err := f.svc.VerifyEmail(context.Background(), u.ID, wrong)
	assert.ErrorIs(t, err, ErrTokenMismatch)
}

func TestVerifyEmailUnknownUser(t *testing.T) {
	f := newAuthFixture()
	err := f.svc.VerifyEmail(context.Background(), "no-such-id", "123456")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestVerifyEmailAbandonedRegistrationDeleted(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	u := f.register(t, "ada@example.com")

	// token gone and the window elapsed
	require.NoError(t, f.tokens.DeleteByOwner(ctx, u.ID, entity.TokenKindVerification))
	f.users.setCreatedAt(u.ID, time.Now().Add(-entity.TokenTTL-time.Minute))

	err := f.svc.VerifyEmail(ctx, u.ID, "123456")
	assert.ErrorIs(t, err, ErrVerificationExpired)

	_, err = f.users.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// the freed email can register again
	f.register(t, "ada@example.com")
}

func TestVerifyEmailMissingTokenInsideWindow(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	u := f.register(t, "ada@example.com")

	require.NoError(t, f.tokens.DeleteByOwner(ctx, u.ID, entity.TokenKindVerification))

	err := f.svc.VerifyEmail(ctx, u.ID, "123456")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	// still registered; the user can request a resend
	_, err = f.users.GetByID(ctx, u.ID)
	assert.NoError(t, err)
}

func TestResendVerificationCodeRateLimited(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	u := f.register(t, "ada@example.com")

	err := f.svc.ResendVerificationCode(ctx, u.ID)
	assert.ErrorIs(t, err, ErrRateLimited)

	f.tokens.backdate(u.ID, entity.TokenKindVerification, entity.TokenTTL+time.Second)
	require.NoError(t, f.svc.ResendVerificationCode(ctx, u.ID))

	code := f.lastJob(t).Data["Code"].(string)
	require.NoError(t, f.svc.VerifyEmail(ctx, u.ID, code))
}

func TestSignIn(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	u := f.register(t, "ada@example.com")

	res, err := f.svc.SignIn(ctx, "ada@example.com", "sup3rsecret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)
	assert.True(t, res.ExpiresAt.After(time.Now()))

	claims, err := helpers.NewJWTManager("test-secret", 24*time.Hour).ParseSessionToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestSignInWrongPassword(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "ada@example.com")

	_, err := f.svc.SignIn(context.Background(), "ada@example.com", "not-the-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignInUnknownEmail(t *testing.T) {
	f := newAuthFixture()
	_, err := f.svc.SignIn(context.Background(), "nobody@example.com", "whatever1")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestForgotPasswordSendsResetLink(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	u := f.register(t, "ada@example.com")

	require.NoError(t, f.svc.ForgotPassword(ctx, "ada@example.com"))

	job := f.lastJob(t)
	assert.Equal(t, mailer.TemplateResetPassword, job.Template)
	link, _ := job.Data["ResetURL"].(string)
	assert.Contains(t, link, "https://app.example.com/reset-password?token=")
	assert.Contains(t, link, "&id="+u.ID)

	// second request inside the window is refused
	err := f.svc.ForgotPassword(ctx, "ada@example.com")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestCheckResetTokenDoesNotConsume(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	u := f.register(t, "ada@example.com")
	require.NoError(t, f.svc.ForgotPassword(ctx, "ada@example.com"))

	link := f.lastJob(t).Data["ResetURL"].(string)
	tok := resetTokenFromLink(link)
	require.NotEmpty(t, tok)

	got, err := f.svc.CheckResetToken(ctx, u.ID, tok)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	// checking twice is fine; only ResetPassword consumes
	_, err = f.svc.CheckResetToken(ctx, u.ID, tok)
	assert.NoError(t, err)
}

func TestResetPassword(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	u := f.register(t, "ada@example.com")
	require.NoError(t, f.svc.ForgotPassword(ctx, "ada@example.com"))

	require.NoError(t, f.svc.ResetPassword(ctx, u.ID, "brandnewpass"))

	_, err := f.svc.SignIn(ctx, "ada@example.com", "sup3rsecret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.SignIn(ctx, "ada@example.com", "brandnewpass")
	assert.NoError(t, err)

	job := f.lastJob(t)
	assert.Equal(t, mailer.TemplatePasswordChanged, job.Template)

	// the reset token was consumed
	link := ""
	for _, j := range f.pub.published() {
		if ej, ok := j.(mailer.EmailJob); ok && ej.Template == mailer.TemplateResetPassword {
			link, _ = ej.Data["ResetURL"].(string)
		}
	}
	_, err = f.svc.CheckResetToken(ctx, u.ID, resetTokenFromLink(link))
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestResetPasswordRejectsReuse(t *testing.T) {
	f := newAuthFixture()
	u := f.register(t, "ada@example.com")

	err := f.svc.ResetPassword(context.Background(), u.ID, "sup3rsecret")
	assert.ErrorIs(t, err, ErrPasswordReuse)
}

func TestResetPasswordLengthBounds(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	u := f.register(t, "ada@example.com")

	err := f.svc.ResetPassword(ctx, u.ID, "short")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	err = f.svc.ResetPassword(ctx, u.ID, "way-too-long-password-over-twenty")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestAuthenticateByCredential(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	u := f.register(t, "ada@example.com")
	res, err := f.svc.SignIn(ctx, "ada@example.com", "sup3rsecret")
	require.NoError(t, err)

	got, err := f.svc.AuthenticateByCredential(ctx, res.Token, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = f.svc.AuthenticateByCredential(ctx, res.Token, "other@example.com")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.AuthenticateByCredential(ctx, "garbage.token.value", "ada@example.com")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGoogleSignUpCreatesVerifiedUser(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	f.google.info = &googleauth.UserInfo{
		Email:      "gina@example.com",
		GivenName:  "Gina",
		FamilyName: "Torres",
	}

	res, err := f.svc.GoogleSignUp(ctx, "access-token")
	require.NoError(t, err)
	assert.True(t, res.User.Verified)
	assert.Equal(t, "gina@example.com", res.User.Email)

	// the same identity can now sign in federated
	res2, err := f.svc.GoogleSignIn(ctx, "access-token")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, res2.User.ID)
}

func TestGoogleSignInUnknownAccount(t *testing.T) {
	f := newAuthFixture()
	f.google.info = &googleauth.UserInfo{Email: "stranger@example.com"}

	_, err := f.svc.GoogleSignIn(context.Background(), "access-token")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func resetTokenFromLink(link string) string {
	const marker = "token="
	i := -1
	for j := 0; j+len(marker) <= len(link); j++ {
		if link[j:j+len(marker)] == marker {
			i = j + len(marker)
			break
		}
	}
	if i < 0 {
		return ""
	}
	for j := i; j < len(link); j++ {
		if link[j] == '&' {
			return link[i:j]
		}
	}
	return link[i:]
}
