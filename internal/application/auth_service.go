package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/wavlang/backend/internal/domain/entity"
	"github.com/wavlang/backend/internal/domain/repository"
	"github.com/wavlang/backend/pkg/googleauth"
	"github.com/wavlang/backend/pkg/helpers"
	"github.com/wavlang/backend/pkg/mailer"
)

// Publisher enqueues email jobs for asynchronous delivery. Satisfied by
// helpers.RabbitPublisher; mocked in tests.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// GoogleIdentity resolves a federated access token to the identity behind
// it. Satisfied by googleauth.Client.
type GoogleIdentity interface {
	UserInfo(ctx context.Context, accessToken string) (*googleauth.UserInfo, error)
}

// AuthService registers users, authenticates by password, issues session
// credentials, and drives the verification and reset token flows.
type AuthService struct {
	Users  repository.UserRepository
	Tokens *TokenService
	JWT    *helpers.JWTManager
	Redis  *redis.Client
	Pub    Publisher
	Google GoogleIdentity
	Logger *logrus.Logger

	ClientURL   string
	MailEnabled bool
}

func NewAuthService(users repository.UserRepository, tokens *TokenService, jwt *helpers.JWTManager, rdb *redis.Client, pub Publisher, google GoogleIdentity, logger *logrus.Logger, clientURL string, mailEnabled bool) *AuthService {
	return &AuthService{
		Users:       users,
		Tokens:      tokens,
		JWT:         jwt,
		Redis:       rdb,
		Pub:         pub,
		Google:      google,
		Logger:      logger,
		ClientURL:   clientURL,
		MailEnabled: mailEnabled,
	}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Register creates an unverified user and issues a verification OTP. The
// OTP email is enqueued fire-and-forget: a delivery failure is logged but
// never rolls back the registration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  hash,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	otp, err := s.Tokens.Issue(ctx, u.ID, entity.TokenKindVerification)
	if err != nil {
		return nil, fmt.Errorf("issue verification token: %w", err)
	}
	s.sendEmail(ctx, u, mailer.TemplateVerifyEmail, map[string]any{"Code": otp})
	return u, nil
}

// VerifyEmail consumes the verification OTP and flips the verified flag.
// A missing token past the verification window deletes the abandoned
// registration entirely.
func (s *AuthService) VerifyEmail(ctx context.Context, userID, otp string) error {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	if u.Verified {
		return ErrAlreadyVerified
	}

	if err := s.Tokens.Validate(ctx, u.ID, entity.TokenKindVerification, otp); err != nil {
		if errors.Is(err, ErrTokenNotFound) && time.Since(u.CreatedAt) > entity.TokenTTL {
			// Abandoned registration: the window elapsed without a valid
			// token. Remove the record so the email can be reused.
			if derr := s.Users.Delete(ctx, u.ID); derr != nil && !errors.Is(derr, repository.ErrNotFound) {
				return fmt.Errorf("delete abandoned user: %w", derr)
			}
			return ErrVerificationExpired
		}
		return err
	}

	if err := s.Users.SetVerified(ctx, u.ID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

// ResendVerificationCode reissues the verification OTP, subject to the
// one-per-TTL rate limit.
func (s *AuthService) ResendVerificationCode(ctx context.Context, userID string) error {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	if u.Verified {
		return ErrAlreadyVerified
	}
	otp, err := s.Tokens.Reissue(ctx, u.ID, entity.TokenKindVerification)
	if err != nil {
		return err
	}
	s.sendEmail(ctx, u, mailer.TemplateVerifyEmail, map[string]any{"Code": otp})
	return nil
}

// SessionResult is the outcome of a successful sign-in.
type SessionResult struct {
	Token     string
	ExpiresAt time.Time
	User      *entity.User
}

// SignIn authenticates by password and issues the signed session credential.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*SessionResult, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return s.issueSession(ctx, u)
}

// ForgotPassword issues a reset token and mails the reset link. Reissue
// within the TTL is refused with ErrRateLimited.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	token, err := s.Tokens.Reissue(ctx, u.ID, entity.TokenKindReset)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/reset-password?token=%s&id=%s", s.ClientURL, token, u.ID)
	s.sendEmail(ctx, u, mailer.TemplateResetPassword, map[string]any{"ResetURL": link})
	return nil
}

// CheckResetToken verifies the reset token without consuming it. The token
// is consumed only when the new password is actually written.
func (s *AuthService) CheckResetToken(ctx context.Context, userID, token string) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := s.Tokens.Check(ctx, u.ID, entity.TokenKindReset, token); err != nil {
		return nil, err
	}
	return u, nil
}

// CheckPendingVerification gates the client's OTP entry form: the user must
// exist, still be unverified, and hold an unexpired verification code. The
// code itself is not checked or consumed here.
func (s *AuthService) CheckPendingVerification(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u.Verified {
		return nil, ErrAlreadyVerified
	}
	if err := s.Tokens.HasActive(ctx, u.ID, entity.TokenKindVerification); err != nil {
		return nil, err
	}
	return u, nil
}

// FindUser loads a user by id.
func (s *AuthService) FindUser(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// ResetPassword replaces the password hash and consumes the reset token.
// Reusing the current password is rejected, as are lengths outside [8,20].
func (s *AuthService) ResetPassword(ctx context.Context, userID, newPassword string) error {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	if helpers.CompareHashAndPassword(u.Password, newPassword) {
		return ErrPasswordReuse
	}
	if len(newPassword) < 8 || len(newPassword) > 20 {
		return ErrInvalidPassword
	}

	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.Tokens.Invalidate(ctx, u.ID, entity.TokenKindReset); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("reset token cleanup failed")
	}
	s.sendEmail(ctx, u, mailer.TemplatePasswordChanged, nil)
	return nil
}

// AuthenticateByCredential resolves the user behind a session credential and
// checks the claimed email against the stored one.
func (s *AuthService) AuthenticateByCredential(ctx context.Context, credential, email string) (*entity.User, error) {
	claims, err := s.JWT.ParseSessionToken(credential)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	u, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u.Email != email {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GoogleSignIn exchanges a Google access token for a session on an existing
// account. No password check is involved.
func (s *AuthService) GoogleSignIn(ctx context.Context, accessToken string) (*SessionResult, error) {
	info, err := s.Google.UserInfo(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, err)
	}
	u, err := s.Users.GetByEmail(ctx, info.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return s.issueSession(ctx, u)
}

// GoogleSignUp creates a local account keyed by the federated email. The
// identity provider already verified the address, so the account starts
// verified and carries a random, unusable password hash.
func (s *AuthService) GoogleSignUp(ctx context.Context, accessToken string) (*SessionResult, error) {
	info, err := s.Google.UserInfo(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, err)
	}

	random, err := helpers.GenResetToken()
	if err != nil {
		return nil, fmt.Errorf("generate placeholder password: %w", err)
	}
	hash, err := helpers.HashPassword(random)
	if err != nil {
		return nil, fmt.Errorf("hash placeholder password: %w", err)
	}

	u := &entity.User{
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
		Email:     info.Email,
		Password:  hash,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err := s.Users.SetVerified(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("mark verified: %w", err)
	}
	u.Verified = true
	return s.issueSession(ctx, u)
}

func (s *AuthService) issueSession(ctx context.Context, u *entity.User) (*SessionResult, error) {
	token, exp, err := s.JWT.GenerateSessionToken(u.ID, u.Email)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate session token failed")
		}
		return nil, err
	}

	if s.Redis != nil {
		key := sessionKey(u.ID)
		fields := map[string]any{
			"user_id":    u.ID,
			"email":      u.Email,
			"first_name": u.FirstName,
			"last_name":  u.LastName,
			"verified":   u.Verified,
			"created_at": time.Now().UTC().Format(time.RFC3339Nano),
		}
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, fields)
		pipe.ExpireAt(ctx, key, exp)
		if _, rErr := pipe.Exec(ctx); rErr != nil && s.Logger != nil {
			s.Logger.WithError(rErr).WithField("key", key).Warn("redis pipeline failed")
		}
	}

	return &SessionResult{Token: token, ExpiresAt: exp, User: u}, nil
}

func sessionKey(userID string) string {
	return "user:session:" + userID
}

// sendEmail enqueues a templated email for the worker. Failures are logged,
// never propagated: the durable queue is the retry mechanism, and token
// issuance stays valid even if delivery lags.
func (s *AuthService) sendEmail(ctx context.Context, u *entity.User, template string, data map[string]any) {
	if !s.MailEnabled || s.Pub == nil {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	data["Name"] = u.FirstName
	job := mailer.EmailJob{To: u.Email, Template: template, Data: data}
	if err := s.Pub.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"user_id":  u.ID,
			"template": template,
		}).Warn("failed to enqueue email job")
	}
}
