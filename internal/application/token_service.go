package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wavlang/backend/internal/domain/entity"
	"github.com/wavlang/backend/internal/domain/repository"
	"github.com/wavlang/backend/pkg/helpers"
)

// TokenService manages the lifecycle of single-use, time-limited tokens:
// generation, hash-at-rest, validation, rate limiting, and invalidation.
// Only a bcrypt hash of the token value is ever stored; the plaintext is
// returned once to the caller for out-of-band delivery.
type TokenService struct {
	Tokens repository.TokenRepository
	Logger *logrus.Logger
}

func NewTokenService(tokens repository.TokenRepository, logger *logrus.Logger) *TokenService {
	return &TokenService{Tokens: tokens, Logger: logger}
}

// Issue generates a fresh token for (owner, kind), replacing any active one,
// and returns the plaintext value. Verification tokens are 6-digit OTP
// codes; reset tokens are 32 random bytes hex-encoded.
func (s *TokenService) Issue(ctx context.Context, ownerID string, kind entity.TokenKind) (string, error) {
	var plain string
	var err error
	switch kind {
	case entity.TokenKindVerification:
		plain, err = helpers.GenOTPCode()
	case entity.TokenKindReset:
		plain, err = helpers.GenResetToken()
	default:
		return "", fmt.Errorf("unknown token kind %q", kind)
	}
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	hash, err := helpers.HashPassword(plain)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}

	now := time.Now()
	t := &entity.Token{
		OwnerID:   ownerID,
		Kind:      kind,
		Hash:      hash,
		CreatedAt: now,
		ExpiresAt: now.Add(entity.TokenTTL),
	}
	if err := s.Tokens.Replace(ctx, t); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return plain, nil
}

// Validate checks a candidate against the active token for (owner, kind) and
// consumes it on success. Absent or expired tokens yield ErrTokenNotFound,
// a wrong value ErrTokenMismatch.
func (s *TokenService) Validate(ctx context.Context, ownerID string, kind entity.TokenKind, candidate string) error {
	t, err := s.lookup(ctx, ownerID, kind, candidate)
	if err != nil {
		return err
	}
	if err := s.Tokens.Delete(ctx, t.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("consume token: %w", err)
	}
	return nil
}

// Check is Validate without consuming the token. Used where the token gates
// an operation whose success consumes it later (password reset).
func (s *TokenService) Check(ctx context.Context, ownerID string, kind entity.TokenKind, candidate string) error {
	_, err := s.lookup(ctx, ownerID, kind, candidate)
	return err
}

// HasActive reports whether an unexpired token exists for (owner, kind)
// without checking its value.
func (s *TokenService) HasActive(ctx context.Context, ownerID string, kind entity.TokenKind) error {
	t, err := s.Tokens.GetActive(ctx, ownerID, kind)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("load token: %w", err)
	}
	if t.Expired(time.Now()) {
		return ErrTokenNotFound
	}
	return nil
}

// Reissue replaces the token for (owner, kind), refusing with ErrRateLimited
// while an active token younger than the TTL exists.
func (s *TokenService) Reissue(ctx context.Context, ownerID string, kind entity.TokenKind) (string, error) {
	current, err := s.Tokens.GetActive(ctx, ownerID, kind)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("load token: %w", err)
	}
	if current != nil && time.Since(current.CreatedAt) < entity.TokenTTL {
		return "", ErrRateLimited
	}
	if current != nil {
		if err := s.Tokens.Delete(ctx, current.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("drop stale token: %w", err)
		}
	}
	return s.Issue(ctx, ownerID, kind)
}

// Invalidate removes the active token for (owner, kind), if any.
func (s *TokenService) Invalidate(ctx context.Context, ownerID string, kind entity.TokenKind) error {
	return s.Tokens.DeleteByOwner(ctx, ownerID, kind)
}

func (s *TokenService) lookup(ctx context.Context, ownerID string, kind entity.TokenKind, candidate string) (*entity.Token, error) {
	t, err := s.Tokens.GetActive(ctx, ownerID, kind)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("load token: %w", err)
	}
	if t.Expired(time.Now()) {
		return nil, ErrTokenNotFound
	}
	// bcrypt comparison is constant-time over the derived hash
	if !helpers.CompareHashAndPassword(t.Hash, candidate) {
		return nil, ErrTokenMismatch
	}
	return t, nil
}
