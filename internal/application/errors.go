package application

import "errors"

// Domain error taxonomy. Handlers map these to HTTP statuses with errors.Is.
var (
	ErrEmailTaken          = errors.New("email already exists")
	ErrUserNotFound        = errors.New("user not found")
	ErrAlreadyVerified     = errors.New("email already verified")
	ErrTokenNotFound       = errors.New("token not found or expired")
	ErrTokenMismatch       = errors.New("token does not match")
	ErrRateLimited         = errors.New("a token was issued recently, wait before requesting another")
	ErrVerificationExpired = errors.New("verification period expired")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrPasswordReuse       = errors.New("new password must differ from the current one")
	ErrInvalidPassword     = errors.New("password must be 8 to 20 characters long")
	ErrUpstream            = errors.New("upstream provider failure")
	ErrProviderUnavailable = errors.New("provider not configured")
)
