package entity

import "time"

// TokenKind distinguishes the two one-time token flows.
type TokenKind string

const (
	TokenKindVerification TokenKind = "verification"
	TokenKindReset        TokenKind = "reset"
)

// TokenTTL is the absolute lifetime of a one-time token. It doubles as the
// minimum interval between reissues for the same owner and kind.
const TokenTTL = 10 * time.Minute

// Token ties one hashed one-time secret to a user. At most one token per
// (owner, kind) is active; issuing a new one replaces the old.
type Token struct {
	ID        string
	OwnerID   string
	Kind      TokenKind
	Hash      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token is past its TTL at the given instant.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
