package repository

import (
	"context"

	"github.com/wavlang/backend/internal/domain/entity"
)

// TokenRepository persists one-time tokens. Replace enforces the
// one-active-token-per-(owner,kind) invariant; GetActive treats expired rows
// as absent regardless of whether the reaper has physically removed them.
type TokenRepository interface {
	Replace(ctx context.Context, t *entity.Token) error
	GetActive(ctx context.Context, ownerID string, kind entity.TokenKind) (*entity.Token, error)
	Delete(ctx context.Context, id string) error
	DeleteByOwner(ctx context.Context, ownerID string, kind entity.TokenKind) error
	DeleteExpired(ctx context.Context) (int64, error)
}
