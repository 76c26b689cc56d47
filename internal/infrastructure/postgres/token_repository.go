package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wavlang/backend/internal/domain/entity"
	"github.com/wavlang/backend/internal/domain/repository"
)

type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Replace upserts the single active token for (owner, kind). The unique
// constraint on (owner_id, kind) makes concurrent replaces last-write-wins.
func (r *TokenRepository) Replace(ctx context.Context, t *entity.Token) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO auth_tokens (owner_id, kind, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id, kind) DO UPDATE
		SET token_hash = EXCLUDED.token_hash,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at
		RETURNING id
	`, t.OwnerID, string(t.Kind), t.Hash, t.CreatedAt, t.ExpiresAt)

	return row.Scan(&t.ID)
}

// GetActive returns the live token for (owner, kind). Expired rows are
// filtered here even if the reaper has not removed them yet.
func (r *TokenRepository) GetActive(ctx context.Context, ownerID string, kind entity.TokenKind) (*entity.Token, error) {
	t := &entity.Token{}
	var kindStr string
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, kind, token_hash, created_at, expires_at
		FROM auth_tokens
		WHERE owner_id = $1 AND kind = $2 AND expires_at > now()
	`, ownerID, string(kind))

	if err := row.Scan(&t.ID, &t.OwnerID, &kindStr, &t.Hash, &t.CreatedAt, &t.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	t.Kind = entity.TokenKind(kindStr)
	return t, nil
}

func (r *TokenRepository) Delete(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM auth_tokens WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TokenRepository) DeleteByOwner(ctx context.Context, ownerID string, kind entity.TokenKind) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM auth_tokens WHERE owner_id = $1 AND kind = $2
	`, ownerID, string(kind))
	return err
}

// DeleteExpired physically reaps rows past their TTL so storage does not
// grow unbounded. Read paths already treat such rows as absent.
func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.pool.Exec(ctx, `DELETE FROM auth_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

var _ repository.TokenRepository = (*TokenRepository)(nil)
