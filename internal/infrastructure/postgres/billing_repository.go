package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wavlang/backend/internal/domain/entity"
	"github.com/wavlang/backend/internal/domain/repository"
)

type BillingRepository struct {
	pool *pgxpool.Pool
}

func NewBillingRepository(pool *pgxpool.Pool) *BillingRepository {
	return &BillingRepository{pool: pool}
}

func (r *BillingRepository) Create(ctx context.Context, b *entity.BillingRecord) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO billing_records (user_email, amount, currency, provider_ref, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, b.UserEmail, b.Amount, b.Currency, b.ProviderRef, b.Status)

	return row.Scan(&b.ID, &b.CreatedAt)
}

func (r *BillingRepository) ListByEmail(ctx context.Context, email string, limit int) ([]entity.BillingRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_email, amount, currency, provider_ref, status, created_at
		FROM billing_records
		WHERE user_email = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, email, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.BillingRecord
	for rows.Next() {
		var b entity.BillingRecord
		if err := rows.Scan(&b.ID, &b.UserEmail, &b.Amount, &b.Currency, &b.ProviderRef, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

var _ repository.BillingRepository = (*BillingRepository)(nil)
