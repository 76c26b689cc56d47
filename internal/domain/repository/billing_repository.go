package repository

import (
	"context"

	"github.com/wavlang/backend/internal/domain/entity"
)

// BillingRepository persists payment attempts.
type BillingRepository interface {
	Create(ctx context.Context, r *entity.BillingRecord) error
	ListByEmail(ctx context.Context, email string, limit int) ([]entity.BillingRecord, error)
}
