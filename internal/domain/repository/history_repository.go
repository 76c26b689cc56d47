package repository

import (
	"context"

	"github.com/wavlang/backend/internal/domain/entity"
)

// HistoryRepository persists completed transcriptions.
type HistoryRepository interface {
	Create(ctx context.Context, r *entity.TranscriptionRecord) error
	ListByUser(ctx context.Context, userID string, limit int) ([]entity.TranscriptionRecord, error)
}
