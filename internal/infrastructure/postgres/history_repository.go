package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wavlang/backend/internal/domain/entity"
	"github.com/wavlang/backend/internal/domain/repository"
)

type HistoryRepository struct {
	pool *pgxpool.Pool
}

func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

func (r *HistoryRepository) Create(ctx context.Context, rec *entity.TranscriptionRecord) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO transcription_history (user_id, provider, file_name, transcript, audio_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, rec.UserID, rec.Provider, rec.FileName, rec.Transcript, rec.AudioURL)

	return row.Scan(&rec.ID, &rec.CreatedAt)
}

func (r *HistoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]entity.TranscriptionRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, provider, file_name, transcript, audio_url, created_at
		FROM transcription_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.TranscriptionRecord
	for rows.Next() {
		var rec entity.TranscriptionRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Provider, &rec.FileName, &rec.Transcript, &rec.AudioURL, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ repository.HistoryRepository = (*HistoryRepository)(nil)
