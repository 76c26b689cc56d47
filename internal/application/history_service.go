package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wavlang/backend/internal/domain/entity"
	"github.com/wavlang/backend/internal/domain/repository"
	"github.com/wavlang/backend/pkg/helpers"
)

// HistoryService records completed transcriptions, optionally archives the
// source audio to Cloud Storage, and mirrors transcripts into Elasticsearch
// for full-text search. Storage and search are best-effort side channels;
// the Postgres row is the source of truth.
type HistoryService struct {
	Records repository.HistoryRepository
	GCS     *storage.Client
	ES      *elasticsearch.Client
	Logger  *logrus.Logger

	Bucket  string
	ESIndex string
}

func NewHistoryService(records repository.HistoryRepository, gcs *storage.Client, es *elasticsearch.Client, logger *logrus.Logger, bucket, esIndex string) *HistoryService {
	return &HistoryService{
		Records: records,
		GCS:     gcs,
		ES:      es,
		Logger:  logger,
		Bucket:  bucket,
		ESIndex: esIndex,
	}
}

// Record persists a completed transcription. When audio is non-nil and a
// bucket is configured, the source file is archived and its URL stored on
// the record.
func (s *HistoryService) Record(ctx context.Context, rec *entity.TranscriptionRecord, audio io.Reader, contentType string) error {
	if audio != nil && s.GCS != nil && s.Bucket != "" {
		object := path.Join("audio", rec.UserID, uuid.NewString()+sanitizeExt(rec.FileName))
		url, err := helpers.UploadObject(ctx, s.GCS, s.Bucket, object, contentType, audio)
		if err != nil {
			if s.Logger != nil {
				s.Logger.WithError(err).WithField("object", object).Warn("audio archive upload failed")
			}
		} else {
			rec.AudioURL = url
		}
	}

	if err := s.Records.Create(ctx, rec); err != nil {
		return fmt.Errorf("store transcription record: %w", err)
	}

	s.index(ctx, rec)
	return nil
}

// ListByUser returns the user's most recent transcriptions, newest first.
func (s *HistoryService) ListByUser(ctx context.Context, userID string, limit int) ([]entity.TranscriptionRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.Records.ListByUser(ctx, userID, limit)
}

// SearchHit is one full-text match from the transcript index.
type SearchHit struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	Transcript string    `json:"transcript"`
	CreatedAt  time.Time `json:"created_at"`
}

// Search runs a full-text match over the user's transcripts. Returns an
// empty slice when no search backend is configured.
func (s *HistoryService) Search(ctx context.Context, userID, query string, limit int) ([]SearchHit, error) {
	if s.ES == nil {
		return []SearchHit{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	body := map[string]any{
		"size": limit,
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"match": map[string]any{"transcript": query},
				},
				"filter": map[string]any{
					"term": map[string]any{"user_id": userID},
				},
			},
		},
		"sort": []map[string]any{
			{"_score": map[string]any{"order": "desc"}},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode search query: %w", err)
	}

	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(s.ESIndex),
		s.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: search returned %s", ErrUpstream, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string          `json:"_id"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]SearchHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		var doc historyDoc
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			continue
		}
		hits = append(hits, SearchHit{
			ID:         h.ID,
			FileName:   doc.FileName,
			Transcript: doc.Transcript,
			CreatedAt:  doc.CreatedAt,
		})
	}
	return hits, nil
}

type historyDoc struct {
	UserID     string    `json:"user_id"`
	FileName   string    `json:"file_name"`
	Transcript string    `json:"transcript"`
	Provider   string    `json:"provider"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *HistoryService) index(ctx context.Context, rec *entity.TranscriptionRecord) {
	if s.ES == nil {
		return
	}
	doc := historyDoc{
		UserID:     rec.UserID,
		FileName:   rec.FileName,
		Transcript: rec.Transcript,
		Provider:   rec.Provider,
		CreatedAt:  rec.CreatedAt,
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return
	}
	res, err := s.ES.Index(
		s.ESIndex,
		bytes.NewReader(payload),
		s.ES.Index.WithContext(ctx),
		s.ES.Index.WithDocumentID(rec.ID),
	)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("record_id", rec.ID).Warn("transcript indexing failed")
		}
		return
	}
	defer res.Body.Close()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"record_id": rec.ID, "status": res.Status()}).Warn("transcript indexing rejected")
	}
}

// sanitizeExt keeps only a plausible file extension from the uploaded name.
func sanitizeExt(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
