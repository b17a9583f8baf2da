package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"content_syncer/internal/domain"
)

const uniqueViolation = "23505"

type ContentStore struct {
	db *sqlx.DB
}

func NewContentStore(db *sqlx.DB) *ContentStore {
	return &ContentStore{db: db}
}

type contentRow struct {
	ID             string         `db:"id"`
	SourceID       string         `db:"source_id"`
	ExternalID     string         `db:"external_id"`
	Text           string         `db:"text"`
	RawData        []byte         `db:"raw_data"`
	Status         string         `db:"status"`
	IsVectorized   bool           `db:"is_vectorized"`
	EmbeddingModel sql.NullString `db:"embedding_model"`
	VectorID       sql.NullString `db:"vector_id"`
	AiAnalysis     []byte         `db:"ai_analysis"`
	SourceDate     sql.NullTime   `db:"source_date"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

const contentColumns = `id, source_id, external_id, text, raw_data, status,
		is_vectorized, embedding_model, vector_id, ai_analysis, source_date,
		created_at, updated_at`

func (r *contentRow) toDomain() (*domain.Content, error) {
	content := &domain.Content{
		ID:           r.ID,
		SourceID:     r.SourceID,
		ExternalID:   r.ExternalID,
		Text:         r.Text,
		RawData:      r.RawData,
		Status:       domain.ContentStatus(r.Status),
		IsVectorized: r.IsVectorized,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.EmbeddingModel.Valid {
		content.EmbeddingModel = &r.EmbeddingModel.String
	}
	if r.VectorID.Valid {
		content.VectorID = &r.VectorID.String
	}
	if r.SourceDate.Valid {
		t := r.SourceDate.Time
		content.SourceDate = &t
	}
	if len(r.AiAnalysis) > 0 {
		var analysis domain.AiAnalysisResult
		if err := json.Unmarshal(r.AiAnalysis, &analysis); err != nil {
			return nil, fmt.Errorf("decode ai analysis for content %s: %w", r.ID, err)
		}
		content.AiAnalysis = &analysis
	}
	return content, nil
}

// Create inserts a new content row with a fresh id. The unique index on
// (source_id, external_id) is the dedup boundary: a conflict comes back as
// domain.ErrDuplicateContent for the caller to recover from.
func (s *ContentStore) Create(ctx context.Context, content *domain.Content) (*domain.Content, error) {
	query := `
		INSERT INTO content (id, source_id, external_id, text, raw_data, status, source_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + contentColumns

	rawData := content.RawData
	if len(rawData) == 0 {
		rawData = []byte("{}")
	}

	var sourceDate sql.NullTime
	if content.SourceDate != nil {
		sourceDate = sql.NullTime{Time: *content.SourceDate, Valid: true}
	}

	var row contentRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query,
		uuid.NewString(),
		content.SourceID,
		content.ExternalID,
		content.Text,
		rawData,
		string(content.Status),
		sourceDate,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateContent, content.ExternalID)
		}
		return nil, err
	}

	return row.toDomain()
}

func (s *ContentStore) FindByExternalID(ctx context.Context, sourceID, externalID string) (*domain.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM content WHERE source_id = $1 AND external_id = $2`

	var row contentRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, sourceID, externalID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", domain.ErrContentNotFound, externalID)
	}
	if err != nil {
		return nil, err
	}

	return row.toDomain()
}

// FindMostRecentForSource returns the newest content by origin timestamp,
// which is what the watermark pre-filter keys off. (nil, nil) when the source
// has nothing yet.
func (s *ContentStore) FindMostRecentForSource(ctx context.Context, sourceID string) (*domain.Content, error) {
	query := `
		SELECT ` + contentColumns + `
		FROM content
		WHERE source_id = $1
		ORDER BY source_date DESC NULLS LAST, created_at DESC
		LIMIT 1`

	var row contentRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, sourceID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return row.toDomain()
}

func (s *ContentStore) Update(ctx context.Context, id string, fields domain.ContentUpdate) (*domain.Content, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id}

	addSet := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if fields.Status != nil {
		addSet("status", string(*fields.Status))
	}
	if fields.IsVectorized != nil {
		addSet("is_vectorized", *fields.IsVectorized)
	}
	if fields.EmbeddingModel != nil {
		addSet("embedding_model", *fields.EmbeddingModel)
	}
	if fields.VectorID != nil {
		addSet("vector_id", *fields.VectorID)
	}
	if fields.AiAnalysis != nil {
		encoded, err := json.Marshal(fields.AiAnalysis)
		if err != nil {
			return nil, fmt.Errorf("encode ai analysis: %w", err)
		}
		addSet("ai_analysis", encoded)
	}

	query := `UPDATE content SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + contentColumns

	var row contentRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, args...)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", domain.ErrContentNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return row.toDomain()
}
