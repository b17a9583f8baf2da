package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"content_syncer/internal/domain"
)

// VectorStore keeps content embeddings in a pgvector table, one point per
// content row. Re-upserting overwrites the vector and payload but keeps the
// point id stable.
type VectorStore struct {
	db *sqlx.DB
}

func NewVectorStore(db *sqlx.DB) *VectorStore {
	return &VectorStore{db: db}
}

// SimilarContent is one similarity-search hit.
type SimilarContent struct {
	ContentID string  `db:"content_id"`
	Summary   string  `db:"summary"`
	Score     float64 `db:"score"`
}

func (s *VectorStore) Upsert(ctx context.Context, contentID string, vector []float32, payload domain.VectorPayload) (string, error) {
	if len(vector) == 0 {
		return "", fmt.Errorf("vector is empty")
	}

	query := `
		INSERT INTO content_vectors (id, content_id, embedding, summary, category, language)
		VALUES ($1, $2, $3::vector, $4, $5, $6)
		ON CONFLICT (content_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			summary = EXCLUDED.summary,
			category = EXCLUDED.category,
			language = EXCLUDED.language,
			updated_at = NOW()
		RETURNING id`

	var id string
	err := s.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		contentID,
		pgvector.NewVector(vector),
		payload.Summary,
		payload.Category,
		payload.Language,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert vector: %w", err)
	}

	return id, nil
}

// SearchSimilar returns the closest points by cosine distance, best first.
// minScore filters out weak matches; pass 0 to keep everything.
func (s *VectorStore) SearchSimilar(ctx context.Context, vector []float32, limit int, minScore float64) ([]SimilarContent, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT content_id, summary, 1 - (embedding <=> $1::vector) AS score
		FROM content_vectors
		WHERE 1 - (embedding <=> $1::vector) >= $3
		ORDER BY embedding <=> $1::vector
		LIMIT $2`

	var results []SimilarContent
	err := s.db.SelectContext(ctx, &results, query, pgvector.NewVector(vector), limit, minScore)
	if err != nil {
		return nil, fmt.Errorf("search vectors: %w", err)
	}
	return results, nil
}
