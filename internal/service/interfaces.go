package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"content_syncer/internal/domain"
)

type SourceStore interface {
	Get(ctx context.Context, id string) (*domain.Source, error)
	ListActive(ctx context.Context) ([]domain.Source, error)
	TouchLastSync(ctx context.Context, id string, ts time.Time) error
}

type ContentStore interface {
	// Create persists a new content row. A uniqueness conflict on
	// (source_id, external_id) surfaces as domain.ErrDuplicateContent.
	Create(ctx context.Context, content *domain.Content) (*domain.Content, error)
	FindByExternalID(ctx context.Context, sourceID, externalID string) (*domain.Content, error)
	// FindMostRecentForSource returns (nil, nil) when the source has no
	// content yet.
	FindMostRecentForSource(ctx context.Context, sourceID string) (*domain.Content, error)
	Update(ctx context.Context, id string, fields domain.ContentUpdate) (*domain.Content, error)
}

type KeywordStore interface {
	UpsertBatch(ctx context.Context, labels []string) ([]int64, error)
	LinkToContent(ctx context.Context, contentID string, keywordIDs []int64) error
}

// AiBackend is the narrow capability surface of the external AI providers.
type AiBackend interface {
	AnalyzeText(ctx context.Context, text string) (*domain.AiAnalysisResult, error)
	GenerateEmbedding(ctx context.Context, text string) (*domain.EmbeddingResult, error)
}

// VectorIndex stores embedding vectors for similarity search. Upsert returns
// the vector-store reference id for the content.
type VectorIndex interface {
	Upsert(ctx context.Context, contentID string, vector []float32, payload domain.VectorPayload) (string, error)
}

// SourceStrategy fetches the most recent raw messages for one peer. A
// non-positive limit means the strategy applies its own default.
type SourceStrategy interface {
	Type() domain.SourceType
	Fetch(ctx context.Context, peer string, limit int) ([]domain.RawMessage, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, content *domain.Content, action string) error
	Close() error
}
