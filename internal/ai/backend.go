package ai

import (
	"context"

	"content_syncer/internal/domain"
)

// Backend implements the AI capability surface by pairing an Anthropic model
// for structured analysis with a Gemini model for embeddings, mirroring the
// provider split used by the rest of the platform.
type Backend struct {
	analyzer *Analyzer
	embedder *Embedder
}

func NewBackend(analyzer *Analyzer, embedder *Embedder) *Backend {
	return &Backend{analyzer: analyzer, embedder: embedder}
}

func (b *Backend) AnalyzeText(ctx context.Context, text string) (*domain.AiAnalysisResult, error) {
	return b.analyzer.AnalyzeText(ctx, text)
}

func (b *Backend) GenerateEmbedding(ctx context.Context, text string) (*domain.EmbeddingResult, error) {
	return b.embedder.GenerateEmbedding(ctx, text)
}
