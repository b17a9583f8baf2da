package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"content_syncer/internal/config"
	"content_syncer/internal/domain"
)

// Embedder generates fixed-dimension embedding vectors through the Gemini
// API.
type Embedder struct {
	client     *genai.Client
	model      string
	dimensions int
	timeout    time.Duration
	logger     *slog.Logger
}

func NewEmbedder(ctx context.Context, cfg config.GeminiConfig, logger *slog.Logger) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Embedder{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		timeout:    cfg.Timeout,
		logger:     logger.With("ai_provider", "gemini"),
	}, nil
}

func (e *Embedder) GenerateEmbedding(ctx context.Context, text string) (*domain.EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("embedding text is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	outputDim := int32(e.dimensions)
	result, err := e.client.Models.EmbedContent(ctx, e.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{OutputDimensionality: &outputDim},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("gemini returned no embedding")
	}

	vector := result.Embeddings[0].Values
	if len(vector) != e.dimensions {
		return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", e.dimensions, len(vector))
	}

	e.logger.Debug("generated embedding",
		"text_length", len(text),
		"dimensions", len(vector),
		"duration", time.Since(start),
	)

	return &domain.EmbeddingResult{
		Vector:     vector,
		Model:      e.model,
		Dimensions: len(vector),
	}, nil
}
