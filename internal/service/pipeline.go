package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"content_syncer/internal/domain"
)

// Pipeline turns raw upstream messages into enriched content records. It owns
// the watermark pre-filter, idempotent ingestion, and the enrichment stage
// sequence; the orchestrator in sync.go decides which messages reach it.
type Pipeline struct {
	contents  ContentStore
	keywords  KeywordStore
	txManager TransactionManager
	ai        AiBackend
	vectors   VectorIndex
	publisher Publisher
	logger    *slog.Logger
}

func NewPipeline(
	contents ContentStore,
	keywords KeywordStore,
	txManager TransactionManager,
	ai AiBackend,
	vectors VectorIndex,
	publisher Publisher,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		contents:  contents,
		keywords:  keywords,
		txManager: txManager,
		ai:        ai,
		vectors:   vectors,
		publisher: publisher,
		logger:    logger,
	}
}

// ProcessStats accumulates the outcome of one batch. Every message lands in
// exactly one of Created or Skipped; Errors is additional detail, not a third
// bucket.
type ProcessStats struct {
	Created int
	Skipped int
	Errors  []string
}

// ProcessMessages runs the batch for one source, in fetch order. A failing
// message is reported in Errors and does not abort the rest of the batch.
func (p *Pipeline) ProcessMessages(ctx context.Context, source *domain.Source, messages []domain.RawMessage) ProcessStats {
	watermark := p.lastIngestedID(ctx, source.ID)

	var stats ProcessStats
	for _, msg := range messages {
		// Watermark is a best-effort pre-filter; the create-conflict check
		// below is what actually guarantees uniqueness.
		if msg.ID <= watermark {
			stats.Skipped++
			continue
		}

		content, isNew, err := p.getOrCreate(ctx, source, msg)
		if err != nil {
			stats.Skipped++
			if !errors.Is(err, domain.ErrEmptyContent) {
				stats.Errors = append(stats.Errors, fmt.Sprintf("message %d: %v", msg.ID, err))
			}
			continue
		}
		if !isNew {
			stats.Skipped++
			continue
		}
		stats.Created++

		enrichErr := p.enrich(ctx, content)
		if enrichErr != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("message %d: %v", msg.ID, enrichErr))
		}
		p.publish(ctx, content)
	}

	return stats
}

// lastIngestedID returns the highest upstream sequence number believed
// already ingested for the source. The trailing segment of the newest
// content's external id carries the message id; anything missing or
// unparsable degrades to 0, which just disables pre-filtering.
func (p *Pipeline) lastIngestedID(ctx context.Context, sourceID string) int64 {
	last, err := p.contents.FindMostRecentForSource(ctx, sourceID)
	if err != nil {
		p.logger.Warn("failed to load most recent content, processing full batch",
			"source_id", sourceID,
			"error", err,
		)
		return 0
	}
	if last == nil {
		return 0
	}

	idx := strings.LastIndex(last.ExternalID, ":")
	if idx < 0 || idx == len(last.ExternalID)-1 {
		return 0
	}
	id, err := strconv.ParseInt(last.ExternalID[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// getOrCreate writes the message as a pending content row, converting a
// uniqueness conflict into a read of the existing row. Exactly one row exists
// per (source, message) pair no matter how many syncs race on it.
func (p *Pipeline) getOrCreate(ctx context.Context, source *domain.Source, msg domain.RawMessage) (*domain.Content, bool, error) {
	if strings.TrimSpace(msg.Body) == "" {
		return nil, false, domain.ErrEmptyContent
	}

	externalID := domain.ExternalContentID(source.ExternalID, msg.ID)

	content := &domain.Content{
		SourceID:   source.ID,
		ExternalID: externalID,
		Text:       msg.Body,
		RawData:    msg.Raw,
		Status:     domain.ContentStatusPending,
	}
	if msg.Date > 0 {
		ts := time.Unix(msg.Date, 0).UTC()
		content.SourceDate = &ts
	}

	created, err := p.contents.Create(ctx, content)
	if err == nil {
		p.logger.Debug("created content", "external_id", externalID, "content_id", created.ID)
		return created, true, nil
	}
	if !errors.Is(err, domain.ErrDuplicateContent) {
		return nil, false, fmt.Errorf("create content: %w", err)
	}

	// Another sync run won the race; its row is just as good as ours.
	existing, err := p.contents.FindByExternalID(ctx, source.ID, externalID)
	if err != nil {
		return nil, false, fmt.Errorf("load existing content: %w", err)
	}
	return existing, false, nil
}

// enrich drives one content record through analysis, embedding, vector
// upsert, and finalization. Analysis and embedding failures abort the
// sequence and mark the row enrichment_failed; a vector-store failure does
// not, because the analysis already paid for is worth keeping even when
// search indexing is down.
func (p *Pipeline) enrich(ctx context.Context, content *domain.Content) error {
	analysis, err := p.ai.AnalyzeText(ctx, content.Text)
	if err != nil {
		p.markEnrichmentFailed(ctx, content)
		return fmt.Errorf("analyze text: %w", err)
	}

	// The summary, not the raw text, is what gets embedded: it keeps vector
	// semantics aligned with what a reader of search results sees.
	embedding, err := p.ai.GenerateEmbedding(ctx, analysis.Summary)
	if err != nil {
		p.markEnrichmentFailed(ctx, content)
		return fmt.Errorf("generate embedding: %w", err)
	}

	var vectorID *string
	vectorized := false
	id, err := p.vectors.Upsert(ctx, content.ID, embedding.Vector, domain.VectorPayload{
		Summary:  analysis.Summary,
		Category: analysis.Category,
		Language: analysis.Language,
	})
	if err != nil {
		p.logger.Warn("vector upsert failed, continuing without vector",
			"content_id", content.ID,
			"error", err,
		)
	} else {
		vectorID = &id
		vectorized = true
	}

	status := domain.ContentStatusReady
	err = p.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		updated, err := p.contents.Update(txCtx, content.ID, domain.ContentUpdate{
			Status:         &status,
			AiAnalysis:     analysis,
			IsVectorized:   &vectorized,
			EmbeddingModel: &embedding.Model,
			VectorID:       vectorID,
		})
		if err != nil {
			return fmt.Errorf("update content: %w", err)
		}

		if len(analysis.Keywords) > 0 {
			ids, err := p.keywords.UpsertBatch(txCtx, analysis.Keywords)
			if err != nil {
				return fmt.Errorf("upsert keywords: %w", err)
			}
			if err := p.keywords.LinkToContent(txCtx, content.ID, ids); err != nil {
				return fmt.Errorf("link keywords: %w", err)
			}
		}

		*content = *updated
		return nil
	})
	if err != nil {
		return fmt.Errorf("finalize content %s: %w", content.ID, err)
	}

	p.logger.Debug("enriched content",
		"content_id", content.ID,
		"vectorized", vectorized,
		"keywords", len(analysis.Keywords),
	)
	return nil
}

func (p *Pipeline) markEnrichmentFailed(ctx context.Context, content *domain.Content) {
	status := domain.ContentStatusEnrichmentFailed
	updated, err := p.contents.Update(ctx, content.ID, domain.ContentUpdate{Status: &status})
	if err != nil {
		p.logger.Error("failed to mark content enrichment_failed",
			"content_id", content.ID,
			"error", err,
		)
		return
	}
	*content = *updated
}

// publish emits the content event downstream. Best-effort: a broker outage
// must not turn an already-ingested message into a sync error.
func (p *Pipeline) publish(ctx context.Context, content *domain.Content) {
	if p.publisher == nil {
		return
	}
	action := "ready"
	if content.Status != domain.ContentStatusReady {
		action = "enrichment_failed"
	}
	if err := p.publisher.Publish(ctx, content, action); err != nil {
		p.logger.Warn("failed to publish content event",
			"content_id", content.ID,
			"action", action,
			"error", err,
		)
	}
}
