package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"content_syncer/internal/domain"
)

// SyncOptions tunes one sync run. A zero Limit lets the resolved strategy
// apply its own default.
type SyncOptions struct {
	Limit int
}

// SyncService orchestrates one source sync: it resolves the type-specific
// fetch strategy, pulls a bounded batch of recent messages, and hands them to
// the pipeline. It takes no source-level lock; concurrent syncs of the same
// source are safe because ingestion is idempotent.
type SyncService struct {
	sources  SourceStore
	registry *StrategyRegistry
	pipeline *Pipeline
	logger   *slog.Logger
}

func NewSyncService(
	sources SourceStore,
	registry *StrategyRegistry,
	pipeline *Pipeline,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		sources:  sources,
		registry: registry,
		pipeline: pipeline,
		logger:   logger,
	}
}

// SyncSource syncs a single source and always returns a SyncResult, except
// for the two fatal preconditions: a missing source or an unregistered source
// type. A fetch failure is reported inside the result, not as an error.
func (s *SyncService) SyncSource(ctx context.Context, sourceID string, opts SyncOptions) (*domain.SyncResult, error) {
	startedAt := time.Now()

	source, err := s.sources.Get(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("load source %s: %w", sourceID, err)
	}

	strategy, err := s.registry.Resolve(source.Type)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With("source_id", source.ID, "source_type", source.Type)
	peer := source.Peer()

	logger.Info("starting sync",
		"source_name", source.DisplayName(),
		"peer", peer,
		"limit", opts.Limit,
	)

	var stats ProcessStats
	messages, err := strategy.Fetch(ctx, peer, opts.Limit)
	if err != nil {
		logger.Error("fetch failed", "error", err)
		stats.Errors = append(stats.Errors, fmt.Sprintf("fetch failed: %v", err))
	} else {
		logger.Info("fetched messages", "count", len(messages))
		stats = s.pipeline.ProcessMessages(ctx, source, messages)
	}

	// Best-effort: the sync already happened, a stale timestamp is tolerable.
	if err := s.sources.TouchLastSync(ctx, source.ID, time.Now()); err != nil {
		logger.Warn("failed to update last sync time", "error", err)
	}

	finishedAt := time.Now()
	result := &domain.SyncResult{
		SourceID:          source.ID,
		SourceName:        source.DisplayName(),
		MessagesProcessed: len(messages),
		ContentCreated:    stats.Created,
		ContentSkipped:    stats.Skipped,
		Errors:            stats.Errors,
		StartedAt:         startedAt,
		FinishedAt:        finishedAt,
		Duration:          finishedAt.Sub(startedAt),
	}

	logger.Info("sync completed",
		"processed", result.MessagesProcessed,
		"created", result.ContentCreated,
		"skipped", result.ContentSkipped,
		"errors", len(result.Errors),
		"duration", result.Duration,
	)

	return result, nil
}

// SyncAll runs one sequential pass over every active source. A failing source
// is logged and does not stop the pass.
func (s *SyncService) SyncAll(ctx context.Context) error {
	sources, err := s.sources.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active sources: %w", err)
	}

	s.logger.Info("syncing active sources", "count", len(sources))

	for _, src := range sources {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := s.SyncSource(ctx, src.ID, SyncOptions{}); err != nil {
			s.logger.Error("source sync failed", "source_id", src.ID, "error", err)
		}
	}

	return nil
}
