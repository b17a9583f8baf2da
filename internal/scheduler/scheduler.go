package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Syncer runs one pass over every active source.
type Syncer interface {
	SyncAll(ctx context.Context) error
}

type Scheduler struct {
	syncer   Syncer
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(syncer Syncer, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		syncer:   syncer,
		interval: interval,
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runPass(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

func (s *Scheduler) runPass(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	if err := s.syncer.SyncAll(passCtx); err != nil && err != context.Canceled {
		s.logger.Error("sync pass failed", "error", err)
	}
}
