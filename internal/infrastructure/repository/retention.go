package repository

import (
	"context"
	"time"

	"github.com/singsphere/jukebox/internal/domain"
	"github.com/singsphere/jukebox/internal/infrastructure/logging"
)

// RetentionSweeper deletes play audit records older than the retention
// window on every tick until its context is cancelled.
type RetentionSweeper struct {
	repo      domain.PlayAuditRepository
	retention time.Duration
	interval  time.Duration
	logger    logging.Logger
	now       func() time.Time
}

func NewRetentionSweeper(repo domain.PlayAuditRepository, retention, interval time.Duration, logger logging.Logger) *RetentionSweeper {
	return &RetentionSweeper{
		repo:      repo,
		retention: retention,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// Sweep runs a single deletion pass.
func (s *RetentionSweeper) Sweep(ctx context.Context) error {
	cutoff := s.now().Add(-s.retention)
	if err := s.repo.DeleteOlderThan(ctx, cutoff); err != nil {
		s.logger.Warn(logging.Internal, logging.Audit, "failed to sweep play history", map[logging.ExtraKey]any{
			"cutoff":             cutoff,
			logging.ErrorMessage: err.Error(),
		})
		return err
	}

	s.logger.Debug(logging.Internal, logging.Audit, "play history swept", map[logging.ExtraKey]any{
		"cutoff": cutoff,
	})
	return nil
}

func (s *RetentionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = s.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}
