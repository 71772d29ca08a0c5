package linking

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically purges expired access codes
type Sweeper struct {
	registry *Registry
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper that runs every interval
func NewSweeper(registry *Registry, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		registry: registry,
		interval: interval,
		logger:   logger.With(slog.String("component", "code-sweeper")),
	}
}

// Run sweeps until ctx is cancelled. A non-positive interval disables sweeping.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.registry.PurgeExpired(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("access code sweep failed", slog.String("error", err.Error()))
	}
}
