package session

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically evicts expired sessions.
type Sweeper struct {
	store    *Store
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(store *Store, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.logger.InfoContext(ctx, "session sweeper started", "interval", sw.interval.String())

	for {
		select {
		case <-ctx.Done():
			sw.logger.InfoContext(ctx, "session sweeper stopped")
			return
		case <-ticker.C:
			if removed := sw.store.Sweep(); removed > 0 {
				sw.logger.DebugContext(ctx, "expired sessions evicted", "count", removed)
			}
		}
	}
}
