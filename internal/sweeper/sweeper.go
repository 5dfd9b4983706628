// ABOUTME: Background retention sweeper reclaiming expired conversations
// ABOUTME: Runs once at startup then on a fixed interval until the context is cancelled

package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/2389/ember/internal/store"
)

// DefaultInterval is how often the sweeper checks for expired conversations.
const DefaultInterval = 30 * time.Minute

// Sweeper periodically deletes conversations whose retention window has
// elapsed, cascading to their messages. It is the single source of truth
// for expiry; read paths never expire lazily.
type Sweeper struct {
	store    store.Store
	interval time.Duration
	logger   *slog.Logger
}

// New creates a sweeper. Zero interval means DefaultInterval.
// Pass nil logger for default.
func New(st store.Store, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    st,
		interval: interval,
		logger:   logger.With("component", "sweeper"),
	}
}

// Run performs one immediate sweep, then sweeps on every tick until ctx is
// cancelled. Sweep failures are logged and left to the next tick; they
// never crash the process.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("retention sweeper started", "interval", s.interval)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep runs a single query-and-delete pass.
func (s *Sweeper) sweep(ctx context.Context) {
	deleted, err := s.store.DeleteExpiredConversations(ctx, time.Now())
	if err != nil {
		// Whatever survived this pass is picked up by the next tick
		s.logger.Error("sweep failed", "deleted", deleted, "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("reclaimed expired conversations", "count", deleted)
	}
}
