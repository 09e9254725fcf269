package proctor

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is the cadence of the time-driven sweep.
const DefaultSweepInterval = time.Second

// Sweeper drives the Gate's time-based transitions from a single ticker so
// expiry and staleness are caught even when a client never sends another
// message.
type Sweeper struct {
	gate     *Gate
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper constructs a sweeper over the provided gate.
func NewSweeper(gate *Gate, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{gate: gate, interval: interval, logger: defaultLogger(logger)}
}

// Run sweeps until the context is cancelled. It blocks; callers run it on its
// own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	if s == nil || s.gate == nil {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "sweeper stopped")
			return
		case <-ticker.C:
			s.gate.Tick(ctx)
		}
	}
}
