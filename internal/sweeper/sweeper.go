package sweeper

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtmatch/internal/clock"
)

// Sweeper periodically releases expired slot holds and expires stale applications.
type Sweeper struct {
	target   Target
	clock    clock.Clock
	interval time.Duration
}

// New creates a new Sweeper.
func New(target Target, clk clock.Clock, interval time.Duration) *Sweeper {
	return &Sweeper{
		target:   target,
		clock:    clk,
		interval: interval,
	}
}

// Run sweeps once per interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	log.Info("Starting sweeper", "interval", s.interval)
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Sweeper stopped")
			return
		case <-ticker.Chan():
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. Failures are logged and retried on the next tick.
func (s *Sweeper) RunOnce(ctx context.Context) {
	start := s.clock.Now()
	if err := s.target.Sweep(ctx); err != nil {
		log.Error("Sweep failed", "error", err)
		return
	}
	log.Debug("Sweep finished", "duration", s.clock.Now().Sub(start))
}
