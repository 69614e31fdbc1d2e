// Package scheduler drives periodic feed sweeps with a guarantee that at
// most one sweep runs at a time.
package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Sweeper runs one full pass over all active feeds.
type Sweeper interface {
	CheckAll(ctx context.Context)
}

// DedupPurger removes expired dedup records.
type DedupPurger interface {
	PurgeSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler triggers sweeps on a fixed interval and on demand.
type Scheduler struct {
	checker   Sweeper
	purger    DedupPurger
	log       *slog.Logger
	interval  time.Duration
	retention time.Duration
	running   atomic.Bool
	trigger   chan struct{}
}

// New creates a Scheduler that sweeps every interval and purges dedup
// records older than retention after each sweep.
func New(checker Sweeper, purger DedupPurger, interval, retention time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		checker:   checker,
		purger:    purger,
		log:       log,
		interval:  interval,
		retention: retention,
		trigger:   make(chan struct{}),
	}
}

// TriggerNow requests an immediate sweep. The request is dropped, not
// queued, when a sweep is already running or the scheduler is not
// listening; the next periodic tick covers the backlog. It reports
// whether the request was accepted.
func (s *Scheduler) TriggerNow() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run starts the scheduler loop, blocking until ctx is cancelled. The
// first sweep runs immediately.
func (s *Scheduler) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.trigger:
			s.sweep(ctx)
		}
	}
}

// sweep runs one full check cycle. The atomic guard makes overlapping
// invocations a no-op.
func (s *Scheduler) sweep(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Debug("sweep already in progress, dropped")
		return
	}
	defer s.running.Store(false)

	s.log.Debug("sweep started")
	s.checker.CheckAll(ctx)

	cutoff := time.Now().UTC().Add(-s.retention)
	n, err := s.purger.PurgeSentBefore(ctx, cutoff)
	if err != nil {
		s.log.Error("purge sent items", "error", err)
	} else if n > 0 {
		s.log.Info("purged sent items", "count", n)
	}
	s.log.Debug("sweep completed")
}
