package cache

import (
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// SweepSchedule runs the eviction sweep every 5 minutes, per spec.md §4.2.
const SweepSchedule = "@every 5m"

// Sweeper periodically evicts expired entries from one or more caches,
// grounded on internal/briefs/scheduler.go's cron.Cron wrapper.
type Sweeper struct {
	cron    *cron.Cron
	logger  *slog.Logger
	mu      sync.Mutex
	running bool
	sweep   func() int
}

// sweepable is satisfied by *Cache[V] for any V.
type sweepable interface {
	SweepExpired() int
}

// NewSweeper builds a Sweeper over the given caches. Because Go generics
// can't express a slice of *Cache[V] for mixed V, callers pass caches
// already wrapped as sweepable.
func NewSweeper(logger *slog.Logger, caches ...sweepable) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		cron:   cron.New(),
		logger: logger,
		sweep: func() int {
			total := 0
			for _, c := range caches {
				total += c.SweepExpired()
			}
			return total
		},
	}
}

// Start schedules the sweep and begins running it in the background.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	_, err := s.cron.AddFunc(SweepSchedule, func() {
		n := s.sweep()
		if n > 0 {
			s.logger.Debug("cache sweep evicted expired entries", "count", n)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.running = true
	return nil
}

// Stop halts the sweeper, waiting for any in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
}

// SweepOnce runs the sweep immediately, outside the cron schedule. Useful
// for tests and for an explicit "clear caches now" admin action.
func (s *Sweeper) SweepOnce() int {
	return s.sweep()
}
