package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/linkwrap/internal/logger"
	"github.com/MrSnakeDoc/linkwrap/internal/metrics"
)

// Sweepable is the rate-limit state the sweeper expires.
// ratelimit.Limiter satisfies it.
type Sweepable interface {
	Sweep() int
	Size() int
}

// RateLimitSweeper drops idle per-user rate-limit state
type RateLimitSweeper struct {
	limiter  Sweepable
	logger   logger.Logger
	metrics  *metrics.Metrics
	interval time.Duration
	stopCh   chan struct{}
}

// NewRateLimitSweeper creates a new sweeper running every interval
func NewRateLimitSweeper(
	limiter Sweepable,
	log logger.Logger,
	m *metrics.Metrics,
	interval time.Duration,
) *RateLimitSweeper {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	return &RateLimitSweeper{
		limiter:  limiter,
		logger:   log,
		metrics:  m,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (s *RateLimitSweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the sweeper
func (s *RateLimitSweeper) Stop() {
	close(s.stopCh)
}

// Sweep runs one pass and returns the number of users dropped
func (s *RateLimitSweeper) Sweep() int {
	removed := s.limiter.Sweep()
	remaining := s.limiter.Size()
	s.metrics.SetTrackedUsers(remaining)

	if removed > 0 {
		s.logger.Debug("rate-limit sweep completed",
			logger.Int("removed", removed),
			logger.Int("tracked", remaining))
	}
	return removed
}
