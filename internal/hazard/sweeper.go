// Package hazard runs background maintenance of declared hazards.
package hazard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/matijazezelj/wayfind/pkg/models"
)

// Expirer removes hazards whose expiry has passed.
type Expirer interface {
	ExpireHazards(ctx context.Context) ([]models.Hazard, error)
}

// Sweeper periodically deletes expired hazards.
type Sweeper struct {
	expirer  Expirer
	interval time.Duration
	logger   *slog.Logger
	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSweeper creates a sweeper that runs on the given interval.
// The interval string is parsed with time.ParseDuration (e.g. "30s", "1m").
func NewSweeper(expirer Expirer, interval string, logger *slog.Logger) (*Sweeper, error) {
	d, err := time.ParseDuration(interval)
	if err != nil {
		return nil, fmt.Errorf("invalid hazard sweep interval %q: %w", interval, err)
	}
	if d < time.Second {
		return nil, fmt.Errorf("hazard sweep interval must be at least 1s, got %s", d)
	}
	return &Sweeper{
		expirer:  expirer,
		interval: d,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Interval returns the sweep interval.
func (s *Sweeper) Interval() time.Duration {
	return s.interval
}

// Start begins the sweep loop. Call Stop() to terminate.
func (s *Sweeper) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(s.doneCh)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("hazard sweeper started", "interval", s.interval.String())

		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Sweep runs one expiry pass and returns how many hazards were removed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	expired, err := s.expirer.ExpireHazards(ctx)
	if err != nil {
		s.logger.Warn("hazard sweep failed", "error", err)
		return 0
	}
	if len(expired) > 0 {
		s.logger.Info("expired hazards removed", "count", len(expired))
	}
	return len(expired)
}

// Stop halts the sweeper and waits for it to finish. It returns at once
// if Start was never called and is safe to call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	if s.started.Load() {
		<-s.doneCh
	}
}
