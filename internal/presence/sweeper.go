package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper evicts stale snapshots from the store on its own timer,
// independent of the publish cycle.
type Sweeper struct {
	store    *Store
	interval time.Duration
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewSweeper creates a store sweeper
func NewSweeper(store *Store, interval, ttl time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("snapshot sweeper started", "interval", s.interval, "ttl", s.ttl)

	go s.run(ctx)
	return nil
}

// Stop stops the sweep loop
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh
	s.logger.Info("snapshot sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if evicted := s.store.Sweep(s.now(), s.ttl); evicted > 0 {
				s.logger.Debug("evicted stale snapshots", "count", evicted)
			}
		}
	}
}
