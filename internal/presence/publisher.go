package presence

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/network-analytics/internal/domain"
)

// Broadcaster sends a snapshot to the fleet
type Broadcaster interface {
	Publish(ctx context.Context, snap domain.InstanceSnapshot) error
}

// Publisher periodically builds and broadcasts this instance's snapshot. The
// interval is re-randomized within [minInterval, maxInterval] every cycle so
// fleet members don't publish in synchronized bursts. A failed publish is
// dropped; the next cycle retries naturally.
type Publisher struct {
	builder     *Builder
	broadcaster Broadcaster
	minInterval time.Duration
	maxInterval time.Duration
	logger      *slog.Logger
	stopCh      chan struct{}
	doneCh      chan struct{}
	mu          sync.Mutex
	running     bool
}

// NewPublisher creates a snapshot publisher
func NewPublisher(builder *Builder, broadcaster Broadcaster, minInterval, maxInterval time.Duration, logger *slog.Logger) *Publisher {
	return &Publisher{
		builder:     builder,
		broadcaster: broadcaster,
		minInterval: minInterval,
		maxInterval: maxInterval,
		logger:      logger,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the background publish loop
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	p.logger.Info("snapshot publisher started",
		"min_interval", p.minInterval,
		"max_interval", p.maxInterval,
	)

	go p.run(ctx)
	return nil
}

// Stop stops the publish loop
func (p *Publisher) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopCh)
	<-p.doneCh
	p.logger.Info("snapshot publisher stopped")
}

func (p *Publisher) run(ctx context.Context) {
	defer close(p.doneCh)

	timer := time.NewTimer(p.nextInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-timer.C:
			p.publishOnce(ctx)
			timer.Reset(p.nextInterval())
		}
	}
}

// publishOnce builds and broadcasts a single snapshot
func (p *Publisher) publishOnce(ctx context.Context) {
	snap := p.builder.Build()
	if err := p.broadcaster.Publish(ctx, snap); err != nil {
		p.logger.Warn("publish failed, dropping snapshot", "error", err)
		return
	}
	p.logger.Debug("published snapshot", "players", len(snap.Players))
}

// nextInterval picks a jittered delay for the next cycle
func (p *Publisher) nextInterval() time.Duration {
	spread := p.maxInterval - p.minInterval
	if spread <= 0 {
		return p.minInterval
	}
	return p.minInterval + time.Duration(rand.Int63n(int64(spread)+1))
}
