package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/network-analytics/internal/config"
	"github.com/network-analytics/internal/domain"
)

// Channel is the shared pub/sub topic carrying instance snapshots. Every
// fleet member publishes to and subscribes from the same channel name, so
// each instance (the sender included) sees every snapshot.
type Channel struct {
	client *redis.Client
	name   string
	logger *slog.Logger
	pubsub *redis.PubSub
}

// NewChannel connects to Redis and returns the snapshot channel
func NewChannel(cfg *config.RedisConfig, name string, logger *slog.Logger) (*Channel, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return NewChannelWithClient(client, name, logger), nil
}

// NewChannelWithClient returns a channel on an existing client
func NewChannelWithClient(client *redis.Client, name string, logger *slog.Logger) *Channel {
	return &Channel{
		client: client,
		name:   name,
		logger: logger,
	}
}

// Publish broadcasts a snapshot to the fleet
func (c *Channel) Publish(ctx context.Context, snap domain.InstanceSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := c.client.Publish(ctx, c.name, data).Err(); err != nil {
		return fmt.Errorf("publishing snapshot: %w", err)
	}
	return nil
}

// Subscribe starts delivering received snapshots to handler on a background
// goroutine. It returns once the subscription is confirmed. Malformed
// messages are logged and dropped, never surfaced as errors.
func (c *Channel) Subscribe(ctx context.Context, handler func(domain.InstanceSnapshot)) error {
	c.pubsub = c.client.Subscribe(ctx, c.name)

	// Confirm the subscription before returning
	if _, err := c.pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to channel: %w", err)
	}

	ch := c.pubsub.Channel()
	go func() {
		for msg := range ch {
			var snap domain.InstanceSnapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
				c.logger.Warn("dropping malformed snapshot", "error", err)
				continue
			}
			if snap.InstanceID == "" {
				c.logger.Warn("dropping snapshot without instance id")
				continue
			}
			handler(snap)
		}
	}()

	c.logger.Info("subscribed to snapshot channel", "channel", c.name)
	return nil
}

// Close stops the subscription and closes the client
func (c *Channel) Close() error {
	if c.pubsub != nil {
		if err := c.pubsub.Close(); err != nil {
			c.logger.Warn("closing subscription", "error", err)
		}
	}
	return c.client.Close()
}
