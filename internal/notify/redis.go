// Package notify fans persisted alerts out to a Redis pub/sub channel.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mr1hm/flood-alerts/internal/models"
)

// redisPublisher is the subset of *redis.Client the publisher needs.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// AlertPublisher publishes alerts as JSON. A publisher without a client is a
// no-op so Redis stays optional.
type AlertPublisher struct {
	client  redisPublisher
	channel string
}

func NewAlertPublisher(client *redis.Client, channel string) *AlertPublisher {
	if client == nil {
		return &AlertPublisher{channel: channel}
	}
	return &AlertPublisher{client: client, channel: channel}
}

// Connect parses url, pings the server and returns the client. An empty url
// returns a nil client.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (p *AlertPublisher) Enabled() bool {
	return p != nil && p.client != nil
}

// Publish returns the number of subscribers that received the alert.
func (p *AlertPublisher) Publish(ctx context.Context, alert *models.Alert) (int64, error) {
	if !p.Enabled() || alert == nil {
		return 0, nil
	}
	data, err := json.Marshal(alert)
	if err != nil {
		return 0, fmt.Errorf("encoding alert %s: %w", alert.ID, err)
	}
	n, err := p.client.Publish(ctx, p.channel, data).Result()
	if err != nil {
		return 0, fmt.Errorf("publishing alert %s: %w", alert.ID, err)
	}
	slog.Debug("alert published", "id", alert.ID, "channel", p.channel, "receivers", n)
	return n, nil
}
