// Package redis carries chat envelopes between server processes so every
// process can deliver to the sockets it holds.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"blog-chat/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
)

// Channel is the pub/sub channel all chat envelopes travel on.
const Channel = "chat:events"

// Publishes are bounded by their own deadline rather than the caller's
// context, so disconnect notices still go out while the process shuts down.
const publishTimeout = 5 * time.Second

type Client struct {
	rdb *redis.Client
}

func NewClient(ctx context.Context, redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Test connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	slog.Info("[REDIS] Connected to Redis")

	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Emit publishes env for every subscribed process.
func (c *Client) Emit(env models.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		slog.Error("[REDIS] Failed to marshal envelope", "event", env.Event, "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := c.rdb.Publish(ctx, Channel, payload).Err(); err != nil {
		slog.Error("[REDIS] Failed to publish envelope", "event", env.Event, "channel", Channel, "error", err)
		return err
	}

	return nil
}
