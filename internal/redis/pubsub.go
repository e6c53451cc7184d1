package redis

import (
	"context"
	"log/slog"

	"blog-chat/internal/models"

	"github.com/goccy/go-json"
)

// Sink receives envelopes read off the backplane.
type Sink interface {
	Emit(env models.Envelope) error
}

// Subscribe forwards every envelope on Channel to sink until ctx is done.
func (c *Client) Subscribe(ctx context.Context, sink Sink) error {
	slog.Info("[REDIS] Starting Redis pub/sub subscription...")

	pubsub := c.rdb.Subscribe(ctx, Channel)
	defer pubsub.Close()

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		slog.Error("[REDIS] Failed to receive subscription confirmation", "error", err)
		return err
	}

	slog.Info("[REDIS] Subscription confirmed, listening for envelopes...", "channel", Channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			slog.Info("[REDIS] Subscription stopped")
			return nil

		case msg, ok := <-ch:
			if !ok {
				slog.Info("[REDIS] Redis pub/sub channel closed")
				return nil
			}
			forward(sink, []byte(msg.Payload))
		}
	}
}

func forward(sink Sink, payload []byte) {
	var env models.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		slog.Error("[REDIS] Error unmarshaling envelope", "error", err, "payload", string(payload))
		return
	}
	if env.Event == "" {
		slog.Warn("[REDIS] Envelope without event", "payload", string(payload))
		return
	}

	if err := sink.Emit(env); err != nil {
		slog.Error("[REDIS] Failed to hand envelope to hub", "event", env.Event, "error", err)
	}
}
