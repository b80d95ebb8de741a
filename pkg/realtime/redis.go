package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/nodebase/pkg/status"
	"github.com/redis/go-redis/v9"
)

// RedisBroker uses the status channel name as the redis pub/sub channel.
type RedisBroker struct {
	client redis.UniversalClient
	logger *slog.Logger
}

func NewRedisBroker(client redis.UniversalClient, logger *slog.Logger) *RedisBroker {
	return &RedisBroker{
		client: client,
		logger: logger.With("module", "realtime_redis"),
	}
}

func (b *RedisBroker) Publish(ctx context.Context, msg status.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if err := b.client.Publish(ctx, msg.Channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish status message: %w", err)
	}

	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (<-chan status.Message, error) {
	pubsub := b.client.Subscribe(ctx, channel)

	// wait for the subscription confirmation so no message published
	// after Subscribe returns is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()

		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	out := make(chan status.Message, 16)

	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()

		messages := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case rmsg, ok := <-messages:
				if !ok {
					return
				}

				var msg status.Message
				if err := json.Unmarshal([]byte(rmsg.Payload), &msg); err != nil {
					b.logger.WarnContext(ctx, "Dropping malformed status message", "channel", rmsg.Channel, "error", err)

					continue
				}

				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
