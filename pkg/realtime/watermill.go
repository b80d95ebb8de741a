package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/nodebase/pkg/status"
)

// StatusTopic carries every status channel; routing happens on the
// channel metadata since channel names are not valid Kafka topics.
const StatusTopic = "nodebase.status"

const channelMetadataKey = "channel"

// WatermillBroker publishes status messages on a watermill pub/sub.
type WatermillBroker struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger
}

func NewWatermillBroker(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) *WatermillBroker {
	return &WatermillBroker{
		publisher:  pub,
		subscriber: sub,
		logger:     logger.With("module", "realtime_watermill"),
	}
}

func (b *WatermillBroker) Publish(ctx context.Context, msg status.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	wmsg := message.NewMessage(watermill.NewULID(), payload)
	wmsg.SetContext(ctx)
	wmsg.Metadata.Set(channelMetadataKey, msg.Channel)
	wmsg.Metadata.Set("key", msg.Channel)

	if err := b.publisher.Publish(StatusTopic, wmsg); err != nil {
		return fmt.Errorf("failed to publish status message: %w", err)
	}

	return nil
}

func (b *WatermillBroker) Subscribe(ctx context.Context, channel string) (<-chan status.Message, error) {
	messages, err := b.subscriber.Subscribe(ctx, StatusTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to status topic: %w", err)
	}

	out := make(chan status.Message, 16)

	go func() {
		defer close(out)

		for wmsg := range messages {
			wmsg.Ack()

			if wmsg.Metadata.Get(channelMetadataKey) != channel {
				continue
			}

			var msg status.Message
			if err := json.Unmarshal(wmsg.Payload, &msg); err != nil {
				b.logger.WarnContext(ctx, "Dropping malformed status message", "message_id", wmsg.UUID, "error", err)

				continue
			}

			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (b *WatermillBroker) Close() error {
	if err := b.publisher.Close(); err != nil {
		return err
	}

	return b.subscriber.Close()
}
