package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/nodebase/pkg/channels/gochannel"
	"github.com/dukex/nodebase/pkg/channels/kafka"
	"github.com/dukex/nodebase/pkg/eventbus"
)

// WorkerConsumerGroup is shared by every worker, so each execution
// request is handled by one of them.
const WorkerConsumerGroup = "nodebase-workers"

// NewEventBus creates the execution event bus. gochannel only connects
// components living in the same process.
func NewEventBus(provider, kafkaBrokers, consumerGroup string, logger *slog.Logger) (eventbus.EventBus, error) {
	wlogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "gochannel", "memory":
		pub, sub, err := gochannel.CreateChannel(wlogger)
		if err != nil {
			return nil, err
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wlogger, kafka.Brokers(kafkaBrokers), consumerGroup)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %q", provider)
	}
}
