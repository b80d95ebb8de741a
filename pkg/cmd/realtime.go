package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/nodebase/pkg/channels/gochannel"
	"github.com/dukex/nodebase/pkg/channels/kafka"
	"github.com/dukex/nodebase/pkg/realtime"
	"github.com/redis/go-redis/v9"
)

// NewRealtimeBroker creates the status transport shared by workers and
// gateways. Kafka subscribers join no consumer group so every gateway
// sees every status message.
func NewRealtimeBroker(provider, redisURL, kafkaBrokers string, logger *slog.Logger) (realtime.Broker, error) {
	wlogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "gochannel", "memory":
		pub, sub, err := gochannel.CreateOrderedChannel(wlogger)
		if err != nil {
			return nil, err
		}

		return realtime.NewWatermillBroker(pub, sub, logger), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wlogger, kafka.Brokers(kafkaBrokers), "")
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return realtime.NewWatermillBroker(pub, sub, logger), nil
	case "redis":
		client, err := NewRedisClient(redisURL)
		if err != nil {
			return nil, err
		}

		return realtime.NewRedisBroker(client, logger), nil
	default:
		return nil, fmt.Errorf("unsupported realtime provider: %q", provider)
	}
}

func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return redis.NewClient(options), nil
}
