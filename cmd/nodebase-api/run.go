package main

import (
	"context"
	"time"

	"github.com/dukex/nodebase/pkg/cmd"
	"github.com/dukex/nodebase/pkg/log"
	"github.com/dukex/nodebase/pkg/metrics"
	"github.com/dukex/nodebase/pkg/realtime"
	"github.com/dukex/nodebase/pkg/web"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func RunAPICommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start the API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file:// or postgres://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:     "auth-secret",
				Usage:    "Secret used to verify session tokens",
				Required: true,
				Sources:  cli.EnvVars("AUTH_SECRET"),
			},
			&cli.StringFlag{
				Name:     "realtime-secret",
				Usage:    "Secret used to sign realtime subscription tokens",
				Required: true,
				Sources:  cli.EnvVars("REALTIME_SECRET"),
			},
			&cli.DurationFlag{
				Name:    "realtime-token-ttl",
				Usage:   "Lifetime of realtime subscription tokens",
				Value:   realtime.DefaultTokenTTL,
				Sources: cli.EnvVars("REALTIME_TOKEN_TTL"),
			},
			&cli.DurationFlag{
				Name:    "http-timeout",
				Usage:   "Timeout of outbound calls made by HTTP request nodes",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("HTTP_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("nodebase-api")

			logger.InfoContext(ctx, "Initializing nodebase API")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), "", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			tokens, err := realtime.NewTokens(command.String("realtime-secret"), command.Duration("realtime-token-ttl"))
			if err != nil {
				return err
			}

			api := NewAPI(web.Dependencies{
				Logger:        logger,
				Persistence:   persistence,
				Registry:      cmd.NewRegistry(logger, command.Duration("http-timeout")),
				EventBus:      eventBus,
				Tokens:        tokens,
				Metrics:       metrics.NewCollector("nodebase"),
				SessionSecret: command.String("auth-secret"),
			})

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)

				return err
			}

			return nil
		},
	}
}
