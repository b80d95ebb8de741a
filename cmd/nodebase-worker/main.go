package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dukex/nodebase/pkg/cmd"
	"github.com/dukex/nodebase/pkg/log"
	"github.com/dukex/nodebase/pkg/metrics"
	"github.com/dukex/nodebase/pkg/otelhelper"
	"github.com/dukex/nodebase/pkg/steps"
	"github.com/dukex/nodebase/pkg/worker"
	"github.com/dukex/nodebase/pkg/workflow"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "nodebase-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to execute workflows",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
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
				Name:    "realtime-provider",
				Usage:   "Status transport (redis, kafka, gochannel)",
				Value:   "redis",
				Sources: cli.EnvVars("REALTIME_PROVIDER"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the realtime broker and checkpoint store",
				Value:   "redis://localhost:6379/0",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "checkpoint-store",
				Usage:   "Where step checkpoints are kept (persistence, redis, memory)",
				Value:   "persistence",
				Sources: cli.EnvVars("CHECKPOINT_STORE"),
			},
			&cli.DurationFlag{
				Name:    "checkpoint-retention",
				Usage:   "How long step checkpoints are kept",
				Value:   72 * time.Hour,
				Sources: cli.EnvVars("CHECKPOINT_RETENTION"),
			},
			&cli.StringFlag{
				Name:    "janitor-schedule",
				Usage:   "Cron schedule of the checkpoint purge",
				Value:   worker.DefaultJanitorSchedule,
				Sources: cli.EnvVars("JANITOR_SCHEDULE"),
			},
			&cli.Uint64Flag{
				Name:    "step-max-attempts",
				Usage:   "Attempts per step before a node fails",
				Value:   steps.DefaultPolicy().MaxAttempts,
				Sources: cli.EnvVars("STEP_MAX_ATTEMPTS"),
			},
			&cli.DurationFlag{
				Name:    "step-initial-interval",
				Usage:   "Delay before the first step retry",
				Value:   steps.DefaultPolicy().InitialInterval,
				Sources: cli.EnvVars("STEP_INITIAL_INTERVAL"),
			},
			&cli.DurationFlag{
				Name:    "http-timeout",
				Usage:   "Timeout of outbound calls made by HTTP request nodes",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("HTTP_TIMEOUT"),
			},
			&cli.IntFlag{
				Name:    "metrics-port",
				Usage:   "Port serving prometheus metrics (0 disables)",
				Value:   9092,
				Sources: cli.EnvVars("METRICS_PORT"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces through OTLP over HTTP",
				Value:   false,
				Sources: cli.EnvVars("TRACING_ENABLED"),
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

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("nodebase-worker").With("workerId", workerID)

			logger.InfoContext(ctx, "Initializing nodebase worker")

			if err := worker.ValidateSchedule(command.String("janitor-schedule")); err != nil {
				return err
			}

			collector := metrics.NewCollector("nodebase")
			walkerOpts := []workflow.Option{workflow.WithMetrics(collector)}
			workerOpts := []worker.Option{}

			if command.Bool("tracing") {
				tracer, shutdown, err := otelhelper.NewTracer(ctx, "nodebase-worker")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				defer func() {
					if err := shutdown(context.WithoutCancel(ctx)); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()

				walkerOpts = append(walkerOpts, workflow.WithTracer(tracer))
				workerOpts = append(workerOpts, worker.WithTracer(tracer))
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), cmd.WorkerConsumerGroup, logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			broker, err := cmd.NewRealtimeBroker(command.String("realtime-provider"), command.String("redis-url"), command.String("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := broker.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close realtime broker", "error", err)
				}
			}()

			retention := command.Duration("checkpoint-retention")

			checkpoints, err := cmd.NewCheckpointStore(command.String("checkpoint-store"), persistence, command.String("redis-url"), retention)
			if err != nil {
				return err
			}

			policy := steps.DefaultPolicy()
			policy.MaxAttempts = command.Uint64("step-max-attempts")
			policy.InitialInterval = command.Duration("step-initial-interval")

			registry := cmd.NewRegistry(logger, command.Duration("http-timeout"))

			w := worker.NewWorker(
				workerID,
				persistence,
				workflow.NewWalker(registry, logger, walkerOpts...),
				checkpoints,
				broker,
				eventBus,
				logger,
				append(workerOpts, worker.WithPolicy(policy), worker.WithMetrics(collector))...,
			)

			manager := NewWorkerManager(
				w,
				eventBus,
				worker.NewJanitor(checkpoints, retention, command.String("janitor-schedule"), collector, logger),
				collector,
				command.Int("metrics-port"),
				logger,
			)

			if err := manager.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
