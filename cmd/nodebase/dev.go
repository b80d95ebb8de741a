package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukex/nodebase/pkg/cmd"
	"github.com/dukex/nodebase/pkg/log"
	"github.com/dukex/nodebase/pkg/metrics"
	"github.com/dukex/nodebase/pkg/realtime"
	"github.com/dukex/nodebase/pkg/web"
	"github.com/dukex/nodebase/pkg/worker"
	"github.com/dukex/nodebase/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	cli "github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func NewDevCommand() *cli.Command {
	return &cli.Command{
		Name:    "dev",
		Aliases: []string{"d"},
		Usage:   "Start the API, a worker and the realtime gateway",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port of the API server",
				Value:   9091,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.IntFlag{
				Name:    "realtime-port",
				Usage:   "Port of the realtime gateway",
				Value:   9093,
				Sources: cli.EnvVars("REALTIME_PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence (file:// or postgres://)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
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
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("nodebase")

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(context.WithoutCancel(ctx)); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus("gochannel", "", "", logger)
			if err != nil {
				return err
			}

			defer func() { _ = eventBus.Close() }()

			broker, err := cmd.NewRealtimeBroker("gochannel", "", "", logger)
			if err != nil {
				return err
			}

			defer func() { _ = broker.Close() }()

			tokens, err := realtime.NewTokens(command.String("realtime-secret"), realtime.DefaultTokenTTL)
			if err != nil {
				return err
			}

			collector := metrics.NewCollector("nodebase")
			registry := cmd.NewRegistry(logger, 30*time.Second)

			w := worker.NewWorker(
				"worker-local",
				persistence,
				workflow.NewWalker(registry, logger, workflow.WithMetrics(collector)),
				persistence.CheckpointRepository(),
				broker,
				eventBus,
				logger,
				worker.WithMetrics(collector),
			)

			if err := w.Register(eventBus); err != nil {
				return err
			}

			if err := eventBus.Subscribe(ctx); err != nil {
				return err
			}

			app := web.NewApp(web.Dependencies{
				Logger:        logger,
				Persistence:   persistence,
				Registry:      registry,
				EventBus:      eventBus,
				Tokens:        tokens,
				Metrics:       collector,
				SessionSecret: command.String("auth-secret"),
			})

			gateway := &http.Server{
				Addr:              ":" + strconv.Itoa(command.Int("realtime-port")),
				Handler:           realtime.NewGateway(tokens, broker, logger, []string{"*"}).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
				BaseContext:       func(_ net.Listener) context.Context { return ctx },
			}

			return serve(ctx, app, command.Int("port"), gateway)
		},
	}
}

func serve(ctx context.Context, app *fiber.App, port int, gateway *http.Server) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
	})

	group.Go(func() error {
		if err := gateway.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	group.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		return errors.Join(
			app.ShutdownWithContext(shutdownCtx),
			gateway.Shutdown(shutdownCtx),
		)
	})

	return group.Wait()
}
