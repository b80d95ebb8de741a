// Package main provides the websocket gateway streaming status events.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dukex/nodebase/pkg/cmd"
	"github.com/dukex/nodebase/pkg/log"
	"github.com/dukex/nodebase/pkg/realtime"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort     = 9093
	shutdownTimeout = 10 * time.Second
)

func main() {
	command := &cli.Command{
		Name:                  "nodebase-realtime",
		EnableShellCompletion: true,
		Usage:                 "Stream workflow status to browsers",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the gateway on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "realtime-secret",
				Usage:    "Secret used to verify realtime subscription tokens",
				Required: true,
				Sources:  cli.EnvVars("REALTIME_SECRET"),
			},
			&cli.StringFlag{
				Name:    "realtime-provider",
				Usage:   "Status transport (redis, kafka, gochannel)",
				Value:   "redis",
				Sources: cli.EnvVars("REALTIME_PROVIDER"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL of the realtime broker",
				Value:   "redis://localhost:6379/0",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "allowed-origins",
				Usage:   "Comma separated websocket origins, * allows any",
				Value:   "*",
				Sources: cli.EnvVars("ALLOWED_ORIGINS"),
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

			logger := log.WithModule("nodebase-realtime")

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tokens, err := realtime.NewTokens(command.String("realtime-secret"), realtime.DefaultTokenTTL)
			if err != nil {
				return err
			}

			broker, err := cmd.NewRealtimeBroker(command.String("realtime-provider"), command.String("redis-url"), command.String("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := broker.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close realtime broker", "error", err)
				}
			}()

			gateway := realtime.NewGateway(tokens, broker, logger, strings.Split(command.String("allowed-origins"), ","))

			server := &http.Server{
				Addr:              ":" + strconv.Itoa(command.Int("port")),
				Handler:           gateway.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
				BaseContext:       func(_ net.Listener) context.Context { return ctx },
			}

			go func() {
				<-ctx.Done()

				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.ErrorContext(ctx, "Failed to stop gateway", "error", err)
				}
			}()

			logger.InfoContext(ctx, "Realtime gateway listening", "addr", server.Addr)

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
