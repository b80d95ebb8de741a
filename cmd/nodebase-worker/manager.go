package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukex/nodebase/pkg/eventbus"
	"github.com/dukex/nodebase/pkg/metrics"
	"github.com/dukex/nodebase/pkg/worker"
)

const shutdownTimeout = 10 * time.Second

type WorkerManager struct {
	worker      *worker.Worker
	eventBus    eventbus.EventSubscriber
	janitor     *worker.Janitor
	metrics     *metrics.Collector
	metricsPort int
	logger      *slog.Logger
}

func NewWorkerManager(
	w *worker.Worker,
	eventBus eventbus.EventSubscriber,
	janitor *worker.Janitor,
	collector *metrics.Collector,
	metricsPort int,
	logger *slog.Logger,
) *WorkerManager {
	return &WorkerManager{
		worker:      w,
		eventBus:    eventBus,
		janitor:     janitor,
		metrics:     collector,
		metricsPort: metricsPort,
		logger:      logger.With("module", "nodebase-worker"),
	}
}

// Start runs until SIGINT or SIGTERM.
func (m *WorkerManager) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.worker.Register(m.eventBus); err != nil {
		return err
	}

	if err := m.eventBus.Subscribe(ctx); err != nil {
		m.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	if err := m.janitor.Start(ctx); err != nil {
		return err
	}
	defer m.janitor.Stop()

	server := m.metricsServer()
	if server != nil {
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				m.logger.ErrorContext(ctx, "Metrics server stopped", "error", err)
			}
		}()
	}

	m.logger.InfoContext(ctx, "Worker started successfully")

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Shutting down worker...")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			m.logger.ErrorContext(ctx, "Failed to stop metrics server", "error", err)
		}
	}

	return nil
}

func (m *WorkerManager) metricsServer() *http.Server {
	if m.metricsPort <= 0 {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.metrics.Handler())

	return &http.Server{
		Addr:              ":" + strconv.Itoa(m.metricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
