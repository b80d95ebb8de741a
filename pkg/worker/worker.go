// Package worker consumes execution requests and runs them through the
// graph walker with a durable step runner.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/nodebase/pkg/eventbus"
	"github.com/dukex/nodebase/pkg/events"
	"github.com/dukex/nodebase/pkg/metrics"
	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/otelhelper"
	"github.com/dukex/nodebase/pkg/persistence"
	"github.com/dukex/nodebase/pkg/status"
	"github.com/dukex/nodebase/pkg/steps"
	"github.com/dukex/nodebase/pkg/workflow"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultOutboxSize = 64

type Worker struct {
	id          string
	persistence persistence.Persistence
	walker      *workflow.Walker
	checkpoints steps.Store
	policy      steps.Policy
	publisher   status.Publisher
	eventBus    eventbus.EventPublisher
	metrics     *metrics.Collector
	tracer      trace.Tracer
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Worker)

func WithPolicy(policy steps.Policy) Option {
	return func(w *Worker) {
		w.policy = policy
	}
}

func WithMetrics(collector *metrics.Collector) Option {
	return func(w *Worker) {
		w.metrics = collector
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(w *Worker) {
		w.tracer = tracer
	}
}

// NewWorker builds a worker. Status messages go to publisher and step
// checkpoints to checkpoints.
func NewWorker(
	id string,
	p persistence.Persistence,
	walker *workflow.Walker,
	checkpoints steps.Store,
	publisher status.Publisher,
	eventBus eventbus.EventPublisher,
	logger *slog.Logger,
	opts ...Option,
) *Worker {
	w := &Worker{
		id:          id,
		persistence: p,
		walker:      walker,
		checkpoints: checkpoints,
		policy:      steps.DefaultPolicy(),
		publisher:   publisher,
		eventBus:    eventBus,
		tracer:      otel.Tracer("nodebase/worker"),
		logger:      logger.With("module", "worker", "worker_id", id),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Register binds the worker's handlers on the subscriber.
func (w *Worker) Register(subscriber eventbus.EventSubscriber) error {
	return subscriber.Handle(events.ExecutionRequestedEvent, w.handleExecutionRequested)
}

func (w *Worker) handleExecutionRequested(ctx context.Context, event any) error {
	requested, ok := event.(*events.ExecutionRequested)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for ExecutionRequested")

		return nil
	}

	return w.Process(ctx, requested)
}

// Process runs the requested execution. A failing node finishes the
// execution as failed; only storage failures are returned, so the event
// is redelivered and completed steps replay from their checkpoints.
func (w *Worker) Process(ctx context.Context, requested *events.ExecutionRequested) error {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "worker.process",
		attribute.String(otelhelper.ExecutionIDKey, requested.ExecutionID),
		attribute.String(otelhelper.WorkflowIDKey, requested.WorkflowID),
		attribute.String(otelhelper.EventIDKey, requested.ID),
		attribute.String(otelhelper.WorkerIDKey, w.id),
	)
	defer span.End()

	logger := w.logger.With(
		"execution_id", requested.ExecutionID,
		"workflow_id", requested.WorkflowID,
		"event_id", requested.ID,
	)

	execution, err := w.persistence.ExecutionRepository().GetExecution(ctx, requested.ExecutionID)
	if err != nil {
		if errors.Is(err, persistence.ErrExecutionNotFound) {
			logger.WarnContext(ctx, "Dropping request for unknown execution")

			return nil
		}

		return fmt.Errorf("failed to load execution: %w", err)
	}

	if execution.IsFinished() {
		logger.InfoContext(ctx, "Execution already finished, skipping", "status", execution.Status)

		return nil
	}

	wf, err := w.persistence.WorkflowRepository().GetByID(ctx, execution.WorkflowID)
	if err != nil {
		if errors.Is(err, persistence.ErrWorkflowNotFound) {
			return w.finish(ctx, logger, execution, nil, err, 0)
		}

		return fmt.Errorf("failed to load workflow: %w", err)
	}

	started := w.now().UTC()
	if execution.StartedAt == nil {
		execution.StartedAt = &started
	}

	execution.Status = models.ExecutionStatusRunning

	if err := w.persistence.ExecutionRepository().SaveExecution(ctx, execution); err != nil {
		return fmt.Errorf("failed to mark execution running: %w", err)
	}

	logger.InfoContext(ctx, "Processing execution", "trigger_type", execution.TriggerType)

	outbox := status.NewOutbox(w.publisher, w.logger, defaultOutboxSize,
		status.WithFailureHook(func(msg status.Message, _ error) {
			w.metrics.RecordPublishFailure(msg.Topic)
		}),
	)

	output, runErr := w.walker.Walk(ctx, workflow.Run{
		RunID:       execution.ID,
		TriggerType: execution.TriggerType,
		Workflow:    wf,
		UserID:      execution.UserID,
		Initial:     execution.Input,
		Step:        steps.NewDurable(execution.ID, w.checkpoints, w.policy, w.logger),
		Emitter:     outbox,
	})

	outbox.Close()

	if runErr != nil && ctx.Err() != nil {
		logger.WarnContext(ctx, "Execution interrupted, leaving it for redelivery", "error", runErr)

		return ctx.Err()
	}

	return w.finish(ctx, logger, execution, output, runErr, w.now().Sub(started))
}

func (w *Worker) finish(
	ctx context.Context,
	logger *slog.Logger,
	execution *models.Execution,
	output models.Context,
	runErr error,
	duration time.Duration,
) error {
	completed := w.now().UTC()
	execution.CompletedAt = &completed

	if runErr != nil {
		execution.Status = models.ExecutionStatusFailed
		execution.Error = runErr.Error()

		var nodeErr *workflow.NodeError
		if errors.As(runErr, &nodeErr) {
			execution.FailedNode = nodeErr.NodeID
		}
	} else {
		execution.Status = models.ExecutionStatusSuccess
		execution.Output = output
	}

	if err := w.persistence.ExecutionRepository().SaveExecution(ctx, execution); err != nil {
		return fmt.Errorf("failed to save execution result: %w", err)
	}

	finished := events.NewExecutionFinished(execution, duration)
	finished.WorkerID = w.id

	if err := w.eventBus.Publish(ctx, execution.ID, finished); err != nil {
		logger.ErrorContext(ctx, "Failed to publish execution finished event", "error", err)
	}

	logger.InfoContext(ctx, "Execution finished",
		"status", execution.Status,
		"failed_node", execution.FailedNode,
		"duration", duration,
	)

	return nil
}
