// Package workflow walks a workflow graph, running each node's executor in
// dependency order and threading the execution context between them.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/nodebase/pkg/metrics"
	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/otelhelper"
	"github.com/dukex/nodebase/pkg/protocol"
	"github.com/dukex/nodebase/pkg/registry"
	"github.com/dukex/nodebase/pkg/status"
	"github.com/dukex/nodebase/pkg/steps"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// NodeError reports the node that stopped a run.
type NodeError struct {
	NodeID   string
	NodeType models.NodeType
	Err      error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s (%s): %v", e.NodeID, e.NodeType, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// Run is one execution of a workflow.
type Run struct {
	RunID       string
	TriggerType string
	Workflow    *models.Workflow
	UserID      string
	Initial     models.Context
	Step        steps.Runner
	Emitter     status.Emitter
}

type Walker struct {
	registry *registry.Registry
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *metrics.Collector
}

type Option func(*Walker)

func WithTracer(tracer trace.Tracer) Option {
	return func(w *Walker) {
		w.tracer = tracer
	}
}

func WithMetrics(collector *metrics.Collector) Option {
	return func(w *Walker) {
		w.metrics = collector
	}
}

func NewWalker(registry *registry.Registry, logger *slog.Logger, opts ...Option) *Walker {
	walker := &Walker{
		registry: registry,
		logger:   logger.With("module", "workflow_walker"),
		tracer:   otel.Tracer("nodebase/workflow"),
	}

	for _, opt := range opts {
		opt(walker)
	}

	return walker
}

type plannedNode struct {
	node     *models.WorkflowNode
	executor protocol.Executor
}

// Walk runs the workflow's nodes in execution order. The first failing
// node halts the run: no later node is started and the node's error is
// returned wrapped in a NodeError.
func (w *Walker) Walk(ctx context.Context, run Run) (models.Context, error) {
	started := time.Now()

	result, err := w.walk(ctx, run)

	w.metrics.RecordRun(run.TriggerType, time.Since(started), err)

	return result, err
}

func (w *Walker) walk(ctx context.Context, run Run) (models.Context, error) {
	started := time.Now()
	logger := w.logger.With(
		"run_id", run.RunID,
		"workflow_id", run.Workflow.ID,
		"user_id", run.UserID,
	)

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.walk",
		attribute.String(otelhelper.ExecutionIDKey, run.RunID),
		attribute.String(otelhelper.WorkflowIDKey, run.Workflow.ID),
		attribute.String(otelhelper.WorkflowNameKey, run.Workflow.Name),
		attribute.String(otelhelper.UserIDKey, run.UserID),
		attribute.String(otelhelper.TriggerTypeKey, run.TriggerType),
	)
	defer span.End()

	plan, err := w.plan(run.Workflow)
	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Failed to plan workflow run", "error", err)

		return nil, err
	}

	logger.InfoContext(ctx, "Starting workflow run", "nodes", len(plan))

	current := run.Initial.Clone()

	for _, step := range plan {
		if err := ctx.Err(); err != nil {
			logger.WarnContext(ctx, "Workflow run abandoned", "error", err)

			return nil, err
		}

		current, err = w.execute(ctx, run, step, current)
		if err != nil {
			otelhelper.SetError(span, err, attribute.String(otelhelper.NodeIDKey, step.node.ID))
			logger.ErrorContext(ctx, "Workflow run halted", "node_id", step.node.ID, "error", err)

			return nil, err
		}
	}

	logger.InfoContext(ctx, "Workflow run completed", "duration", time.Since(started))

	return current, nil
}

// plan resolves the order and every executor before any node runs, so a
// graph error never leaves a run half-started.
func (w *Walker) plan(workflow *models.Workflow) ([]plannedNode, error) {
	order, err := ExecutionOrder(workflow)
	if err != nil {
		return nil, err
	}

	plan := make([]plannedNode, 0, len(order))

	for _, node := range order {
		executor, err := w.registry.Executor(node.Type)
		if err != nil {
			return nil, &NodeError{NodeID: node.ID, NodeType: node.Type, Err: err}
		}

		plan = append(plan, plannedNode{node: node, executor: executor})
	}

	return plan, nil
}

func (w *Walker) execute(ctx context.Context, run Run, step plannedNode, current models.Context) (models.Context, error) {
	node := step.node

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.node",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
	)
	defer span.End()

	started := time.Now()

	result, err := step.executor.Execute(ctx, protocol.Request{
		Data:       node.Data,
		NodeID:     node.ID,
		Context:    current,
		Step:       steps.NewScoped(run.Step, node.ID),
		Emitter:    run.Emitter,
		WorkflowID: run.Workflow.ID,
		UserID:     run.UserID,
	})

	w.metrics.RecordNode(string(node.Type), time.Since(started), err)

	if err != nil {
		otelhelper.SetError(span, err)

		return nil, &NodeError{NodeID: node.ID, NodeType: node.Type, Err: err}
	}

	if result == nil {
		result = models.Context{}
	}

	return result, nil
}
