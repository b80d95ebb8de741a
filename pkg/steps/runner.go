// Package steps provides durable, retryable units of work within a workflow run.
package steps

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Func is the body of a step.
type Func func(ctx context.Context) (models.Context, error)

// Runner executes named steps.
type Runner interface {
	Run(ctx context.Context, name string, fn Func) (models.Context, error)
}

// Store persists step checkpoints. LoadCheckpoint returns nil, nil when the
// step has not completed in the run.
type Store interface {
	LoadCheckpoint(ctx context.Context, runID, stepName string) (*models.Checkpoint, error)
	SaveCheckpoint(ctx context.Context, checkpoint *models.Checkpoint) error
	PurgeCheckpoints(ctx context.Context, before time.Time) (int64, error)
}

// Policy bounds the retries of a step.
type Policy struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = p.InitialInterval
	exponential.MaxInterval = p.MaxInterval
	exponential.MaxElapsedTime = 0

	retries := uint64(0)
	if p.MaxAttempts > 1 {
		retries = p.MaxAttempts - 1
	}

	return backoff.WithContext(backoff.WithMaxRetries(exponential, retries), ctx)
}

// Durable runs each step name at most once to completion per run: completed
// steps are checkpointed and replayed from the store on re-delivery.
type Durable struct {
	runID  string
	store  Store
	policy Policy
	logger *slog.Logger
	now    func() time.Time
}

func NewDurable(runID string, store Store, policy Policy, logger *slog.Logger) *Durable {
	return &Durable{
		runID:  runID,
		store:  store,
		policy: policy,
		logger: logger.With("module", "step_runner", "run_id", runID),
		now:    time.Now,
	}
}

func (d *Durable) Run(ctx context.Context, name string, fn Func) (models.Context, error) {
	logger := d.logger.With("step", name)
	span := trace.SpanFromContext(ctx)
	stepAttr := trace.WithAttributes(attribute.String(otelhelper.StepNameKey, name))

	checkpoint, err := d.store.LoadCheckpoint(ctx, d.runID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint for step %s: %w", name, err)
	}

	if checkpoint != nil {
		logger.DebugContext(ctx, "Step already completed, replaying checkpoint")
		span.AddEvent("step.replayed", stepAttr)

		return checkpoint.Output.Clone(), nil
	}

	var (
		output  models.Context
		attempt int
	)

	operation := func() error {
		attempt++

		result, err := fn(ctx)
		if err != nil {
			if IsNonRetriable(err) {
				return backoff.Permanent(err)
			}

			logger.WarnContext(ctx, "Step attempt failed", "attempt", attempt, "error", err)

			return err
		}

		output = result

		return nil
	}

	err = backoff.Retry(operation, d.policy.backOff(ctx))
	if err != nil {
		logger.ErrorContext(ctx, "Step failed", "attempts", attempt, "error", err)

		return nil, err
	}

	err = d.store.SaveCheckpoint(ctx, &models.Checkpoint{
		RunID:       d.runID,
		StepName:    name,
		Output:      output,
		CompletedAt: d.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save checkpoint for step %s: %w", name, err)
	}

	logger.DebugContext(ctx, "Step completed", "attempts", attempt)
	span.AddEvent("step.completed", stepAttr, trace.WithAttributes(attribute.Int("attempts", attempt)))

	return output, nil
}

// Scoped prefixes every step name, so the same executor used by several
// nodes of one run checkpoints independently per node.
type Scoped struct {
	runner Runner
	prefix string
}

func NewScoped(runner Runner, prefix string) *Scoped {
	return &Scoped{runner: runner, prefix: prefix}
}

func (s *Scoped) Run(ctx context.Context, name string, fn Func) (models.Context, error) {
	return s.runner.Run(ctx, s.prefix+"/"+name, fn)
}
