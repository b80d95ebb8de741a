package steps

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukex/nodebase/pkg/log"
	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/otelhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func fastPolicy(attempts uint64) Policy {
	return Policy{MaxAttempts: attempts, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestDurable_RunCheckpointsOnce(t *testing.T) {
	store := NewMemoryStore()
	calls := 0
	fn := func(context.Context) (models.Context, error) {
		calls++

		return models.Context{"value": calls}, nil
	}

	first := NewDurable("run-1", store, fastPolicy(3), log.Discard())
	out, err := first.Run(context.Background(), "http-request", fn)
	require.NoError(t, err)
	assert.Equal(t, 1, out["value"])

	// A redelivered run resumes from the checkpoint instead of re-executing.
	redelivered := NewDurable("run-1", store, fastPolicy(3), log.Discard())
	out, err = redelivered.Run(context.Background(), "http-request", fn)
	require.NoError(t, err)
	assert.Equal(t, 1, out["value"])
	assert.Equal(t, 1, calls)

	other := NewDurable("run-2", store, fastPolicy(3), log.Discard())
	out, err = other.Run(context.Background(), "http-request", fn)
	require.NoError(t, err)
	assert.Equal(t, 2, out["value"])
}

func TestDurable_RetriesTransientFailures(t *testing.T) {
	store := NewMemoryStore()
	calls := 0
	runner := NewDurable("run-1", store, fastPolicy(3), log.Discard())

	out, err := runner.Run(context.Background(), "flaky", func(context.Context) (models.Context, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset")
		}

		return models.Context{"ok": true}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, true, out["ok"])
}

func TestDurable_GivesUpAfterMaxAttempts(t *testing.T) {
	store := NewMemoryStore()
	calls := 0
	boom := errors.New("upstream 503")
	runner := NewDurable("run-1", store, fastPolicy(2), log.Discard())

	_, err := runner.Run(context.Background(), "flaky", func(context.Context) (models.Context, error) {
		calls++

		return nil, boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)

	checkpoint, err := store.LoadCheckpoint(context.Background(), "run-1", "flaky")
	require.NoError(t, err)
	assert.Nil(t, checkpoint, "failed steps must not be checkpointed")
}

func TestDurable_NonRetriableStopsImmediately(t *testing.T) {
	calls := 0
	runner := NewDurable("run-1", NewMemoryStore(), fastPolicy(5), log.Discard())
	configErr := NonRetriablef("missing endpoint")

	_, err := runner.Run(context.Background(), "http-request", func(context.Context) (models.Context, error) {
		calls++

		return nil, configErr
	})

	require.Error(t, err)
	assert.True(t, IsNonRetriable(err))
	assert.Equal(t, configErr, err, "the original error is returned unwrapped from the backoff layer")
	assert.Equal(t, 1, calls)
}

func TestScoped_PrefixesStepNames(t *testing.T) {
	store := NewMemoryStore()
	runner := NewDurable("run-1", store, fastPolicy(1), log.Discard())

	fn := func(context.Context) (models.Context, error) { return models.Context{}, nil }

	_, err := NewScoped(runner, "node-a").Run(context.Background(), "http-request", fn)
	require.NoError(t, err)
	_, err = NewScoped(runner, "node-b").Run(context.Background(), "http-request", fn)
	require.NoError(t, err)

	for _, name := range []string{"node-a/http-request", "node-b/http-request"} {
		checkpoint, err := store.LoadCheckpoint(context.Background(), "run-1", name)
		require.NoError(t, err)
		assert.NotNil(t, checkpoint, name)
	}
}

func TestMemoryStore_Purge(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.SaveCheckpoint(ctx, &models.Checkpoint{RunID: "old", StepName: "s", CompletedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.SaveCheckpoint(ctx, &models.Checkpoint{RunID: "new", StepName: "s", CompletedAt: now}))

	purged, err := store.PurgeCheckpoints(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	old, err := store.LoadCheckpoint(ctx, "old", "s")
	require.NoError(t, err)
	assert.Nil(t, old)

	recent, err := store.LoadCheckpoint(ctx, "new", "s")
	require.NoError(t, err)
	assert.NotNil(t, recent)
}

func TestNonRetriable(t *testing.T) {
	assert.NoError(t, NonRetriable(nil))

	inner := errors.New("bad config")
	err := NonRetriable(inner)

	assert.ErrorIs(t, err, inner)
	assert.ErrorIs(t, err, ErrNonRetriable)
	assert.Equal(t, "bad config", err.Error())
	assert.False(t, IsNonRetriable(inner))
}

func TestDurable_RecordsStepEventsOnSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	store := NewMemoryStore()
	fn := func(context.Context) (models.Context, error) {
		return models.Context{"ok": true}, nil
	}

	ctx, span := provider.Tracer("test").Start(context.Background(), "node")

	_, err := NewDurable("run-1", store, fastPolicy(1), log.Discard()).Run(ctx, "http/http-request", fn)
	require.NoError(t, err)
	_, err = NewDurable("run-1", store, fastPolicy(1), log.Discard()).Run(ctx, "http/http-request", fn)
	require.NoError(t, err)

	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)

	spanEvents := ended[0].Events()
	require.Len(t, spanEvents, 2)
	assert.Equal(t, "step.completed", spanEvents[0].Name)
	assert.Equal(t, "step.replayed", spanEvents[1].Name)
	assert.Contains(t, spanEvents[1].Attributes, attribute.String(otelhelper.StepNameKey, "http/http-request"))
}
