package postgresql_test

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/nodebase/pkg/log"
	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/persistence"
	"github.com/dukex/nodebase/pkg/persistence/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	t.Cleanup(cancel)

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("nodebase_test"),
		postgres.WithUsername("nodebase"),
		postgres.WithPassword("nodebase"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	databaseURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	p, err := postgresql.NewPersistence(ctx, log.Discard(), databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() { _ = p.Close(context.Background()) })

	return p, ctx
}

func TestPersistenceIntegration(t *testing.T) {
	p, ctx := setupTestDB(t)

	require.NoError(t, p.HealthCheck(ctx))

	workflows := p.WorkflowRepository()
	executions := p.ExecutionRepository()
	checkpoints := p.CheckpointRepository()

	workflow := &models.Workflow{
		Name:   "Lead intake",
		UserID: "user-1",
		Nodes: []*models.WorkflowNode{
			{ID: "form", Name: "Form", Type: models.NodeTypeGoogleFormTrigger, Data: map[string]any{}},
			{ID: "http", Name: "Notify", Type: models.NodeTypeHTTPRequest, Data: map[string]any{"endpoint": "https://example.com", "method": "POST"}},
		},
		Connections: []*models.Connection{{ID: "c1", FromNodeID: "form", ToNodeID: "http"}},
	}

	require.NoError(t, workflows.Save(ctx, workflow))

	loaded, err := workflows.GetByIDAndUser(ctx, workflow.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, loaded.Nodes, 2)
	assert.Equal(t, "form", loaded.Nodes[0].ID)
	assert.Equal(t, "POST", loaded.Nodes[1].Data["method"])
	require.Len(t, loaded.Connections, 1)
	assert.Equal(t, models.DefaultPortName, loaded.Connections[0].FromOutput)

	_, err = workflows.GetByIDAndUser(ctx, workflow.ID, "user-2")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	loaded.Name = "Lead intake v2"
	loaded.Nodes = loaded.Nodes[:1]
	loaded.Connections = nil
	require.NoError(t, workflows.Save(ctx, loaded))

	updated, err := workflows.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lead intake v2", updated.Name)
	assert.Len(t, updated.Nodes, 1)
	assert.Empty(t, updated.Connections)

	listed, err := workflows.ListWorkflows(ctx, persistence.ListWorkflowsOptions{OwnerID: "user-1", Search: "v2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), listed.TotalCount)

	started := time.Now().UTC()
	execution := &models.Execution{
		ID:          "exec-1",
		WorkflowID:  workflow.ID,
		UserID:      "user-1",
		Status:      models.ExecutionStatusRunning,
		TriggerType: models.TriggerTypeManual,
		Input:       models.Context{"googleForm": map[string]any{"email": "a@b.c"}},
		CreatedAt:   started,
		StartedAt:   &started,
	}
	require.NoError(t, executions.SaveExecution(ctx, execution))

	execution.Status = models.ExecutionStatusFailed
	execution.FailedNode = "http"
	execution.Error = "boom"
	require.NoError(t, executions.SaveExecution(ctx, execution))

	stored, err := executions.GetExecution(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, stored.Status)
	assert.Equal(t, "http", stored.FailedNode)
	assert.Nil(t, stored.CompletedAt)

	history, err := executions.ListExecutions(ctx, workflow.ID, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	require.NoError(t, checkpoints.SaveCheckpoint(ctx, &models.Checkpoint{
		RunID: "exec-1", StepName: "http/http-request", Output: models.Context{"ok": true}, CompletedAt: started.Add(-time.Hour),
	}))

	checkpoint, err := checkpoints.LoadCheckpoint(ctx, "exec-1", "http/http-request")
	require.NoError(t, err)
	require.NotNil(t, checkpoint)
	assert.Equal(t, true, checkpoint.Output["ok"])

	purged, err := checkpoints.PurgeCheckpoints(ctx, started)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	require.NoError(t, workflows.Delete(ctx, workflow.ID))

	_, err = executions.GetExecution(ctx, "exec-1")
	assert.ErrorIs(t, err, persistence.ErrExecutionNotFound)
}
