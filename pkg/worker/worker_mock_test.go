package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/nodebase/pkg/events"
	"github.com/dukex/nodebase/pkg/log"
	"github.com/dukex/nodebase/pkg/mocks"
	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/persistence"
	"github.com/dukex/nodebase/pkg/registry"
	"github.com/dukex/nodebase/pkg/status"
	"github.com/dukex/nodebase/pkg/steps"
	"github.com/dukex/nodebase/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errStorage = errors.New("connection refused")

func newMockedWorker(p *mocks.MockPersistence, bus *mocks.MockEventBus) *Worker {
	logger := log.Discard()

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes(nil)

	return NewWorker("worker-1", p, workflow.NewWalker(reg, logger), steps.NewMemoryStore(), status.NewRecorder(), bus, logger)
}

func pendingExecution() *models.Execution {
	return &models.Execution{
		ID:          "exec-1",
		WorkflowID:  "wf-1",
		UserID:      "user-1",
		Status:      models.ExecutionStatusPending,
		TriggerType: models.TriggerTypeManual,
	}
}

func TestProcess_LoadFailureIsRedelivered(t *testing.T) {
	p := mocks.NewMockPersistence()
	bus := &mocks.MockEventBus{}

	p.Executions.On("GetExecution", mock.Anything, "exec-1").Return(nil, errStorage)

	err := newMockedWorker(p, bus).Process(context.Background(), events.NewExecutionRequested(pendingExecution()))
	require.ErrorIs(t, err, errStorage)

	p.AssertExpectations(t)
	bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_MissingWorkflowFailsExecution(t *testing.T) {
	p := mocks.NewMockPersistence()
	bus := &mocks.MockEventBus{}
	execution := pendingExecution()

	p.Executions.On("GetExecution", mock.Anything, "exec-1").Return(execution, nil)
	p.Workflows.On("GetByID", mock.Anything, "wf-1").Return(nil, persistence.ErrWorkflowNotFound)
	p.Executions.On("SaveExecution", mock.Anything, mock.MatchedBy(func(e *models.Execution) bool {
		return e.Status == models.ExecutionStatusFailed && e.CompletedAt != nil
	})).Return(nil)
	bus.On("Publish", mock.Anything, "exec-1", mock.AnythingOfType("*events.ExecutionFinished")).Return(nil)

	err := newMockedWorker(p, bus).Process(context.Background(), events.NewExecutionRequested(execution))
	require.NoError(t, err)

	assert.Contains(t, execution.Error, "workflow not found")
	p.AssertExpectations(t)
	bus.AssertExpectations(t)
}

func TestProcess_MarkRunningFailureIsRedelivered(t *testing.T) {
	p := mocks.NewMockPersistence()
	bus := &mocks.MockEventBus{}
	execution := pendingExecution()

	p.Executions.On("GetExecution", mock.Anything, "exec-1").Return(execution, nil)
	p.Workflows.On("GetByID", mock.Anything, "wf-1").Return(&models.Workflow{
		ID:     "wf-1",
		UserID: "user-1",
		Nodes:  []*models.WorkflowNode{{ID: "trigger", Type: models.NodeTypeManualTrigger}},
	}, nil)
	p.Executions.On("SaveExecution", mock.Anything, mock.Anything).Return(errStorage).Once()

	err := newMockedWorker(p, bus).Process(context.Background(), events.NewExecutionRequested(execution))
	require.ErrorIs(t, err, errStorage)

	p.AssertExpectations(t)
	bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_FinishedEventFailureIsLogged(t *testing.T) {
	p := mocks.NewMockPersistence()
	bus := &mocks.MockEventBus{}
	execution := pendingExecution()

	p.Executions.On("GetExecution", mock.Anything, "exec-1").Return(execution, nil)
	p.Workflows.On("GetByID", mock.Anything, "wf-1").Return(&models.Workflow{
		ID:     "wf-1",
		UserID: "user-1",
		Nodes:  []*models.WorkflowNode{{ID: "trigger", Type: models.NodeTypeManualTrigger}},
	}, nil)
	p.Executions.On("SaveExecution", mock.Anything, mock.Anything).Return(nil).Twice()
	bus.On("Publish", mock.Anything, "exec-1", mock.Anything).Return(errors.New("broker down"))

	err := newMockedWorker(p, bus).Process(context.Background(), events.NewExecutionRequested(execution))
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusSuccess, execution.Status)
	p.AssertExpectations(t)
	bus.AssertExpectations(t)
}
