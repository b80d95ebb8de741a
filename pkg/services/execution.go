package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/nodebase/pkg/eventbus"
	"github.com/dukex/nodebase/pkg/events"
	"github.com/dukex/nodebase/pkg/metrics"
	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/persistence"
	"github.com/google/uuid"
)

// Execution starts workflow runs and reads their history.
type Execution struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	metrics     *metrics.Collector
	logger      *slog.Logger
}

func NewExecution(persistence persistence.Persistence, publisher eventbus.EventPublisher, collector *metrics.Collector, logger *slog.Logger) *Execution {
	return &Execution{
		persistence: persistence,
		publisher:   publisher,
		metrics:     collector,
		logger:      logger.With("module", "execution_service"),
	}
}

// Execute records a pending run of a workflow owned by userID and hands it to
// the workers.
func (e *Execution) Execute(ctx context.Context, userID, workflowID, triggerType string, input models.Context) (*models.Execution, error) {
	found, err := e.persistence.WorkflowRepository().GetByIDAndUser(ctx, workflowID, userID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return nil, ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	return e.start(ctx, found, triggerType, input)
}

func (e *Execution) start(ctx context.Context, target *models.Workflow, triggerType string, input models.Context) (*models.Execution, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate execution ID: %w", err)
	}

	if input == nil {
		input = models.Context{}
	}

	execution := &models.Execution{
		ID:          id.String(),
		WorkflowID:  target.ID,
		UserID:      target.UserID,
		Status:      models.ExecutionStatusPending,
		TriggerType: triggerType,
		Input:       input,
		CreatedAt:   time.Now().UTC(),
	}

	err = e.persistence.ExecutionRepository().SaveExecution(ctx, execution)
	if err != nil {
		return nil, fmt.Errorf("failed to save execution: %w", err)
	}

	err = e.publisher.Publish(ctx, execution.ID, events.NewExecutionRequested(execution))
	if err != nil {
		return nil, fmt.Errorf("failed to publish execution request: %w", err)
	}

	e.metrics.RecordExecutionRequest(triggerType)

	e.logger.InfoContext(ctx, "Execution requested",
		"execution_id", execution.ID,
		"workflow_id", execution.WorkflowID,
		"trigger_type", triggerType)

	return execution, nil
}

// List returns the newest runs of a workflow owned by userID.
func (e *Execution) List(ctx context.Context, userID, workflowID string, limit int) ([]*models.Execution, error) {
	_, err := e.persistence.WorkflowRepository().GetByIDAndUser(ctx, workflowID, userID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return nil, ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	executions, err := e.persistence.ExecutionRepository().ListExecutions(ctx, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

// Get returns one run when userID owns it.
func (e *Execution) Get(ctx context.Context, userID, executionID string) (*models.Execution, error) {
	execution, err := e.persistence.ExecutionRepository().GetExecution(ctx, executionID)
	if err != nil {
		if persistence.IsExecutionNotFound(err) {
			return nil, ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to get execution: %w", err)
	}

	if execution.UserID != userID {
		return nil, ErrExecutionNotFound
	}

	return execution, nil
}
