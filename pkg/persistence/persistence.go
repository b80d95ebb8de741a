// Package persistence provides the data storage abstraction for workflows,
// executions and step checkpoints.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/nodebase/pkg/models"
)

type Persistence interface {
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error

	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	CheckpointRepository() CheckpointRepository
}

// Sort fields accepted by ListWorkflows.
const (
	SortByCreatedAt = "created_at"
	SortByUpdatedAt = "updated_at"
	SortByName      = "name"

	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ListWorkflowsOptions filters and pages a workflow listing.
type ListWorkflowsOptions struct {
	OwnerID   string
	Search    string
	Status    *models.WorkflowStatus
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// Normalize fills defaults and rejects sort fields outside the allowlist.
func (o *ListWorkflowsOptions) Normalize() error {
	if o.Limit <= 0 || o.Limit > MaxListLimit {
		o.Limit = DefaultListLimit
	}

	if o.Offset < 0 {
		o.Offset = 0
	}

	if o.SortBy == "" {
		o.SortBy = SortByCreatedAt
	}

	if o.SortOrder != "asc" {
		o.SortOrder = "desc"
	}

	switch o.SortBy {
	case SortByCreatedAt, SortByUpdatedAt, SortByName:
		return nil
	default:
		return ErrInvalidSortField
	}
}

type WorkflowListResult struct {
	Workflows   []*models.Workflow
	TotalCount  int64
	HasNextPage bool
}

type WorkflowRepository interface {
	ListWorkflows(ctx context.Context, opts ListWorkflowsOptions) (*WorkflowListResult, error)
	// GetByID fails with ErrWorkflowNotFound when the workflow does not exist.
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	// GetByIDAndUser scopes the lookup to the owner: a workflow owned by
	// someone else is reported exactly like a missing one.
	GetByIDAndUser(ctx context.Context, id, userID string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

type ExecutionRepository interface {
	SaveExecution(ctx context.Context, execution *models.Execution) error
	// GetExecution fails with ErrExecutionNotFound when the execution does not exist.
	GetExecution(ctx context.Context, id string) (*models.Execution, error)
	// ListExecutions returns the newest executions of a workflow first.
	ListExecutions(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error)
}

// CheckpointRepository stores step checkpoints. LoadCheckpoint returns
// nil, nil when the step has not completed.
type CheckpointRepository interface {
	LoadCheckpoint(ctx context.Context, runID, stepName string) (*models.Checkpoint, error)
	SaveCheckpoint(ctx context.Context, checkpoint *models.Checkpoint) error
	PurgeCheckpoints(ctx context.Context, before time.Time) (int64, error)
}
