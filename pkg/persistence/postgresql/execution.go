package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/persistence"
)

const executionColumns = `id, workflow_id, user_id, status, trigger_type, input, output, error, failed_node, created_at, started_at, completed_at`

// ExecutionRepository stores the run history of workflows.
type ExecutionRepository struct {
	db *sql.DB
}

func NewExecutionRepository(db *sql.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

// SaveExecution inserts or updates an execution record.
func (r *ExecutionRepository) SaveExecution(ctx context.Context, execution *models.Execution) error {
	input, err := marshalContext(execution.Input)
	if err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	output, err := marshalContext(execution.Output)
	if err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	query := `
		INSERT INTO executions (` + executionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			output = EXCLUDED.output,
			error = EXCLUDED.error,
			failed_node = EXCLUDED.failed_node,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.UserID,
		execution.Status,
		execution.TriggerType,
		input,
		output,
		nullString(execution.Error),
		nullString(execution.FailedNode),
		execution.CreatedAt,
		execution.StartedAt,
		execution.CompletedAt,
	)
	if err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, fmt.Errorf("failed to save execution: %w", err))
	}

	return nil
}

func (r *ExecutionRepository) GetExecution(ctx context.Context, id string) (*models.Execution, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+executionColumns+" FROM executions WHERE id = $1", id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("GetExecution", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("GetExecution", id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) ListExecutions(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	if limit <= 0 || limit > persistence.MaxListLimit {
		limit = persistence.DefaultListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+executionColumns+" FROM executions WHERE workflow_id = $1 ORDER BY created_at DESC LIMIT $2",
		workflowID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() { _ = rows.Close() }()

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func scanExecution(scanner interface {
	Scan(dest ...any) error
}) (*models.Execution, error) {
	var (
		execution           models.Execution
		input, output       []byte
		errText, failedNode sql.NullString
		startedAt           sql.NullTime
		completedAt         sql.NullTime
	)

	err := scanner.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.UserID,
		&execution.Status,
		&execution.TriggerType,
		&input,
		&output,
		&errText,
		&failedNode,
		&execution.CreatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if execution.Input, err = unmarshalContext(input); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution input: %w", err)
	}

	if execution.Output, err = unmarshalContext(output); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution output: %w", err)
	}

	execution.Error = errText.String
	execution.FailedNode = failedNode.String

	if startedAt.Valid {
		execution.StartedAt = &startedAt.Time
	}

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	return &execution, nil
}

func marshalContext(value models.Context) ([]byte, error) {
	if value == nil {
		return nil, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal context: %w", err)
	}

	return data, nil
}

func unmarshalContext(data []byte) (models.Context, error) {
	if data == nil {
		return nil, nil
	}

	var value models.Context

	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}

	return value, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
