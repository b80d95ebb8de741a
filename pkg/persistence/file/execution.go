package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/persistence"
)

// ExecutionRepository stores one JSON file per execution.
type ExecutionRepository struct {
	root string
	mu   *sync.RWMutex
}

func executionsDir(root string) string {
	return filepath.Join(root, "executions")
}

func (er *ExecutionRepository) SaveExecution(_ context.Context, execution *models.Execution) error {
	if err := validateID(execution.ID); err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	if err := writeJSON(executionsDir(er.root), execution.ID+".json", execution); err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	return nil
}

func (er *ExecutionRepository) GetExecution(_ context.Context, id string) (*models.Execution, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewExecutionError("GetExecution", id, persistence.ErrExecutionNotFound)
	}

	er.mu.RLock()
	defer er.mu.RUnlock()

	var execution models.Execution

	found, err := readJSON(filepath.Join(executionsDir(er.root), id+".json"), &execution)
	if err != nil {
		return nil, persistence.NewExecutionError("GetExecution", id, err)
	}

	if !found {
		return nil, persistence.NewExecutionError("GetExecution", id, persistence.ErrExecutionNotFound)
	}

	return &execution, nil
}

func (er *ExecutionRepository) ListExecutions(_ context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	if limit <= 0 || limit > persistence.MaxListLimit {
		limit = persistence.DefaultListLimit
	}

	er.mu.RLock()
	defer er.mu.RUnlock()

	all, err := loadExecutions(er.root)
	if err != nil {
		return nil, err
	}

	executions := make([]*models.Execution, 0)

	for _, execution := range all {
		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	sort.SliceStable(executions, func(i, j int) bool {
		return executions[i].CreatedAt.After(executions[j].CreatedAt)
	})

	if len(executions) > limit {
		executions = executions[:limit]
	}

	return executions, nil
}

func loadExecutions(root string) ([]*models.Execution, error) {
	files, err := fs.Glob(os.DirFS(executionsDir(root)), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.Execution, 0, len(files))

	for _, file := range files {
		var execution models.Execution

		found, err := readJSON(filepath.Join(executionsDir(root), file), &execution)
		if err != nil {
			return nil, fmt.Errorf("failed to read execution %s: %w", strings.TrimSuffix(file, ".json"), err)
		}

		if found {
			executions = append(executions, &execution)
		}
	}

	return executions, nil
}

// removeExecutions deletes every execution of workflowID. Callers hold the lock.
func removeExecutions(root, workflowID string) error {
	executions, err := loadExecutions(root)
	if err != nil {
		return err
	}

	for _, execution := range executions {
		if execution.WorkflowID != workflowID {
			continue
		}

		err := os.Remove(filepath.Join(executionsDir(root), execution.ID+".json"))
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}
