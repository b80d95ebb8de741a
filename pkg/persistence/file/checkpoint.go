package file

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dukex/nodebase/pkg/models"
)

// CheckpointRepository stores checkpoints under checkpoints/<run>/<step>.json.
// Step names are path-escaped since scoped names contain slashes.
type CheckpointRepository struct {
	root string
	mu   *sync.RWMutex
}

func (cr *CheckpointRepository) dir(runID string) string {
	return filepath.Join(cr.root, "checkpoints", runID)
}

func (cr *CheckpointRepository) LoadCheckpoint(_ context.Context, runID, stepName string) (*models.Checkpoint, error) {
	if err := validateID(runID); err != nil {
		return nil, err
	}

	cr.mu.RLock()
	defer cr.mu.RUnlock()

	var checkpoint models.Checkpoint

	found, err := readJSON(filepath.Join(cr.dir(runID), url.PathEscape(stepName)+".json"), &checkpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	if !found {
		return nil, nil
	}

	return &checkpoint, nil
}

func (cr *CheckpointRepository) SaveCheckpoint(_ context.Context, checkpoint *models.Checkpoint) error {
	if err := validateID(checkpoint.RunID); err != nil {
		return err
	}

	cr.mu.Lock()
	defer cr.mu.Unlock()

	if err := writeJSON(cr.dir(checkpoint.RunID), url.PathEscape(checkpoint.StepName)+".json", checkpoint); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	return nil
}

// PurgeCheckpoints removes checkpoints completed before the cutoff and any
// run directory left empty.
func (cr *CheckpointRepository) PurgeCheckpoints(_ context.Context, before time.Time) (int64, error) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	runs, err := os.ReadDir(filepath.Join(cr.root, "checkpoints"))
	if os.IsNotExist(err) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("failed to list checkpoint runs: %w", err)
	}

	var purged int64

	for _, run := range runs {
		if !run.IsDir() {
			continue
		}

		runDir := cr.dir(run.Name())

		entries, err := os.ReadDir(runDir)
		if err != nil {
			return purged, fmt.Errorf("failed to list checkpoints of run %s: %w", run.Name(), err)
		}

		remaining := len(entries)

		for _, entry := range entries {
			path := filepath.Join(runDir, entry.Name())

			var checkpoint models.Checkpoint

			found, err := readJSON(path, &checkpoint)
			if err != nil || !found || !checkpoint.CompletedAt.Before(before) {
				continue
			}

			if err := os.Remove(path); err != nil {
				return purged, fmt.Errorf("failed to remove checkpoint %s: %w", path, err)
			}

			purged++
			remaining--
		}

		if remaining == 0 {
			_ = os.Remove(runDir)
		}
	}

	return purged, nil
}
