package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/nodebase/pkg/models"
)

// CheckpointRepository stores completed step outputs keyed by run and step name.
type CheckpointRepository struct {
	db *sql.DB
}

func NewCheckpointRepository(db *sql.DB) *CheckpointRepository {
	return &CheckpointRepository{db: db}
}

func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, runID, stepName string) (*models.Checkpoint, error) {
	var (
		checkpoint = models.Checkpoint{RunID: runID, StepName: stepName}
		output     []byte
	)

	err := r.db.QueryRowContext(ctx,
		"SELECT output, completed_at FROM step_checkpoints WHERE run_id = $1 AND step_name = $2",
		runID, stepName,
	).Scan(&output, &checkpoint.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	checkpoint.Output, err = unmarshalContext(output)
	if err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}

	return &checkpoint, nil
}

// SaveCheckpoint keeps the first completion of a step; later saves are ignored.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, checkpoint *models.Checkpoint) error {
	output, err := marshalContext(checkpoint.Output)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO step_checkpoints (run_id, step_name, output, completed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id, step_name) DO NOTHING
	`, checkpoint.RunID, checkpoint.StepName, output, checkpoint.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	return nil
}

func (r *CheckpointRepository) PurgeCheckpoints(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM step_checkpoints WHERE completed_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge checkpoints: %w", err)
	}

	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return purged, nil
}
