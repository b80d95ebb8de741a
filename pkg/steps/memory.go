package steps

import (
	"context"
	"sync"
	"time"

	"github.com/dukex/nodebase/pkg/models"
)

// MemoryStore keeps checkpoints in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]*models.Checkpoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{checkpoints: make(map[string]*models.Checkpoint)}
}

func memoryKey(runID, stepName string) string {
	return runID + "\x00" + stepName
}

func (s *MemoryStore) LoadCheckpoint(_ context.Context, runID, stepName string) (*models.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	checkpoint, ok := s.checkpoints[memoryKey(runID, stepName)]
	if !ok {
		return nil, nil
	}

	clone := *checkpoint
	clone.Output = checkpoint.Output.Clone()

	return &clone, nil
}

func (s *MemoryStore) SaveCheckpoint(_ context.Context, checkpoint *models.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *checkpoint
	clone.Output = checkpoint.Output.Clone()
	s.checkpoints[memoryKey(checkpoint.RunID, checkpoint.StepName)] = &clone

	return nil
}

func (s *MemoryStore) PurgeCheckpoints(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64

	for key, checkpoint := range s.checkpoints {
		if checkpoint.CompletedAt.Before(before) {
			delete(s.checkpoints, key)
			purged++
		}
	}

	return purged, nil
}
