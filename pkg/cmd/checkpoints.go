package cmd

import (
	"fmt"
	"time"

	"github.com/dukex/nodebase/pkg/persistence"
	"github.com/dukex/nodebase/pkg/steps"
)

// NewCheckpointStore selects where step checkpoints live. The redis store
// expires keys after retention; the others rely on the janitor.
func NewCheckpointStore(provider string, p persistence.Persistence, redisURL string, retention time.Duration) (steps.Store, error) {
	switch provider {
	case "", "persistence":
		return p.CheckpointRepository(), nil
	case "memory":
		return steps.NewMemoryStore(), nil
	case "redis":
		client, err := NewRedisClient(redisURL)
		if err != nil {
			return nil, err
		}

		return steps.NewRedisStore(client, retention), nil
	default:
		return nil, fmt.Errorf("unsupported checkpoint store: %q", provider)
	}
}
