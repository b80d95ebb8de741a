package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dukex/nodebase/pkg/eventbus"
	"github.com/dukex/nodebase/pkg/log"
	"github.com/dukex/nodebase/pkg/persistence/file"
	"github.com/dukex/nodebase/pkg/registry"
)

type published struct {
	key   string
	event eventbus.Event
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, key string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.events = append(p.events, published{key: key, event: event})

	return nil
}

var errPublish = errors.New("broker down")

type fixture struct {
	persistence *file.Persistence
	registry    *registry.Registry
	publisher   *fakePublisher
	workflows   *Workflow
	executions  *Execution
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := log.Discard()
	p := file.NewPersistence(t.TempDir())
	r := registry.NewRegistry(logger)
	r.RegisterDefaultNodes(nil)

	publisher := &fakePublisher{}

	return &fixture{
		persistence: p,
		registry:    r,
		publisher:   publisher,
		workflows:   NewWorkflow(p, r, logger),
		executions:  NewExecution(p, publisher, nil, logger),
	}
}
