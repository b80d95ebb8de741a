// Package registry maps node type tags to their factories and executors.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/protocol"
)

var (
	ErrExecutorNotFound  = errors.New("no executor registered for node type")
	ErrAlreadyRegistered = errors.New("node type already registered")
)

type Registry struct {
	logger *slog.Logger

	mu        sync.RWMutex
	factories map[models.NodeType]protocol.NodeFactory
	order     []models.NodeType
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:    log.With("module", "registry"),
		factories: make(map[models.NodeType]protocol.NodeFactory),
	}
}

// Register adds factory under its node type. A type can be registered once.
func (r *Registry) Register(factory protocol.NodeFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	nodeType := factory.Type()
	if _, exists := r.factories[nodeType]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, nodeType)
	}

	r.factories[nodeType] = factory
	r.order = append(r.order, nodeType)

	r.logger.Debug("Registered node type", "type", nodeType, "kind", factory.Executor().Kind())

	return nil
}

// MustRegister is Register for process-start wiring; it panics on error.
func (r *Registry) MustRegister(factory protocol.NodeFactory) {
	if err := r.Register(factory); err != nil {
		panic(err)
	}
}

// Factory returns the factory registered for nodeType.
func (r *Registry) Factory(nodeType models.NodeType) (protocol.NodeFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[nodeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExecutorNotFound, nodeType)
	}

	return factory, nil
}

// Executor returns the executor registered for nodeType.
func (r *Registry) Executor(nodeType models.NodeType) (protocol.Executor, error) {
	factory, err := r.Factory(nodeType)
	if err != nil {
		return nil, err
	}

	return factory.Executor(), nil
}

func (r *Registry) IsRegistered(nodeType models.NodeType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[nodeType]

	return ok
}

// Factories returns the registered factories in registration order.
func (r *Registry) Factories() []protocol.NodeFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factories := make([]protocol.NodeFactory, 0, len(r.order))
	for _, nodeType := range r.order {
		factories = append(factories, r.factories[nodeType])
	}

	return factories
}
