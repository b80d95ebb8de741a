// Package protocol defines the interfaces and contracts for pluggable nodes.
package protocol

import (
	"context"

	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/status"
	"github.com/dukex/nodebase/pkg/steps"
)

// Request is everything an executor sees for one node invocation.
type Request struct {
	// Data is the node's type-specific configuration.
	Data map[string]any
	// NodeID identifies the node in status events.
	NodeID string
	// Context is the accumulated upstream result.
	Context models.Context
	// Step runs the node's side effect durably.
	Step steps.Runner
	// Emitter receives the node's status messages.
	Emitter status.Emitter

	WorkflowID string
	UserID     string
}

// Executor implements the effect of one node kind.
type Executor interface {
	// Kind returns the status channel kind the executor publishes on.
	Kind() status.Kind

	Execute(ctx context.Context, req Request) (models.Context, error)
}

// NodeFactory describes a node type and provides its executor.
type NodeFactory interface {
	// Type returns the node type tag this factory serves.
	Type() models.NodeType

	// Category reports whether the node is a trigger or an action.
	Category() models.CategoryType

	// Name returns the human-readable name for this node type
	Name() string

	// Description returns a description of what this node does
	Description() string

	// Schema returns the JSON schema for configuring this node
	Schema() map[string]any

	Executor() Executor
}
