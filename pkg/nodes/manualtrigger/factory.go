package manualtrigger

import (
	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/protocol"
)

// NodeFactory registers the manual trigger under a node type. The editor's
// INITIAL placeholder node is served by the same executor.
type NodeFactory struct {
	nodeType models.NodeType
	executor *Executor
}

func NewNodeFactory() protocol.NodeFactory {
	return &NodeFactory{nodeType: models.NodeTypeManualTrigger, executor: NewExecutor()}
}

// NewInitialNodeFactory serves the INITIAL placeholder node.
func NewInitialNodeFactory() protocol.NodeFactory {
	return &NodeFactory{nodeType: models.NodeTypeInitial, executor: NewExecutor()}
}

func (f *NodeFactory) Type() models.NodeType {
	return f.nodeType
}

func (f *NodeFactory) Category() models.CategoryType {
	return models.CategoryTypeTrigger
}

func (f *NodeFactory) Name() string {
	if f.nodeType == models.NodeTypeInitial {
		return "Initial"
	}

	return "Manual Trigger"
}

func (f *NodeFactory) Description() string {
	return "Runs the workflow when the execute button is clicked"
}

func (f *NodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (f *NodeFactory) Executor() protocol.Executor {
	return f.executor
}
