package googleformtrigger

import (
	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/protocol"
)

type NodeFactory struct {
	executor *Executor
}

func NewNodeFactory() protocol.NodeFactory {
	return &NodeFactory{executor: NewExecutor()}
}

func (f *NodeFactory) Type() models.NodeType {
	return models.NodeTypeGoogleFormTrigger
}

func (f *NodeFactory) Category() models.CategoryType {
	return models.CategoryTypeTrigger
}

func (f *NodeFactory) Name() string {
	return "Google Form"
}

func (f *NodeFactory) Description() string {
	return "Runs the workflow when a Google Form is submitted"
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
