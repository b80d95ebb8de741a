package services

import (
	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/registry"
	"github.com/dukex/nodebase/pkg/status"
)

// NodeType describes one entry of the node catalogue.
type NodeType struct {
	Type        models.NodeType     `json:"type"`
	Category    models.CategoryType `json:"category"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Kind        status.Kind         `json:"kind"`
	Schema      map[string]any      `json:"schema"`
}

// Node exposes the node types the editor can place.
type Node struct {
	registry *registry.Registry
}

func NewNode(registry *registry.Registry) *Node {
	return &Node{registry: registry}
}

// Types lists the registered node types in registration order.
func (n *Node) Types() []NodeType {
	factories := n.registry.Factories()
	types := make([]NodeType, 0, len(factories))

	for _, factory := range factories {
		types = append(types, NodeType{
			Type:        factory.Type(),
			Category:    factory.Category(),
			Name:        factory.Name(),
			Description: factory.Description(),
			Kind:        factory.Executor().Kind(),
			Schema:      factory.Schema(),
		})
	}

	return types
}
