package web

import (
	"github.com/dukex/nodebase/pkg/models"
)

// CreateWorkflowRequest represents the request body for creating a workflow.
// An empty name gets a generated one.
type CreateWorkflowRequest struct {
	Name string `json:"name" validate:"omitempty,max=255"`
}

// UpdateWorkflowNameRequest represents the request body for renaming a workflow.
type UpdateWorkflowNameRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// NodeRequest is one node of a saved editor graph.
type NodeRequest struct {
	ID       string          `json:"id"       validate:"required"`
	Type     models.NodeType `json:"type"     validate:"required"`
	Name     string          `json:"name"`
	Data     map[string]any  `json:"data"`
	Position models.Position `json:"position"`
}

// ConnectionRequest is one edge of a saved editor graph.
type ConnectionRequest struct {
	ID         string `json:"id"`
	FromNodeID string `json:"from_node_id" validate:"required"`
	ToNodeID   string `json:"to_node_id"   validate:"required"`
	FromOutput string `json:"from_output"`
	ToInput    string `json:"to_input"`
}

// UpdateWorkflowRequest replaces the whole graph of a workflow.
type UpdateWorkflowRequest struct {
	Nodes       []NodeRequest       `json:"nodes"       validate:"dive"`
	Connections []ConnectionRequest `json:"connections" validate:"dive"`
}

// ExecuteWorkflowRequest optionally seeds the initial context of a run.
type ExecuteWorkflowRequest struct {
	Input map[string]any `json:"input"`
}

// RealtimeTokenRequest selects the status channel kind to subscribe to.
type RealtimeTokenRequest struct {
	Kind string `json:"kind" validate:"required,oneof=manual-trigger google-form-trigger http-request"`
}

func (r UpdateWorkflowRequest) graph() ([]*models.WorkflowNode, []*models.Connection) {
	nodes := make([]*models.WorkflowNode, 0, len(r.Nodes))
	for _, node := range r.Nodes {
		nodes = append(nodes, &models.WorkflowNode{
			ID:       node.ID,
			Type:     node.Type,
			Name:     node.Name,
			Data:     node.Data,
			Position: node.Position,
		})
	}

	connections := make([]*models.Connection, 0, len(r.Connections))
	for _, connection := range r.Connections {
		connections = append(connections, &models.Connection{
			ID:         connection.ID,
			FromNodeID: connection.FromNodeID,
			ToNodeID:   connection.ToNodeID,
			FromOutput: connection.FromOutput,
			ToInput:    connection.ToInput,
		})
	}

	return nodes, connections
}
