package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/persistence"
	"github.com/dukex/nodebase/pkg/registry"
	"github.com/dukex/nodebase/pkg/workflow"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

// InitialNodeID names the placeholder node every new workflow starts with.
const InitialNodeID = "initial"

type Workflow struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, registry *registry.Registry, logger *slog.Logger) *Workflow {
	return &Workflow{
		persistence: persistence,
		registry:    registry,
		logger:      logger.With("module", "workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListWorkflowsRequest contains options for listing the caller's workflows.
type ListWorkflowsRequest struct {
	Limit     int
	Offset    int
	Search    string
	Status    *models.WorkflowStatus
	SortBy    string
	SortOrder string
}

// ListWorkflowsResponse contains the result of listing workflows.
type ListWorkflowsResponse struct {
	Workflows   []*models.Workflow `json:"workflows"`
	TotalCount  int64              `json:"total_count"`
	HasNextPage bool               `json:"has_next_page"`
}

// Create saves a new workflow owned by userID holding a single INITIAL node.
// An empty name is replaced with a random one.
func (w *Workflow) Create(ctx context.Context, userID, name string) (*models.Workflow, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = randomName()
	}

	created := &models.Workflow{
		Name:   name,
		UserID: userID,
		Status: models.WorkflowStatusActive,
		Nodes: []*models.WorkflowNode{
			{
				ID:   InitialNodeID,
				Name: string(models.NodeTypeInitial),
				Type: models.NodeTypeInitial,
				Data: map[string]any{},
			},
		},
		Connections: []*models.Connection{},
	}

	err := w.persistence.WorkflowRepository().Save(ctx, created)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow created", "workflow_id", created.ID, "user_id", userID)

	return created, nil
}

// List returns one page of the caller's workflows.
func (w *Workflow) List(ctx context.Context, userID string, req ListWorkflowsRequest) (*ListWorkflowsResponse, error) {
	if req.Status != nil && *req.Status != models.WorkflowStatusActive && *req.Status != models.WorkflowStatusArchived {
		return nil, NewValidationError("List", "INVALID_STATUS", fmt.Sprintf("invalid status '%s'", *req.Status), ErrInvalidStatus)
	}

	if req.SortOrder != "" && req.SortOrder != "asc" && req.SortOrder != "desc" {
		return nil, NewValidationError("List", "INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder), ErrInvalidSortOrder)
	}

	result, err := w.persistence.WorkflowRepository().ListWorkflows(ctx, persistence.ListWorkflowsOptions{
		OwnerID:   userID,
		Search:    strings.TrimSpace(req.Search),
		Status:    req.Status,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Limit:     req.Limit,
		Offset:    req.Offset,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrInvalidSortField) {
			return nil, NewValidationError("List", "INVALID_SORT_FIELD",
				fmt.Sprintf("invalid sort field '%s', allowed: created_at, updated_at, name", req.SortBy), ErrInvalidSortField)
		}

		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return &ListWorkflowsResponse{
		Workflows:   result.Workflows,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

// Get returns the workflow when userID owns it.
func (w *Workflow) Get(ctx context.Context, userID, workflowID string) (*models.Workflow, error) {
	found, err := w.persistence.WorkflowRepository().GetByIDAndUser(ctx, workflowID, userID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return nil, ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	return found, nil
}

// UpdateName renames a workflow owned by userID.
func (w *Workflow) UpdateName(ctx context.Context, userID, workflowID, name string) (*models.Workflow, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("UpdateName", "NAME_REQUIRED", "workflow name is required", ErrInvalidRequest)
	}

	existing, err := w.Get(ctx, userID, workflowID)
	if err != nil {
		return nil, err
	}

	existing.Name = name

	if err := w.persistence.WorkflowRepository().Save(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update workflow name: %w", err)
	}

	return existing, nil
}

// Update replaces the graph of a workflow owned by userID. Every node must be
// of a registered type with data matching that type's schema, and the graph
// must be acyclic.
func (w *Workflow) Update(ctx context.Context, userID, workflowID string, nodes []*models.WorkflowNode, connections []*models.Connection) (*models.Workflow, error) {
	existing, err := w.Get(ctx, userID, workflowID)
	if err != nil {
		return nil, err
	}

	if nodes == nil {
		nodes = []*models.WorkflowNode{}
	}

	if connections == nil {
		connections = []*models.Connection{}
	}

	candidate := &models.Workflow{Nodes: nodes, Connections: connections}

	err = w.validateGraph(candidate)
	if err != nil {
		return nil, err
	}

	existing.Nodes = nodes
	existing.Connections = connections

	if err := w.persistence.WorkflowRepository().Save(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow graph saved",
		"workflow_id", workflowID,
		"nodes", len(nodes),
		"connections", len(connections))

	return existing, nil
}

func (w *Workflow) validateGraph(candidate *models.Workflow) error {
	seen := make(map[string]struct{}, len(candidate.Nodes))

	for _, node := range candidate.Nodes {
		if node == nil || node.ID == "" {
			return NewValidationError("Update", "INVALID_NODE", "every node needs an id", ErrInvalidRequest)
		}

		if _, dup := seen[node.ID]; dup {
			return NewValidationError("Update", "DUPLICATE_NODE_ID", "duplicate node id "+node.ID, ErrDuplicateNodeID)
		}

		seen[node.ID] = struct{}{}

		if node.Data == nil {
			node.Data = map[string]any{}
		}

		if node.Name == "" {
			node.Name = string(node.Type)
		}

		factory, err := w.registry.Factory(node.Type)
		if err != nil {
			return NewValidationError("Update", "UNKNOWN_NODE_TYPE", fmt.Sprintf("node %s has unknown type %q", node.ID, node.Type), ErrUnknownNodeType)
		}

		if err := validateNodeData(factory.Schema(), node.Data); err != nil {
			return NewValidationError("Update", "INVALID_NODE_DATA", fmt.Sprintf("node %s: %v", node.ID, err), ErrInvalidNodeData)
		}
	}

	for _, connection := range candidate.Connections {
		if connection == nil || connection.FromNodeID == connection.ToNodeID {
			return NewValidationError("Update", "INVALID_CONNECTION", "connections must join two distinct nodes", ErrInvalidGraph)
		}

		if connection.ID == "" {
			connection.ID = uuid.NewString()
		}
	}

	if _, err := workflow.ExecutionOrder(candidate); err != nil {
		return NewValidationError("Update", "INVALID_GRAPH", err.Error(), ErrInvalidGraph)
	}

	return nil
}

// validateNodeData checks the configured properties against the node schema.
// Required properties are not enforced: saved graphs may hold nodes the user
// has not finished configuring, and executors reject incomplete
// configuration at run time.
func validateNodeData(schema map[string]any, data map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	draft := maps.Clone(schema)
	delete(draft, "required")

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(draft), gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("failed to validate node data: %w", err)
	}

	if !result.Valid() {
		return schemaErrors(result)
	}

	return nil
}

func schemaErrors(result *gojsonschema.Result) error {
	messages := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		messages = append(messages, desc.String())
	}

	return errors.New(strings.Join(messages, "; "))
}

// Delete removes a workflow owned by userID.
func (w *Workflow) Delete(ctx context.Context, userID, workflowID string) error {
	if _, err := w.Get(ctx, userID, workflowID); err != nil {
		return err
	}

	err := w.persistence.WorkflowRepository().Delete(ctx, workflowID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return ErrWorkflowNotFound
		}

		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow deleted", "workflow_id", workflowID, "user_id", userID)

	return nil
}
