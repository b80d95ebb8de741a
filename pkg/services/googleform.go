package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/nodebase/pkg/models"
	"github.com/dukex/nodebase/pkg/nodes/googleformtrigger"
	"github.com/dukex/nodebase/pkg/persistence"
	"github.com/xeipuuv/gojsonschema"
)

// googleFormSchema describes the submission posted by the form's Apps Script hook.
var googleFormSchema = gojsonschema.NewGoLoader(map[string]any{
	"type": "object",
	"properties": map[string]any{
		"formId":          map[string]any{"type": "string"},
		"formTitle":       map[string]any{"type": "string"},
		"responseId":      map[string]any{"type": "string"},
		"timestamp":       map[string]any{"type": "string"},
		"respondentEmail": map[string]any{"type": "string"},
		"responses":       map[string]any{"type": "object"},
	},
	"required": []string{"responses"},
})

// GoogleForm turns form submissions into workflow runs.
type GoogleForm struct {
	workflows  persistence.WorkflowRepository
	executions *Execution
	logger     *slog.Logger
}

func NewGoogleForm(workflows persistence.WorkflowRepository, executions *Execution, logger *slog.Logger) *GoogleForm {
	return &GoogleForm{
		workflows:  workflows,
		executions: executions,
		logger:     logger.With("module", "google_form_service"),
	}
}

// Submit starts a run of workflowID with the submission under the googleForm
// context key. The workflow must contain a Google Form trigger node.
func (g *GoogleForm) Submit(ctx context.Context, workflowID string, payload map[string]any) (*models.Execution, error) {
	result, err := gojsonschema.Validate(googleFormSchema, gojsonschema.NewGoLoader(payload))
	if err != nil {
		return nil, NewValidationError("Submit", "INVALID_FORM_PAYLOAD", err.Error(), ErrInvalidFormPayload)
	}

	if !result.Valid() {
		return nil, NewValidationError("Submit", "INVALID_FORM_PAYLOAD", schemaErrors(result).Error(), ErrInvalidFormPayload)
	}

	target, err := g.workflows.GetByID(ctx, workflowID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return nil, ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if !hasNodeType(target, models.NodeTypeGoogleFormTrigger) {
		g.logger.WarnContext(ctx, "Form submission for workflow without form trigger", "workflow_id", workflowID)

		return nil, ErrWorkflowNotFound
	}

	return g.executions.start(ctx, target, models.TriggerTypeGoogleForm, models.Context{
		googleformtrigger.ContextKey: payload,
	})
}

func hasNodeType(target *models.Workflow, nodeType models.NodeType) bool {
	for _, node := range target.Nodes {
		if node.Type == nodeType {
			return true
		}
	}

	return false
}
