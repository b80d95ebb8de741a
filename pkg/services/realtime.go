package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/nodebase/pkg/persistence"
	"github.com/dukex/nodebase/pkg/realtime"
	"github.com/dukex/nodebase/pkg/status"
)

// Realtime issues status channel subscription tokens.
type Realtime struct {
	workflows persistence.WorkflowRepository
	tokens    *realtime.Tokens
	logger    *slog.Logger
}

func NewRealtime(workflows persistence.WorkflowRepository, tokens *realtime.Tokens, logger *slog.Logger) *Realtime {
	return &Realtime{
		workflows: workflows,
		tokens:    tokens,
		logger:    logger.With("module", "realtime_service"),
	}
}

// IssueToken returns a token scoped to the kind's channel of workflowID for
// userID. It never mutates state. Any lookup failure, a missing workflow and
// a workflow owned by someone else all yield ErrUnauthorized.
func (r *Realtime) IssueToken(ctx context.Context, userID, workflowID string, kind status.Kind) (*realtime.Token, error) {
	if !kind.Valid() {
		return nil, NewValidationError("IssueToken", "INVALID_KIND", fmt.Sprintf("unknown channel kind %q", kind), ErrInvalidKind)
	}

	if userID == "" {
		return nil, &ServiceError{Op: "IssueToken", Code: "UNAUTHORIZED", Err: ErrUnauthorized}
	}

	found, err := r.workflows.GetByIDAndUser(ctx, workflowID, userID)
	if err != nil || found == nil || !found.IsOwnedBy(userID) {
		r.logger.DebugContext(ctx, "Denied realtime token", "workflow_id", workflowID, "user_id", userID, "error", err)

		return nil, &ServiceError{Op: "IssueToken", Code: "UNAUTHORIZED", Err: ErrUnauthorized}
	}

	token, err := r.tokens.Issue(status.NewChannel(kind, found.ID, userID), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue realtime token: %w", err)
	}

	return token, nil
}
