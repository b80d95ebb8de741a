// Package services holds the authorization-gated operations behind the API.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/nodebase/pkg/persistence"
)

var (
	// ErrWorkflowNotFound covers both a missing workflow and one owned by someone else.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

	// ErrExecutionNotFound covers both a missing execution and one owned by someone else.
	ErrExecutionNotFound = persistence.ErrExecutionNotFound

	// ErrUnauthorized is the single failure of token issuance.
	ErrUnauthorized = errors.New("unauthorized")
)

// Validation errors (400 Bad Request).
var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidSortField   = errors.New("invalid sort field")
	ErrInvalidSortOrder   = errors.New("invalid sort order")
	ErrInvalidStatus      = errors.New("invalid workflow status")
	ErrUnknownNodeType    = errors.New("unknown node type")
	ErrInvalidNodeData    = errors.New("invalid node data")
	ErrDuplicateNodeID    = errors.New("duplicate node id")
	ErrInvalidGraph       = errors.New("invalid workflow graph")
	ErrInvalidKind        = errors.New("invalid status channel kind")
	ErrInvalidFormPayload = errors.New("invalid google form payload")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrUnknownNodeType) ||
		errors.Is(err, ErrInvalidNodeData) ||
		errors.Is(err, ErrDuplicateNodeID) ||
		errors.Is(err, ErrInvalidGraph) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrInvalidFormPayload)
}

// IsNotFound reports errors that must be rendered as "not found", including
// authorization failures, so existence never leaks.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrExecutionNotFound) ||
		errors.Is(err, ErrUnauthorized)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
