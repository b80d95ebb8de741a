package models

import "time"

// ExecutionStatus is the state of one workflow run.
type ExecutionStatus string

const (
	ExecutionStatusPending ExecutionStatus = "pending"
	ExecutionStatusRunning ExecutionStatus = "running"
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailed  ExecutionStatus = "failed"
)

// Trigger types recorded on executions.
const (
	TriggerTypeManual     = "manual"
	TriggerTypeGoogleForm = "google-form"
)

// Execution is the persisted record of one workflow run.
type Execution struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflow_id"`
	UserID      string          `json:"user_id"`
	Status      ExecutionStatus `json:"status"`
	TriggerType string          `json:"trigger_type"`
	Input       Context         `json:"input,omitempty"`
	Output      Context         `json:"output,omitempty"`
	Error       string          `json:"error,omitempty"`
	FailedNode  string          `json:"failed_node,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// IsFinished reports whether the run reached a terminal state.
func (e *Execution) IsFinished() bool {
	return e.Status == ExecutionStatusSuccess || e.Status == ExecutionStatusFailed
}
