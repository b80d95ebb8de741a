// Package events defines the messages exchanged between the API and the workers.
package events

import (
	"time"

	"github.com/dukex/nodebase/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every execution event.
const Topic = "nodebase.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionRequestedEvent EventType = "execution.requested"
	ExecutionFinishedEvent  EventType = "execution.finished"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	WorkerID   string         `json:"worker_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ExecutionRequested asks a worker to run a pending execution.
type ExecutionRequested struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	UserID      string `json:"user_id"`
	TriggerType string `json:"trigger_type"`
}

func (e ExecutionRequested) GetType() EventType {
	return ExecutionRequestedEvent
}

// ExecutionFinished is published by the worker once a run reaches a final status.
type ExecutionFinished struct {
	BaseEvent

	ExecutionID string                 `json:"execution_id"`
	UserID      string                 `json:"user_id"`
	Status      models.ExecutionStatus `json:"status"`
	FailedNode  string                 `json:"failed_node,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Duration    time.Duration          `json:"duration"`
}

func (e ExecutionFinished) GetType() EventType {
	return ExecutionFinishedEvent
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

func NewExecutionRequested(execution *models.Execution) *ExecutionRequested {
	return &ExecutionRequested{
		BaseEvent:   NewBaseEvent(ExecutionRequestedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		UserID:      execution.UserID,
		TriggerType: execution.TriggerType,
	}
}

func NewExecutionFinished(execution *models.Execution, duration time.Duration) *ExecutionFinished {
	return &ExecutionFinished{
		BaseEvent:   NewBaseEvent(ExecutionFinishedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		UserID:      execution.UserID,
		Status:      execution.Status,
		FailedNode:  execution.FailedNode,
		Error:       execution.Error,
		Duration:    duration,
	}
}
