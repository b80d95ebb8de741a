package models

import "time"

// Checkpoint records the completed output of one named step within a run.
// Stores other than memory keep Output as JSON, so a replayed Output holds
// JSON types: numbers come back as float64, nested objects as map[string]any.
type Checkpoint struct {
	RunID       string    `json:"run_id"`
	StepName    string    `json:"step_name"`
	Output      Context   `json:"output"`
	CompletedAt time.Time `json:"completed_at"`
}
