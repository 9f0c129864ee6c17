package models

import "time"

// Priority represents the urgency of a task or subtask.
type Priority string

const (
	// PriorityCritical indicates work that blocks everything else.
	PriorityCritical Priority = "critical"
	// PriorityHigh indicates important work.
	PriorityHigh Priority = "high"
	// PriorityMedium indicates normal work.
	PriorityMedium Priority = "medium"
	// PriorityLow indicates work that can wait.
	PriorityLow Priority = "low"
)

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Rank returns a sortable rank where critical is lowest (schedules first).
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// Task represents a unit of work submitted to an agent.
// A task is immutable once submitted and is consumed by exactly one execution.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Description provides detailed information about the task.
	Description string `json:"description"`
	// Priority is the urgency of the task.
	Priority Priority `json:"priority"`
	// Input carries task-specific parameters.
	Input map[string]any `json:"input,omitempty"`
	// Dependencies lists task IDs that must complete before this task.
	Dependencies []string `json:"dependencies,omitempty"`
	// Timeout overrides the agent's default execution timeout when positive.
	Timeout time.Duration `json:"timeout,omitempty"`
	// Deadline is when the task must be done, if any.
	Deadline *time.Time `json:"deadline,omitempty"`
}
