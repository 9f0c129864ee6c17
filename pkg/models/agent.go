package models

import "time"

// AgentStatus represents the current state of an agent.
type AgentStatus string

const (
	// AgentStatusIdle indicates the agent is ready for work.
	AgentStatusIdle AgentStatus = "idle"
	// AgentStatusRunning indicates the agent is executing a task.
	AgentStatusRunning AgentStatus = "running"
	// AgentStatusPaused indicates the agent is temporarily stopped.
	AgentStatusPaused AgentStatus = "paused"
	// AgentStatusCompleted indicates the last task finished successfully.
	AgentStatusCompleted AgentStatus = "completed"
	// AgentStatusFailed indicates the last task failed.
	AgentStatusFailed AgentStatus = "failed"
	// AgentStatusTerminated indicates the agent has shut down permanently.
	AgentStatusTerminated AgentStatus = "terminated"
)

// Valid returns true if the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusIdle, AgentStatusRunning, AgentStatusPaused,
		AgentStatusCompleted, AgentStatusFailed, AgentStatusTerminated:
		return true
	default:
		return false
	}
}

// validTransitions defines the allowed status transitions.
// Key is the current status, value is the set of valid target statuses.
// Terminated is terminal: nothing transitions out of it.
var validTransitions = map[AgentStatus]map[AgentStatus]bool{
	AgentStatusIdle: {
		AgentStatusRunning:    true,
		AgentStatusPaused:     true,
		AgentStatusTerminated: true,
	},
	AgentStatusRunning: {
		AgentStatusCompleted:  true,
		AgentStatusFailed:     true,
		AgentStatusPaused:     true,
		AgentStatusTerminated: true,
	},
	AgentStatusPaused: {
		AgentStatusIdle:       true,
		AgentStatusRunning:    true,
		AgentStatusTerminated: true,
	},
	AgentStatusCompleted: {
		AgentStatusIdle:       true,
		AgentStatusTerminated: true,
	},
	AgentStatusFailed: {
		AgentStatusIdle:       true,
		AgentStatusTerminated: true,
	},
	AgentStatusTerminated: {},
}

// CanTransition checks if a status transition is valid.
func CanTransition(from, to AgentStatus) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// AgentState is a snapshot of an agent's mutable state.
// It is mutated only by the owning agent; callers receive copies.
type AgentState struct {
	// ID is the unique identifier for this agent.
	ID string `json:"id"`
	// Type is the registered agent type that produced this instance.
	Type string `json:"type"`
	// Status is the current lifecycle state.
	Status AgentStatus `json:"status"`
	// TaskQueue holds IDs of tasks waiting for this agent.
	TaskQueue []string `json:"task_queue,omitempty"`
	// CompletedTaskIDs lists tasks this agent has finished successfully.
	CompletedTaskIDs []string `json:"completed_task_ids,omitempty"`
	// LastActivity is the time of the agent's most recent activity.
	LastActivity time.Time `json:"last_activity"`
	// ErrorCount is the number of failed executions so far.
	ErrorCount int `json:"error_count"`
	// CurrentTask is the task being executed, if any.
	CurrentTask *Task `json:"current_task,omitempty"`
}

// AgentError describes a normalized execution failure.
type AgentError struct {
	// Code is a stable machine-readable error code.
	Code string `json:"code"`
	// Message is the human-readable error description.
	Message string `json:"message"`
	// Retryable indicates whether a retry policy may re-attempt the task.
	Retryable bool `json:"retryable"`
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	return e.Code + ": " + e.Message
}

// ResultMetrics captures timing and retry information for one execution.
type ResultMetrics struct {
	// StartTime is when execution began.
	StartTime time.Time `json:"start_time"`
	// EndTime is when execution finished.
	EndTime time.Time `json:"end_time"`
	// Duration is EndTime minus StartTime.
	Duration time.Duration `json:"duration"`
	// Retries is the number of re-attempts performed (0 for first-try success).
	Retries int `json:"retries"`
}

// AgentResult is the outcome of a single task execution.
// It is produced once per task and never mutated after return.
type AgentResult struct {
	// TaskID is the task this result belongs to.
	TaskID string `json:"task_id"`
	// Success indicates whether the task completed successfully.
	Success bool `json:"success"`
	// Data holds the execution output on success.
	Data any `json:"data,omitempty"`
	// Error describes the failure when Success is false.
	Error *AgentError `json:"error,omitempty"`
	// Artifacts lists paths or identifiers of produced artifacts.
	Artifacts []string `json:"artifacts,omitempty"`
	// Metrics captures timing and retry counts.
	Metrics ResultMetrics `json:"metrics"`
}

// AgentInfo describes an agent available for resource allocation.
// It is supplied by the caller; the planner never mutates it.
type AgentInfo struct {
	// ID is the unique identifier of the agent.
	ID string `json:"id"`
	// Type is the agent type name.
	Type string `json:"type"`
	// Capabilities lists the capability strings this agent offers.
	Capabilities []string `json:"capabilities"`
	// Availability is the remaining capacity in hours.
	Availability float64 `json:"availability"`
	// PerformanceScore weights allocation scoring, in [0,1]. Zero means unknown.
	PerformanceScore float64 `json:"performance_score,omitempty"`
}
