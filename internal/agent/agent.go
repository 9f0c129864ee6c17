// Package agent provides the task execution core and agent lifecycle management.
package agent

import (
	"context"
	"errors"
	"log"

	"github.com/ShayCichocki/taskforge/pkg/models"
)

// Common errors for agent lifecycle management.
var (
	// ErrInvalidTransition indicates an invalid state transition was attempted.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrTerminated indicates the agent has been terminated.
	ErrTerminated = errors.New("agent terminated")
)

// Error codes returned in normalized failure results.
const (
	// CodeValidation marks bad or incomplete task input. Never retried.
	CodeValidation = "VALIDATION_ERROR"
	// CodeTimeout marks an execution that exceeded its time budget.
	CodeTimeout = "TIMEOUT"
	// CodeInvalidTaskType marks an unrecognized planner sub-operation.
	CodeInvalidTaskType = "INVALID_TASK_TYPE"
	// CodeUnknown marks an uncategorized execution failure.
	CodeUnknown = "UNKNOWN_ERROR"
)

// Agent is the lifecycle contract every concrete agent implements.
type Agent interface {
	// Execute runs a single task and returns its normalized result.
	// It never returns an error: every failure mode becomes a failed result.
	Execute(ctx context.Context, task *models.Task) *models.AgentResult
	// Pause suspends a running agent.
	Pause() error
	// Resume returns a paused agent to idle readiness.
	Resume() error
	// Terminate shuts the agent down permanently.
	Terminate() error
	// Snapshot returns a copy of the agent's current state.
	Snapshot() models.AgentState
}

// Handler performs the type-specific work for one task.
// It must honor ctx cancellation: when the deadline passes the core stops
// waiting and discards any late result.
type Handler func(ctx context.Context, task *models.Task) (any, error)

// HookInvoker is the external hook interface the core consumes.
// Invocations are fire-and-forget: failures are logged, never surfaced.
type HookInvoker interface {
	Invoke(hookName string, task *models.Task, result *models.AgentResult)
}

// LogHookInvoker logs every hook invocation. It is the default invoker
// used by the CLI; production deployments supply their own.
type LogHookInvoker struct{}

// Invoke logs the hook name and task.
func (LogHookInvoker) Invoke(hookName string, task *models.Task, result *models.AgentResult) {
	if result != nil {
		log.Printf("[hooks] %s task=%s success=%v", hookName, task.ID, result.Success)
		return
	}
	log.Printf("[hooks] %s task=%s", hookName, task.ID)
}

// Hook names invoked around the execution lifecycle.
const (
	HookPreTask  = "pre_task"
	HookPostTask = "post_task"
	HookTaskFail = "task_fail"
)
