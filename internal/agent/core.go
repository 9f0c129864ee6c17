package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/taskforge/internal/trajectory"
	"github.com/ShayCichocki/taskforge/pkg/models"
)

// DefaultTimeout bounds a task execution when neither the task nor the
// core configuration carries one.
const DefaultTimeout = 30 * time.Second

// CoreConfig contains configuration options for an execution Core.
type CoreConfig struct {
	// ID is the agent instance ID. A UUID is generated when empty.
	ID string
	// Type is the registered agent type name.
	Type string
	// Handler performs the type-specific work. Required.
	Handler Handler
	// DefaultTimeout bounds executions for tasks without their own timeout.
	// Zero means DefaultTimeout.
	DefaultTimeout time.Duration
	// Retry re-attempts retryable failures. Nil disables retries.
	Retry *RetryPolicy
	// Recorder captures execution trajectories. Nil is equivalent to a no-op.
	Recorder trajectory.Recorder
	// Hooks is invoked fire-and-forget at lifecycle boundaries. Optional.
	Hooks HookInvoker
	// Cleanup runs once during Terminate. Optional.
	Cleanup func() error
}

// Core implements the uniform task execution lifecycle shared by every
// agent type: validation, timeout-bounded (optionally retried) execution,
// result normalization, and status transitions.
//
// A Core owns its state exclusively. Execution is a single logical thread;
// concurrent callers of Snapshot only ever see copies.
type Core struct {
	mu        sync.Mutex
	state     models.AgentState
	completed map[string]bool

	handler        Handler
	defaultTimeout time.Duration
	retry          *RetryPolicy
	recorder       trajectory.Recorder
	hooks          HookInvoker
	cleanup        func() error
}

// NewCore creates an execution core in idle state.
func NewCore(cfg CoreConfig) *Core {
	id := cfg.ID
	if id == "" {
		id = uuid.New().String()
	}

	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var rec trajectory.Recorder = trajectory.Nop{}
	if cfg.Recorder != nil {
		rec = cfg.Recorder
	}

	return &Core{
		state: models.AgentState{
			ID:           id,
			Type:         cfg.Type,
			Status:       models.AgentStatusIdle,
			LastActivity: time.Now(),
		},
		completed:      make(map[string]bool),
		handler:        cfg.Handler,
		defaultTimeout: timeout,
		retry:          cfg.Retry,
		recorder:       rec,
		hooks:          cfg.Hooks,
		cleanup:        cfg.Cleanup,
	}
}

// ID returns the agent instance ID.
func (c *Core) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ID
}

// Snapshot returns a copy of the agent's current state.
// Health checks read snapshots only; they never mutate agent state.
func (c *Core) Snapshot() models.AgentState {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.state
	snap.TaskQueue = append([]string(nil), c.state.TaskQueue...)
	snap.CompletedTaskIDs = append([]string(nil), c.state.CompletedTaskIDs...)
	if c.state.CurrentTask != nil {
		task := *c.state.CurrentTask
		snap.CurrentTask = &task
	}
	return snap
}

// MarkCompleted seeds the completed-task set, satisfying future dependency
// checks. Used when loading prior progress.
func (c *Core) MarkCompleted(taskIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range taskIDs {
		if !c.completed[id] {
			c.completed[id] = true
			c.state.CompletedTaskIDs = append(c.state.CompletedTaskIDs, id)
		}
	}
}

// Execute runs a single task through the full lifecycle and returns its
// normalized result. It never returns an error and never panics: every
// failure mode becomes a failed AgentResult.
func (c *Core) Execute(ctx context.Context, task *models.Task) *models.AgentResult {
	start := time.Now()

	// Validation failures short-circuit: no retry, no timeout, no state change.
	if err := c.validate(task); err != nil {
		taskID := ""
		if task != nil {
			taskID = task.ID
		}
		return &models.AgentResult{
			TaskID:  taskID,
			Success: false,
			Error:   err,
			Metrics: models.ResultMetrics{StartTime: start, EndTime: time.Now()},
		}
	}

	c.mu.Lock()
	if c.state.Status == models.AgentStatusTerminated {
		c.mu.Unlock()
		return failedResult(task.ID, start, &models.AgentError{
			Code:    CodeValidation,
			Message: "agent is terminated",
		}, 0)
	}
	c.transitionLocked(models.AgentStatusRunning)
	c.state.CurrentTask = task
	c.state.LastActivity = time.Now()
	c.mu.Unlock()

	// The current task is cleared unconditionally so a crashed execution
	// never leaves state stuck.
	defer func() {
		c.mu.Lock()
		c.state.CurrentTask = nil
		c.mu.Unlock()
	}()

	trajID := c.recorder.Start(task.ID, map[string]any{"agent_id": c.ID(), "agent_type": c.state.Type})
	c.recorder.RecordStep(trajID, "validated", "task accepted", 1.0, nil)
	c.invokeHook(HookPreTask, task, nil)

	data, retries, execErr := c.run(ctx, task, trajID)

	endTime := time.Now()
	metrics := models.ResultMetrics{
		StartTime: start,
		EndTime:   endTime,
		Duration:  endTime.Sub(start),
		Retries:   retries,
	}

	if execErr != nil {
		agentErr := normalizeError(execErr)

		c.mu.Lock()
		c.state.ErrorCount++
		c.state.LastActivity = time.Now()
		c.transitionLocked(models.AgentStatusFailed)
		c.transitionLocked(models.AgentStatusIdle)
		c.mu.Unlock()

		result := &models.AgentResult{TaskID: task.ID, Success: false, Error: agentErr, Metrics: metrics}
		c.recorder.Complete(trajID, "failure", map[string]any{"error": agentErr.Code})
		c.invokeHook(HookTaskFail, task, result)
		return result
	}

	c.mu.Lock()
	if !c.completed[task.ID] {
		c.completed[task.ID] = true
		c.state.CompletedTaskIDs = append(c.state.CompletedTaskIDs, task.ID)
	}
	c.state.LastActivity = time.Now()
	c.transitionLocked(models.AgentStatusCompleted)
	c.transitionLocked(models.AgentStatusIdle)
	c.mu.Unlock()

	result := &models.AgentResult{TaskID: task.ID, Success: true, Data: data, Metrics: metrics}
	c.recorder.Complete(trajID, "success", nil)
	c.invokeHook(HookPostTask, task, result)
	return result
}

// validate checks the task shape and dependency closure.
func (c *Core) validate(task *models.Task) *models.AgentError {
	if task == nil || task.ID == "" || strings.TrimSpace(task.Description) == "" {
		return &models.AgentError{
			Code:    CodeValidation,
			Message: "task requires a non-empty id and description",
		}
	}

	c.mu.Lock()
	var unresolved []string
	for _, dep := range task.Dependencies {
		if !c.completed[dep] {
			unresolved = append(unresolved, dep)
		}
	}
	c.mu.Unlock()

	if len(unresolved) > 0 {
		sort.Strings(unresolved)
		return &models.AgentError{
			Code:    CodeValidation,
			Message: fmt.Sprintf("unresolved dependencies: %s", strings.Join(unresolved, ", ")),
		}
	}

	return nil
}

// run executes the task with timeout bounding and the retry policy.
// Retries are sequential: the computed backoff elapses between attempts.
func (c *Core) run(ctx context.Context, task *models.Task, trajID string) (any, int, error) {
	attempts := 1
	if c.retry.Enabled() {
		attempts = c.retry.MaxRetries + 1
	}

	var data any
	var err error
	retries := 0

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			retries++
			delay := c.retry.Delay(attempt - 1)
			log.Printf("[agent] %s task %s: retry %d/%d after %s", c.state.ID, task.ID, attempt, c.retry.MaxRetries, delay)
			c.recorder.RecordStep(trajID, "retry", err.Error(), 0, map[string]any{"attempt": attempt})

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, retries, ctx.Err()
			}
		}

		data, err = c.runOnce(ctx, task)
		if err == nil {
			return data, retries, nil
		}
		if !c.retry.Enabled() || !c.retry.IsRetryable(err) {
			break
		}
	}

	return nil, retries, err
}

// runOnce races the handler against the task's timeout budget.
// Cancellation is cooperative: on expiry the core stops waiting and the
// abandoned handler's late result, if any, is discarded.
func (c *Core) runOnce(ctx context.Context, task *models.Task) (any, error) {
	timeout := task.Timeout
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		data any
		err  error
	}

	// Buffered so the abandoned handler can still deliver without leaking.
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: normalizePanic(r)}
			}
		}()
		data, err := c.handler(runCtx, task)
		done <- outcome{data: data, err: err}
	}()

	select {
	case o := <-done:
		return o.data, o.err
	case <-runCtx.Done():
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, &models.AgentError{
				Code:      CodeTimeout,
				Message:   fmt.Sprintf("execution exceeded %s", timeout),
				Retryable: true,
			}
		}
		return nil, runCtx.Err()
	}
}

// Enqueue appends a task ID to the agent's queue. The queue is advisory
// bookkeeping for callers that feed tasks one at a time.
func (c *Core) Enqueue(taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.TaskQueue = append(c.state.TaskQueue, taskID)
}

// DequeueNext removes and returns the next queued task ID, or empty string.
func (c *Core) DequeueNext() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.state.TaskQueue) == 0 {
		return ""
	}
	next := c.state.TaskQueue[0]
	c.state.TaskQueue = c.state.TaskQueue[1:]
	return next
}

// Pause suspends a running agent. Only valid while running.
func (c *Core) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != models.AgentStatusRunning {
		return fmt.Errorf("%w: cannot pause from %s", ErrInvalidTransition, c.state.Status)
	}
	c.transitionLocked(models.AgentStatusPaused)
	return nil
}

// Resume returns a paused agent to idle readiness.
func (c *Core) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != models.AgentStatusPaused {
		return fmt.Errorf("%w: cannot resume from %s", ErrInvalidTransition, c.state.Status)
	}
	c.transitionLocked(models.AgentStatusIdle)
	return nil
}

// Terminate runs the cleanup hook and moves the agent to its terminal state.
// Calling Terminate on an already-terminated agent is a no-op.
func (c *Core) Terminate() error {
	c.mu.Lock()
	if c.state.Status == models.AgentStatusTerminated {
		c.mu.Unlock()
		return nil
	}
	cleanup := c.cleanup
	c.cleanup = nil
	c.transitionLocked(models.AgentStatusTerminated)
	c.state.CurrentTask = nil
	c.mu.Unlock()

	if cleanup != nil {
		return cleanup()
	}
	return nil
}

// transitionLocked moves the status when the transition is legal.
// Illegal transitions are logged and skipped; lifecycle bookkeeping must
// never wedge an execution mid-flight. Caller must hold c.mu.
func (c *Core) transitionLocked(to models.AgentStatus) {
	if c.state.Status == to {
		return
	}
	if !models.CanTransition(c.state.Status, to) {
		log.Printf("[agent] %s: ignoring invalid transition %s -> %s", c.state.ID, c.state.Status, to)
		return
	}
	c.state.Status = to
}

// invokeHook calls the hook invoker when configured. Hook panics are
// contained here: a broken hook cannot fail an execution.
func (c *Core) invokeHook(name string, task *models.Task, result *models.AgentResult) {
	if c.hooks == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[agent] hook %s panicked: %v", name, r)
		}
	}()
	c.hooks.Invoke(name, task, result)
}

// failedResult builds a failure result with timing metrics.
func failedResult(taskID string, start time.Time, err *models.AgentError, retries int) *models.AgentResult {
	end := time.Now()
	return &models.AgentResult{
		TaskID:  taskID,
		Success: false,
		Error:   err,
		Metrics: models.ResultMetrics{
			StartTime: start,
			EndTime:   end,
			Duration:  end.Sub(start),
			Retries:   retries,
		},
	}
}

// normalizeError converts any execution error into a typed AgentError.
func normalizeError(err error) *models.AgentError {
	var agentErr *models.AgentError
	if errors.As(err, &agentErr) {
		return agentErr
	}
	return &models.AgentError{
		Code:    CodeUnknown,
		Message: err.Error(),
	}
}

// normalizePanic converts a recovered panic value into a typed AgentError.
func normalizePanic(r any) *models.AgentError {
	if err, ok := r.(error); ok {
		return &models.AgentError{Code: CodeUnknown, Message: err.Error()}
	}
	return &models.AgentError{Code: CodeUnknown, Message: fmt.Sprintf("%v", r)}
}
