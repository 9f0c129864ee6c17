package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ShayCichocki/taskforge/pkg/models"
)

func echoHandler(ctx context.Context, task *models.Task) (any, error) {
	return task.Description, nil
}

func newTestCore(t *testing.T, handler Handler) *Core {
	t.Helper()
	return NewCore(CoreConfig{
		ID:      "agent-1",
		Type:    "worker",
		Handler: handler,
	})
}

func TestExecuteSuccess(t *testing.T) {
	core := newTestCore(t, echoHandler)

	result := core.Execute(context.Background(), &models.Task{ID: "t1", Description: "do work"})

	if !result.Success {
		t.Fatalf("expected success, got error %v", result.Error)
	}
	if result.Data != "do work" {
		t.Errorf("expected handler data, got %v", result.Data)
	}
	if result.TaskID != "t1" {
		t.Errorf("expected task id t1, got %s", result.TaskID)
	}

	snap := core.Snapshot()
	if snap.Status != models.AgentStatusIdle {
		t.Errorf("expected idle after success, got %s", snap.Status)
	}
	if len(snap.CompletedTaskIDs) != 1 || snap.CompletedTaskIDs[0] != "t1" {
		t.Errorf("expected completed set [t1], got %v", snap.CompletedTaskIDs)
	}
	if snap.CurrentTask != nil {
		t.Error("expected current task cleared")
	}
}

func TestExecuteValidationEmptyTask(t *testing.T) {
	core := newTestCore(t, echoHandler)

	tests := []*models.Task{
		{ID: "", Description: "desc"},
		{ID: "t1", Description: ""},
		{ID: "t1", Description: "   "},
	}

	for _, task := range tests {
		result := core.Execute(context.Background(), task)
		if result.Success {
			t.Fatalf("expected validation failure for %+v", task)
		}
		if result.Error.Code != CodeValidation {
			t.Errorf("expected %s, got %s", CodeValidation, result.Error.Code)
		}
	}
}

func TestExecuteUnresolvedDependencies(t *testing.T) {
	calls := 0
	core := newTestCore(t, func(ctx context.Context, task *models.Task) (any, error) {
		calls++
		return nil, nil
	})
	core.MarkCompleted("dep-done")

	before := core.Snapshot()

	result := core.Execute(context.Background(), &models.Task{
		ID:           "t1",
		Description:  "needs deps",
		Dependencies: []string{"dep-done", "dep-b", "dep-a"},
	})

	if result.Success {
		t.Fatal("expected validation failure")
	}
	if result.Error.Code != CodeValidation {
		t.Fatalf("expected %s, got %s", CodeValidation, result.Error.Code)
	}
	// Exactly the unresolved ids, sorted, with no extras.
	if !strings.Contains(result.Error.Message, "dep-a, dep-b") {
		t.Errorf("expected unresolved ids in message, got %q", result.Error.Message)
	}
	if strings.Contains(result.Error.Message, "dep-done") {
		t.Errorf("satisfied dependency should not be listed: %q", result.Error.Message)
	}
	if result.Error.Retryable {
		t.Error("validation errors must never be retryable")
	}

	// No side effects: handler never ran and state is untouched.
	if calls != 0 {
		t.Errorf("handler should not run, got %d calls", calls)
	}
	after := core.Snapshot()
	if after.Status != before.Status || after.ErrorCount != before.ErrorCount {
		t.Error("validation failure must not mutate agent state")
	}
}

func TestExecuteFailure(t *testing.T) {
	core := newTestCore(t, func(ctx context.Context, task *models.Task) (any, error) {
		return nil, errors.New("boom")
	})

	result := core.Execute(context.Background(), &models.Task{ID: "t1", Description: "will fail"})

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error.Code != CodeUnknown {
		t.Errorf("expected %s, got %s", CodeUnknown, result.Error.Code)
	}
	if result.Error.Message != "boom" {
		t.Errorf("expected boom, got %s", result.Error.Message)
	}

	snap := core.Snapshot()
	if snap.ErrorCount != 1 {
		t.Errorf("expected error count 1, got %d", snap.ErrorCount)
	}
	if snap.Status != models.AgentStatusIdle {
		t.Errorf("expected idle after failure, got %s", snap.Status)
	}
	if len(snap.CompletedTaskIDs) != 0 {
		t.Errorf("failed task must not enter completed set: %v", snap.CompletedTaskIDs)
	}
}

func TestExecuteTimeout(t *testing.T) {
	var late atomic.Bool
	core := newTestCore(t, func(ctx context.Context, task *models.Task) (any, error) {
		select {
		case <-time.After(500 * time.Millisecond):
			late.Store(true)
			return "too late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	result := core.Execute(context.Background(), &models.Task{
		ID:          "t1",
		Description: "slow",
		Timeout:     20 * time.Millisecond,
	})

	if result.Success {
		t.Fatal("expected timeout failure")
	}
	if result.Error.Code != CodeTimeout {
		t.Errorf("expected %s, got %s", CodeTimeout, result.Error.Code)
	}
	if !result.Error.Retryable {
		t.Error("timeouts should be classified retryable")
	}
	if late.Load() {
		t.Error("late result must be discarded, not reported")
	}
	if snap := core.Snapshot(); snap.CurrentTask != nil {
		t.Error("current task must be cleared after timeout")
	}
}

func TestExecuteAbandonedWorkDiscarded(t *testing.T) {
	finished := make(chan struct{})
	core := newTestCore(t, func(ctx context.Context, task *models.Task) (any, error) {
		// Ignores cancellation on purpose: the core must stop waiting anyway.
		time.Sleep(100 * time.Millisecond)
		close(finished)
		return "late", nil
	})

	result := core.Execute(context.Background(), &models.Task{
		ID:          "t1",
		Description: "uncooperative",
		Timeout:     10 * time.Millisecond,
	})

	if result.Success || result.Error.Code != CodeTimeout {
		t.Fatalf("expected timeout, got %+v", result)
	}

	// The abandoned work runs to completion in the background; its result
	// must be treated as not-happened.
	<-finished
	if snap := core.Snapshot(); len(snap.CompletedTaskIDs) != 0 {
		t.Errorf("abandoned completion leaked into state: %v", snap.CompletedTaskIDs)
	}
}

func TestExecuteRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	core := NewCore(CoreConfig{
		Handler: func(ctx context.Context, task *models.Task) (any, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("connection refused")
			}
			return "ok", nil
		},
		Retry: &RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, BackoffFactor: 2.0},
	})

	result := core.Execute(context.Background(), &models.Task{ID: "t1", Description: "flaky"})

	if !result.Success {
		t.Fatalf("expected success after retries, got %v", result.Error)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if result.Metrics.Retries != 2 {
		t.Errorf("expected 2 retries recorded, got %d", result.Metrics.Retries)
	}
}

func TestExecuteNonRetryableErrorNotRetried(t *testing.T) {
	attempts := 0
	core := NewCore(CoreConfig{
		Handler: func(ctx context.Context, task *models.Task) (any, error) {
			attempts++
			return nil, errors.New("syntax error in input")
		},
		Retry: &RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond},
	})

	result := core.Execute(context.Background(), &models.Task{ID: "t1", Description: "broken"})

	if result.Success {
		t.Fatal("expected failure")
	}
	if attempts != 1 {
		t.Errorf("non-retryable error must not be retried, got %d attempts", attempts)
	}
}

func TestExecuteRetriesExhausted(t *testing.T) {
	attempts := 0
	core := NewCore(CoreConfig{
		Handler: func(ctx context.Context, task *models.Task) (any, error) {
			attempts++
			return nil, errors.New("network unreachable")
		},
		Retry: &RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond},
	})

	result := core.Execute(context.Background(), &models.Task{ID: "t1", Description: "down"})

	if result.Success {
		t.Fatal("expected failure after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", attempts)
	}
	if result.Metrics.Retries != 2 {
		t.Errorf("expected 2 retries in metrics, got %d", result.Metrics.Retries)
	}
}

func TestExecutePanicNormalized(t *testing.T) {
	core := newTestCore(t, func(ctx context.Context, task *models.Task) (any, error) {
		panic(fmt.Errorf("index out of range"))
	})

	result := core.Execute(context.Background(), &models.Task{ID: "t1", Description: "panics"})

	if result.Success {
		t.Fatal("expected failure from panic")
	}
	if result.Error.Code != CodeUnknown {
		t.Errorf("expected %s, got %s", CodeUnknown, result.Error.Code)
	}
	if result.Error.Message != "index out of range" {
		t.Errorf("unexpected message: %s", result.Error.Message)
	}

	// The core remains usable after a panic.
	ok := core.Execute(context.Background(), &models.Task{ID: "t2", Description: "recovers"})
	if ok.Error != nil && ok.Error.Code == CodeUnknown {
		t.Error("core should recover after handler panic")
	}
}

func TestPauseResume(t *testing.T) {
	core := newTestCore(t, echoHandler)

	// Pause is only valid while running.
	if err := core.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected invalid transition pausing idle agent, got %v", err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	core.handler = func(ctx context.Context, task *models.Task) (any, error) {
		close(started)
		<-release
		return nil, nil
	}

	done := make(chan *models.AgentResult, 1)
	go func() {
		done <- core.Execute(context.Background(), &models.Task{ID: "t1", Description: "long"})
	}()

	<-started
	if err := core.Pause(); err != nil {
		t.Fatalf("pause while running: %v", err)
	}
	if snap := core.Snapshot(); snap.Status != models.AgentStatusPaused {
		t.Errorf("expected paused, got %s", snap.Status)
	}

	if err := core.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if snap := core.Snapshot(); snap.Status != models.AgentStatusIdle {
		t.Errorf("expected idle after resume, got %s", snap.Status)
	}
	if err := core.Resume(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected invalid transition resuming idle agent, got %v", err)
	}

	close(release)
	<-done
}

func TestTerminate(t *testing.T) {
	cleanups := 0
	core := NewCore(CoreConfig{
		Handler: echoHandler,
		Cleanup: func() error {
			cleanups++
			return nil
		},
	})

	if err := core.Terminate(); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if snap := core.Snapshot(); snap.Status != models.AgentStatusTerminated {
		t.Errorf("expected terminated, got %s", snap.Status)
	}
	if cleanups != 1 {
		t.Errorf("expected cleanup to run once, got %d", cleanups)
	}

	// Second terminate is a no-op.
	if err := core.Terminate(); err != nil {
		t.Errorf("repeat terminate should be a no-op, got %v", err)
	}
	if cleanups != 1 {
		t.Errorf("cleanup must not run twice, got %d", cleanups)
	}

	// Executing on a terminated agent fails without running the handler.
	result := core.Execute(context.Background(), &models.Task{ID: "t1", Description: "late"})
	if result.Success {
		t.Error("expected failure executing on terminated agent")
	}
}

func TestEnqueueDequeue(t *testing.T) {
	core := newTestCore(t, echoHandler)

	core.Enqueue("a")
	core.Enqueue("b")

	if snap := core.Snapshot(); len(snap.TaskQueue) != 2 {
		t.Fatalf("expected 2 queued, got %d", len(snap.TaskQueue))
	}
	if got := core.DequeueNext(); got != "a" {
		t.Errorf("expected a, got %s", got)
	}
	if got := core.DequeueNext(); got != "b" {
		t.Errorf("expected b, got %s", got)
	}
	if got := core.DequeueNext(); got != "" {
		t.Errorf("expected empty on drained queue, got %s", got)
	}
}
