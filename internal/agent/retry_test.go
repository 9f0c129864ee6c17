package agent

import (
	"errors"
	"testing"
	"time"

	"github.com/ShayCichocki/taskforge/pkg/models"
)

func TestRetryPolicyDelay(t *testing.T) {
	p := &RetryPolicy{MaxRetries: 3, InitialDelay: 100 * time.Millisecond, BackoffFactor: 2.0}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryPolicyDelayDefaults(t *testing.T) {
	p := &RetryPolicy{MaxRetries: 1}

	if got := p.Delay(0); got != time.Second {
		t.Errorf("expected 1s default initial delay, got %v", got)
	}
	if got := p.Delay(1); got != 2*time.Second {
		t.Errorf("expected doubled delay, got %v", got)
	}
}

func TestRetryPolicyEnabled(t *testing.T) {
	var nilPolicy *RetryPolicy
	if nilPolicy.Enabled() {
		t.Error("nil policy must be disabled")
	}
	if (&RetryPolicy{}).Enabled() {
		t.Error("zero MaxRetries must be disabled")
	}
	if !(&RetryPolicy{MaxRetries: 1}).Enabled() {
		t.Error("positive MaxRetries must be enabled")
	}
}

func TestIsRetryableKeywordMatch(t *testing.T) {
	p := &RetryPolicy{MaxRetries: 1}

	retryable := []string{
		"request timed out",
		"Network unreachable",
		"connection reset by peer",
		"rate limit exceeded",
		"HTTP 429 from upstream",
	}
	for _, msg := range retryable {
		if !p.IsRetryable(errors.New(msg)) {
			t.Errorf("expected %q to be retryable", msg)
		}
	}

	notRetryable := []string{
		"invalid argument",
		"file not found",
		"syntax error",
	}
	for _, msg := range notRetryable {
		if p.IsRetryable(errors.New(msg)) {
			t.Errorf("expected %q to be permanent", msg)
		}
	}

	if p.IsRetryable(nil) {
		t.Error("nil error must not be retryable")
	}
}

func TestIsRetryableTypedError(t *testing.T) {
	p := &RetryPolicy{MaxRetries: 1}

	// A typed AgentError carries its own flag, overriding keyword matching.
	if !p.IsRetryable(&models.AgentError{Code: CodeTimeout, Message: "x", Retryable: true}) {
		t.Error("retryable typed error should be retried")
	}
	if p.IsRetryable(&models.AgentError{Code: CodeValidation, Message: "connection lost", Retryable: false}) {
		t.Error("typed error flag must win over keyword match")
	}
}

func TestIsRetryableCustomPatterns(t *testing.T) {
	p := &RetryPolicy{MaxRetries: 1, RetryablePatterns: []string{"flaky"}}

	if !p.IsRetryable(errors.New("known flaky dependency")) {
		t.Error("custom pattern should match")
	}
	if p.IsRetryable(errors.New("connection refused")) {
		t.Error("default patterns must not apply when custom patterns are set")
	}
}
