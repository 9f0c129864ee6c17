package agent

import (
	"math"
	"strings"
	"time"

	"github.com/ShayCichocki/taskforge/pkg/models"
)

// RetryPolicy controls re-attempts for retryable failures.
// Retries are strictly sequential: the core sleeps the computed delay
// between attempts and never runs two attempts concurrently.
type RetryPolicy struct {
	// MaxRetries is the number of re-attempts after the first try.
	// Zero disables retries entirely.
	MaxRetries int
	// InitialDelay is the backoff delay before the first retry.
	InitialDelay time.Duration
	// BackoffFactor multiplies the delay after each attempt.
	BackoffFactor float64
	// RetryablePatterns are substrings that mark an error message transient.
	// Empty means DefaultRetryablePatterns.
	RetryablePatterns []string
}

// DefaultRetryablePatterns matches the transient failure classes the core
// retries by default. The set is policy, not algorithm: callers override it
// through configuration.
func DefaultRetryablePatterns() []string {
	return []string{"timeout", "timed out", "network", "connection", "rate limit", "rate-limit", "429", "unavailable"}
}

// DefaultRetryPolicy returns a policy with 3 retries and exponential backoff.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		BackoffFactor: 2.0,
	}
}

// Enabled reports whether the policy performs any retries.
func (p *RetryPolicy) Enabled() bool {
	return p != nil && p.MaxRetries > 0
}

// Delay returns the backoff delay before the given retry attempt (0-indexed).
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.InitialDelay
	if delay <= 0 {
		delay = time.Second
	}
	factor := p.BackoffFactor
	if factor <= 0 {
		factor = 2.0
	}
	return time.Duration(float64(delay) * math.Pow(factor, float64(attempt)))
}

// IsRetryable classifies a failure. A typed AgentError carries its own flag;
// anything else is matched against the transient keyword patterns.
func (p *RetryPolicy) IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if agentErr, ok := err.(*models.AgentError); ok {
		return agentErr.Retryable
	}

	patterns := p.RetryablePatterns
	if len(patterns) == 0 {
		patterns = DefaultRetryablePatterns()
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range patterns {
		if strings.Contains(msg, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}
