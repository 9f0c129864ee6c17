package models

import "testing"

func TestAgentStatusValid(t *testing.T) {
	valid := []AgentStatus{
		AgentStatusIdle, AgentStatusRunning, AgentStatusPaused,
		AgentStatusCompleted, AgentStatusFailed, AgentStatusTerminated,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}

	if AgentStatus("unknown").Valid() {
		t.Error("expected unknown status to be invalid")
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to AgentStatus
		want     bool
	}{
		{AgentStatusIdle, AgentStatusRunning, true},
		{AgentStatusRunning, AgentStatusCompleted, true},
		{AgentStatusRunning, AgentStatusFailed, true},
		{AgentStatusCompleted, AgentStatusIdle, true},
		{AgentStatusFailed, AgentStatusIdle, true},
		{AgentStatusIdle, AgentStatusPaused, true},
		{AgentStatusRunning, AgentStatusPaused, true},
		{AgentStatusPaused, AgentStatusIdle, true},
		{AgentStatusPaused, AgentStatusRunning, true},
		{AgentStatusIdle, AgentStatusTerminated, true},
		{AgentStatusRunning, AgentStatusTerminated, true},
		{AgentStatusTerminated, AgentStatusIdle, false},
		{AgentStatusTerminated, AgentStatusRunning, false},
		{AgentStatusIdle, AgentStatusCompleted, false},
		{AgentStatusCompleted, AgentStatusRunning, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestPriorityRank(t *testing.T) {
	if PriorityCritical.Rank() >= PriorityHigh.Rank() {
		t.Error("critical should rank before high")
	}
	if PriorityHigh.Rank() >= PriorityMedium.Rank() {
		t.Error("high should rank before medium")
	}
	if PriorityMedium.Rank() >= PriorityLow.Rank() {
		t.Error("medium should rank before low")
	}
	if !PriorityCritical.Valid() || Priority("urgent").Valid() {
		t.Error("priority validity check failed")
	}
}

func TestAgentErrorError(t *testing.T) {
	err := &AgentError{Code: "TIMEOUT", Message: "execution exceeded budget"}
	if err.Error() != "TIMEOUT: execution exceeded budget" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}
