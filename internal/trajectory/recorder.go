// Package trajectory records agent execution trajectories for later analysis.
package trajectory

// Recorder captures the steps an agent takes while executing a task.
// Implementations must tolerate being called from execution hot paths:
// recording failures are logged internally, never returned.
type Recorder interface {
	// Start opens a trajectory for a task and returns its ID.
	Start(taskID string, metadata map[string]any) string
	// RecordStep appends one action/observation pair to a trajectory.
	RecordStep(trajectoryID, action, observation string, confidence float64, metadata map[string]any)
	// Complete closes a trajectory with an outcome and returns the stored ID,
	// or empty string if nothing was persisted.
	Complete(trajectoryID, outcome string, metadata map[string]any) string
	// Abort discards a trajectory with a reason.
	Abort(trajectoryID, reason string)
}

// Nop is a Recorder that does nothing. A nil Recorder dependency is
// behaviorally equivalent to Nop.
type Nop struct{}

// Start returns an empty trajectory ID.
func (Nop) Start(string, map[string]any) string { return "" }

// RecordStep does nothing.
func (Nop) RecordStep(string, string, string, float64, map[string]any) {}

// Complete returns an empty stored ID.
func (Nop) Complete(string, string, map[string]any) string { return "" }

// Abort does nothing.
func (Nop) Abort(string, string) {}
