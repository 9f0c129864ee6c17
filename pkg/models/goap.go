package models

import (
	"fmt"
	"sort"
	"strings"
)

// WorldState is the flat fact map GOAP search operates over.
// Values are booleans, numbers, or string lists.
type WorldState map[string]any

// Clone returns a shallow copy of the state.
// List values are copied so effect application never aliases the source.
func (w WorldState) Clone() WorldState {
	out := make(WorldState, len(w))
	for k, v := range w {
		if list, ok := v.([]string); ok {
			cp := make([]string, len(list))
			copy(cp, list)
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}

// Key returns a canonical string for the state: keys sorted, values
// serialized deterministically. Two equal states always produce equal keys.
func (w WorldState) Key() string {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(canonicalValue(w[k]))
	}
	return b.String()
}

// canonicalValue serializes a single state value deterministically.
func canonicalValue(v any) string {
	switch t := v.(type) {
	case []string:
		cp := make([]string, len(t))
		copy(cp, t)
		sort.Strings(cp)
		return "[" + strings.Join(cp, ",") + "]"
	case float64:
		return fmt.Sprintf("%g", t)
	case int:
		return fmt.Sprintf("%d", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// GOAPAction is a planning operator with preconditions and effects.
type GOAPAction struct {
	// ID is the unique action name.
	ID string `json:"id"`
	// Cost is the positive cost of taking this action.
	Cost float64 `json:"cost"`
	// Preconditions is the partial state that must hold before the action.
	// Numeric preconditions are "at least"; all others are exact match.
	Preconditions WorldState `json:"preconditions,omitempty"`
	// Effects is the partial state the action writes when applied.
	Effects WorldState `json:"effects,omitempty"`
	// Execute optionally performs the action against live state.
	// Nil means the action only exists for planning.
	Execute func(state WorldState) error `json:"-" yaml:"-"`
}

// GOAPGoal is a target predicate set.
type GOAPGoal struct {
	// ID is the unique goal name.
	ID string `json:"id"`
	// Conditions is the partial state that must hold for the goal.
	Conditions WorldState `json:"conditions"`
	// Priority orders goals when several are pending.
	Priority Priority `json:"priority,omitempty"`
}

// GOAPPlan is an ordered action sequence toward a goal.
// Plans are immutable once produced.
type GOAPPlan struct {
	// GoalID is the goal this plan targets.
	GoalID string `json:"goal_id"`
	// ActionIDs is the ordered sequence of actions to take.
	ActionIDs []string `json:"action_ids"`
	// TotalCost is the summed cost of the sequence.
	TotalCost float64 `json:"total_cost"`
	// Achievable is false when no plan was found.
	Achievable bool `json:"achievable"`
	// Reason explains why the plan is unachievable, if it is.
	Reason string `json:"reason,omitempty"`
	// Confidence is an optional planner confidence in [0,1].
	Confidence float64 `json:"confidence,omitempty"`
}

// PlanExecution reports the outcome of running a plan against live state.
type PlanExecution struct {
	// Success is true when every step ran.
	Success bool `json:"success"`
	// CompletedSteps lists the action IDs that ran before any failure.
	CompletedSteps []string `json:"completed_steps"`
	// FailedStep names the action that failed, if any.
	FailedStep string `json:"failed_step,omitempty"`
	// FailureReason explains the failure.
	FailureReason string `json:"failure_reason,omitempty"`
	// State is the world state at completion or at the point of failure.
	State WorldState `json:"state"`
}

// ReadinessReport scores whether work is ready to proceed.
type ReadinessReport struct {
	// Score is the readiness score in [0,1].
	Score float64 `json:"score"`
	// Ready is true when Score meets the readiness threshold.
	Ready bool `json:"ready"`
	// Blockers lists the reasons work cannot proceed yet.
	Blockers []string `json:"blockers,omitempty"`
	// Recommendations suggests how to resolve the blockers.
	Recommendations []string `json:"recommendations,omitempty"`
}
