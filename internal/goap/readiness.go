package goap

import (
	"fmt"

	"github.com/ShayCichocki/taskforge/pkg/models"
)

// Readiness scoring weights. They sum to 1.
const (
	weightSpecComplete       = 0.35
	weightAcceptanceCriteria = 0.25
	weightNoBlockers         = 0.25
	weightNoGaps             = 0.15

	readinessThreshold = 0.8
)

// State keys consulted by readiness evaluation.
const (
	keySpecComplete       = "spec_complete"
	keyAcceptanceCriteria = "acceptance_criteria"
	keyBlockers           = "blockers"
	keyGaps               = "gaps"
)

// EvaluateReadiness scores whether work described by the state is ready
// to proceed. This is an independent heuristic, not plan search: it
// combines fixed weights for specification completeness, acceptance
// criteria, and the absence of blockers and gaps.
func (p *Planner) EvaluateReadiness(state models.WorldState) *models.ReadinessReport {
	report := &models.ReadinessReport{}

	if truthy(state[keySpecComplete]) {
		report.Score += weightSpecComplete
	} else {
		report.Blockers = append(report.Blockers, "specification is incomplete")
		report.Recommendations = append(report.Recommendations,
			"finish the specification before starting work")
	}

	if nonEmpty(state[keyAcceptanceCriteria]) {
		report.Score += weightAcceptanceCriteria
	} else {
		report.Blockers = append(report.Blockers, "no acceptance criteria defined")
		report.Recommendations = append(report.Recommendations,
			"define acceptance criteria for the deliverable")
	}

	if blockers, ok := state[keyBlockers].([]string); ok && len(blockers) > 0 {
		for _, blocker := range blockers {
			report.Blockers = append(report.Blockers, fmt.Sprintf("open blocker: %s", blocker))
		}
		report.Recommendations = append(report.Recommendations,
			"resolve the open blockers")
	} else {
		report.Score += weightNoBlockers
	}

	if gaps, ok := state[keyGaps].([]string); ok && len(gaps) > 0 {
		for _, gap := range gaps {
			report.Blockers = append(report.Blockers, fmt.Sprintf("pending gap: %s", gap))
		}
		report.Recommendations = append(report.Recommendations,
			"close the pending gaps or descope them explicitly")
	} else {
		report.Score += weightNoGaps
	}

	report.Ready = report.Score >= readinessThreshold
	return report
}

// truthy interprets a state value as a boolean fact.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != "" && t != "false"
	default:
		if n, ok := asNumber(v); ok {
			return n > 0
		}
		return false
	}
}

// nonEmpty reports whether a state value carries content.
func nonEmpty(v any) bool {
	if list, ok := v.([]string); ok {
		return len(list) > 0
	}
	return truthy(v)
}
