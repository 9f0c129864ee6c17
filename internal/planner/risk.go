package planner

import (
	"fmt"
	"sort"

	"github.com/ShayCichocki/taskforge/pkg/models"
)

// AssessRisks scores a plan's risk across fixed categories. The
// allocation argument may be nil when allocation has not been run.
// Returned risks are sorted by score descending; RiskScore is the
// weight-normalized aggregate in [0,100].
func (p *Planner) AssessRisks(decomposition *models.Decomposition, graph *models.DependencyGraph, allocation *models.ResourceAllocation) *models.RiskAssessment {
	var risks []models.Risk

	variance := effortVariance(decomposition)
	if variance > 0.5 {
		probability := models.RiskMedium
		if variance > 1.0 {
			probability = models.RiskHigh
		}
		risks = append(risks, newRisk("schedule_variance", probability, models.RiskHigh,
			models.RiskSchedule,
			fmt.Sprintf("effort estimates vary widely (spread %.0f%% of expected)", variance*100),
			"re-estimate the widest subtasks with the people doing the work",
			"re-plan the timeline when the first phase slips"))
	}

	if graph != nil && len(graph.Cycles) > 0 {
		risks = append(risks, newRisk("dependency_cycles", models.RiskHigh, models.RiskHigh,
			models.RiskTechnical,
			fmt.Sprintf("dependency graph contains %d cycle(s); execution order is unreliable", len(graph.Cycles)),
			"break the cycles by splitting or re-scoping the involved subtasks",
			"execute cyclic subtasks iteratively with manual ordering"))
	}

	if allocation != nil {
		if len(allocation.UnassignedTasks) > 0 {
			risks = append(risks, newRisk("unassigned_tasks", models.RiskHigh, models.RiskHigh,
				models.RiskResource,
				fmt.Sprintf("%d subtask(s) have no qualified agent", len(allocation.UnassignedTasks)),
				"register agents covering the missing capabilities",
				"descope or outsource the unassigned work"))
		} else if skewedUtilization(allocation.Utilization) {
			risks = append(risks, newRisk("utilization_skew", models.RiskMedium, models.RiskMedium,
				models.RiskResource,
				"workload is concentrated on a small subset of agents",
				"rebalance assignments toward under-utilized agents",
				"spawn additional instances of the overloaded types"))
		}
	}

	// Baseline coverage: every plan carries some scope and external exposure.
	risks = append(risks, newRisk("scope_creep", models.RiskMedium, models.RiskMedium,
		models.RiskScope,
		"requirements may evolve during execution",
		"re-confirm acceptance criteria at each phase boundary",
		"re-plan from the decomposition when scope changes"))
	risks = append(risks, newRisk("external_dependencies", models.RiskLow, models.RiskMedium,
		models.RiskExternal,
		"third-party services or teams may be unavailable",
		"identify external dependencies up front and agree on SLAs",
		"stub external integrations to keep internal work unblocked"))

	sort.SliceStable(risks, func(i, j int) bool {
		return risks[i].Score > risks[j].Score
	})

	assessment := &models.RiskAssessment{
		Risks:     risks,
		RiskScore: aggregateScore(risks),
	}
	assessment.OverallRisk = bandScore(assessment.RiskScore)
	assessment.Recommendations = recommendations(risks)

	return assessment
}

// newRisk builds a risk with its probability-times-impact score.
func newRisk(id string, probability, impact models.RiskLevel, category models.RiskCategory, description, mitigation, contingency string) models.Risk {
	return models.Risk{
		ID:          id,
		Probability: probability,
		Impact:      impact,
		Score:       probability.Weight() * impact.Weight(),
		Category:    category,
		Description: description,
		Mitigation:  mitigation,
		Contingency: contingency,
	}
}

// aggregateScore normalizes the summed risk scores to [0,100].
// The maximum per-risk score is high probability times high impact.
func aggregateScore(risks []models.Risk) float64 {
	if len(risks) == 0 {
		return 0
	}
	total := 0.0
	for _, risk := range risks {
		total += risk.Score
	}
	maxPossible := float64(len(risks)) * models.RiskHigh.Weight() * models.RiskHigh.Weight()
	return clamp(total/maxPossible*100, 0, 100)
}

// bandScore maps the aggregate score to an overall risk level.
func bandScore(score float64) models.RiskLevel {
	switch {
	case score >= 60:
		return models.RiskHigh
	case score >= 30:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// skewedUtilization reports whether load is concentrated: the busiest
// agent is more than 50 points above the least busy one.
func skewedUtilization(utilization map[string]float64) bool {
	if len(utilization) < 2 {
		return false
	}
	lo, hi := 100.0, 0.0
	for _, u := range utilization {
		if u < lo {
			lo = u
		}
		if u > hi {
			hi = u
		}
	}
	return hi-lo > 50
}

// recommendations surfaces the mitigation of every above-baseline risk.
func recommendations(risks []models.Risk) []string {
	var recs []string
	for _, risk := range risks {
		if risk.Score >= models.RiskMedium.Weight()*models.RiskHigh.Weight() {
			recs = append(recs, risk.Mitigation)
		}
	}
	return recs
}
