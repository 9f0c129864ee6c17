package planner

import (
	"fmt"
	"math"
	"time"

	"github.com/ShayCichocki/taskforge/pkg/models"
)

// workingHoursPerDay converts effort hours into schedule days.
const workingHoursPerDay = 6.0

// EstimateTimeline lays a decomposition out over business days.
//
// Subtasks are grouped into phases by dependency depth; phases run
// back-to-back starting from the next business day, skipping weekends.
// A phase-boundary milestone gates on that phase's subtasks. Confidence
// and buffer both derive from effort variance and the estimation strategy.
func (p *Planner) EstimateTimeline(decomposition *models.Decomposition) *models.TimelineEstimate {
	order := make([]string, 0, len(decomposition.Subtasks))
	predecessors := make(map[string][]string, len(decomposition.Subtasks))
	byID := make(map[string]*models.Subtask, len(decomposition.Subtasks))
	for _, sub := range decomposition.Subtasks {
		order = append(order, sub.ID)
		byID[sub.ID] = sub
	}
	for _, sub := range decomposition.Subtasks {
		for _, dep := range sub.Dependencies {
			if _, known := byID[dep]; known {
				predecessors[sub.ID] = append(predecessors[sub.ID], dep)
			}
		}
	}
	depths := dependencyDepths(order, predecessors, nil)

	maxDepth := 0
	for _, d := range depths {
		if d > maxDepth {
			maxDepth = d
		}
	}

	start := nextBusinessDay(p.now().Truncate(24 * time.Hour))
	estimate := &models.TimelineEstimate{StartDate: start}

	cursor := start
	totalDays := 0
	for d := 0; d <= maxDepth; d++ {
		var taskIDs []string
		phaseHours := 0.0
		for _, id := range order {
			if depths[id] != d {
				continue
			}
			taskIDs = append(taskIDs, id)
			phaseHours += byID[id].Effort.Expected
		}
		if len(taskIDs) == 0 {
			continue
		}

		days := int(math.Ceil(phaseHours / workingHoursPerDay))
		if days < 1 {
			days = 1
		}
		phaseStart := cursor
		phaseEnd := addBusinessDays(phaseStart, days-1)

		estimate.Phases = append(estimate.Phases, models.Phase{
			Name:    fmt.Sprintf("Phase %d", len(estimate.Phases)+1),
			Start:   phaseStart,
			End:     phaseEnd,
			TaskIDs: taskIDs,
		})
		estimate.Milestones = append(estimate.Milestones, models.Milestone{
			Name:            fmt.Sprintf("Phase %d complete", len(estimate.Phases)),
			Date:            phaseEnd,
			RequiredTaskIDs: taskIDs,
		})

		cursor = addBusinessDays(phaseEnd, 1)
		totalDays += days
	}

	variance := effortVariance(decomposition)
	estimate.BufferPercentage = p.bufferPercentage(variance)
	estimate.Confidence = p.confidence(variance)

	bufferDays := int(math.Ceil(float64(totalDays) * estimate.BufferPercentage / 100))
	estimate.TotalBusinessDays = totalDays + bufferDays

	if len(estimate.Phases) > 0 {
		estimate.EndDate = addBusinessDays(estimate.Phases[len(estimate.Phases)-1].End, bufferDays)
	} else {
		estimate.EndDate = addBusinessDays(start, 1)
		estimate.TotalBusinessDays = 1
	}
	if !estimate.EndDate.After(estimate.StartDate) {
		estimate.EndDate = addBusinessDays(estimate.StartDate, 1)
	}

	return estimate
}

// effortVariance is the spread (max - min) relative to expected effort,
// summed over the decomposition.
func effortVariance(decomposition *models.Decomposition) float64 {
	spread := 0.0
	expected := 0.0
	for _, sub := range decomposition.Subtasks {
		spread += sub.Effort.Max - sub.Effort.Min
		expected += sub.Effort.Expected
	}
	if expected <= 0 {
		return 0
	}
	return spread / expected
}

// bufferPercentage derives a schedule buffer from variance and strategy.
// Pessimistic plans carry at least 20%, optimistic plans at most 20%.
func (p *Planner) bufferPercentage(variance float64) float64 {
	buffer := clamp(variance*20, 5, 40)
	switch p.strategy {
	case models.EstimationPessimistic:
		if buffer < 20 {
			buffer = 20
		}
	case models.EstimationOptimistic:
		if buffer > 20 {
			buffer = 20
		}
	}
	return buffer
}

// confidence maps variance to an estimate confidence in [0,100].
func (p *Planner) confidence(variance float64) float64 {
	confidence := clamp(95-variance*30, 30, 95)
	switch p.strategy {
	case models.EstimationPessimistic:
		confidence = clamp(confidence+5, 30, 95)
	case models.EstimationOptimistic:
		confidence = clamp(confidence-10, 30, 95)
	}
	return confidence
}

// nextBusinessDay returns t unless it falls on a weekend, in which case
// it advances to Monday.
func nextBusinessDay(t time.Time) time.Time {
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// addBusinessDays advances t by n business days, skipping weekends.
func addBusinessDays(t time.Time, n int) time.Time {
	t = nextBusinessDay(t)
	for i := 0; i < n; i++ {
		t = t.AddDate(0, 0, 1)
		t = nextBusinessDay(t)
	}
	return t
}
