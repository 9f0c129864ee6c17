package planner

import (
	"sort"

	"github.com/ShayCichocki/taskforge/pkg/models"
)

// AllocateResources assigns subtasks to capability-matched agents.
//
// Subtasks are processed in priority order. Candidates are scored by the
// fraction of required capabilities the agent covers, weighted by its
// remaining availability and performance score; the best candidate whose
// match ratio clears the configured threshold wins and has the subtask's
// expected effort deducted from its remaining availability. Every subtask
// ends up in exactly one of Assignments or UnassignedTasks.
func (p *Planner) AllocateResources(subtasks []*models.Subtask, agents []models.AgentInfo) *models.ResourceAllocation {
	allocation := &models.ResourceAllocation{
		Utilization: make(map[string]float64, len(agents)),
	}

	capacity := make(map[string]float64, len(agents))
	remaining := make(map[string]float64, len(agents))
	for _, info := range agents {
		capacity[info.ID] = info.Availability
		remaining[info.ID] = info.Availability
	}

	ordered := make([]*models.Subtask, len(subtasks))
	copy(ordered, subtasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority.Rank() < ordered[j].Priority.Rank()
	})

	for _, sub := range ordered {
		bestScore := 0.0
		bestIdx := -1
		for i, info := range agents {
			if remaining[info.ID] <= 0 {
				continue
			}
			match := matchRatio(sub.RequiredCapabilities, info.Capabilities)
			if match < p.minMatch {
				continue
			}
			performance := info.PerformanceScore
			if performance <= 0 {
				performance = 1
			}
			availabilityWeight := 0.0
			if capacity[info.ID] > 0 {
				availabilityWeight = remaining[info.ID] / capacity[info.ID]
			}
			score := match * availabilityWeight * performance
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		if bestIdx < 0 {
			allocation.UnassignedTasks = append(allocation.UnassignedTasks, sub.ID)
			continue
		}

		chosen := agents[bestIdx]
		remaining[chosen.ID] -= sub.Effort.Expected
		allocation.Assignments = append(allocation.Assignments, models.Assignment{
			TaskID:                 sub.ID,
			AgentID:                chosen.ID,
			AgentType:              chosen.Type,
			EstimatedDurationHours: sub.Effort.Expected,
			Confidence:             clamp(bestScore*100, 0, 100),
		})
	}

	for id, cap := range capacity {
		if cap <= 0 {
			allocation.Utilization[id] = 0
			continue
		}
		used := cap - remaining[id]
		if used < 0 {
			used = 0
		}
		allocation.Utilization[id] = clamp(used/cap*100, 0, 100)
	}

	allocation.Bottlenecks = findBottlenecks(subtasks, agents)

	return allocation
}

// matchRatio is the fraction of required capabilities the agent covers.
// No requirements means a perfect match.
func matchRatio(required, offered []string) float64 {
	if len(required) == 0 {
		return 1
	}
	have := make(map[string]bool, len(offered))
	for _, cap := range offered {
		have[cap] = true
	}
	covered := 0
	for _, cap := range required {
		if have[cap] {
			covered++
		}
	}
	return float64(covered) / float64(len(required))
}

// findBottlenecks reports capabilities demanded by more subtasks than
// there are agents offering them.
func findBottlenecks(subtasks []*models.Subtask, agents []models.AgentInfo) []string {
	demand := make(map[string]int)
	for _, sub := range subtasks {
		for _, cap := range sub.RequiredCapabilities {
			demand[cap]++
		}
	}
	supply := make(map[string]int)
	for _, info := range agents {
		for _, cap := range info.Capabilities {
			supply[cap]++
		}
	}

	var bottlenecks []string
	for cap, needed := range demand {
		if supply[cap] < needed {
			bottlenecks = append(bottlenecks, cap)
		}
	}
	sort.Strings(bottlenecks)
	return bottlenecks
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
