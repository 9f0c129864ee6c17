package goap

import (
	"container/heap"
	"fmt"
	"time"

	"github.com/ShayCichocki/taskforge/pkg/models"
)

// Heuristic penalties for the default estimate.
const (
	booleanMismatchPenalty = 1.0
	emptyListPenalty       = 1.0
	numericShortfallScale  = 0.1
)

// node is one entry in the A* frontier.
type node struct {
	state    models.WorldState
	key      string
	actionID string
	parent   *node
	g        float64 // accumulated cost from the start
	f        float64 // g plus heuristic estimate
	depth    int

	index int // heap bookkeeping
}

// frontier is a min-heap over f.
type frontier []*node

func (f frontier) Len() int           { return len(f) }
func (f frontier) Less(i, j int) bool { return f[i].f < f[j].f }

func (f frontier) Swap(i, j int) {
	f[i], f[j] = f[j], f[i]
	f[i].index = i
	f[j].index = j
}

func (f *frontier) Push(x any) {
	n := x.(*node)
	n.index = len(*f)
	*f = append(*f, n)
}

func (f *frontier) Pop() any {
	old := *f
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*f = old[:len(old)-1]
	return n
}

// CreatePlan searches for a minimum-cost action sequence from state to
// the registered goal. Results are cached by goal id and canonical start
// state; an unachievable outcome is a normal result, not an error.
func (p *Planner) CreatePlan(state models.WorldState, goalID string) *models.GOAPPlan {
	goal, ok := p.Goal(goalID)
	if !ok {
		return &models.GOAPPlan{
			GoalID:     goalID,
			Achievable: false,
			Reason:     fmt.Sprintf("unknown goal %q", goalID),
		}
	}

	if satisfied(goal.Conditions, state) {
		return &models.GOAPPlan{
			GoalID:     goalID,
			ActionIDs:  []string{},
			Achievable: true,
			Confidence: 1,
		}
	}

	key := cacheKey(goalID, state)
	p.cacheMu.RLock()
	cached, hit := p.cache[key]
	p.cacheMu.RUnlock()
	if hit {
		return cached
	}

	plan := p.search(state, goal)

	p.cacheMu.Lock()
	p.cache[key] = plan
	p.cacheMu.Unlock()

	return plan
}

// search runs A* over world states.
func (p *Planner) search(start models.WorldState, goal *models.GOAPGoal) *models.GOAPPlan {
	p.mu.RLock()
	actions := make([]*models.GOAPAction, 0, len(p.actions))
	for _, action := range p.actions {
		actions = append(actions, action)
	}
	p.mu.RUnlock()

	deadline := time.Now().Add(p.searchTimeout)

	open := &frontier{}
	heap.Init(open)
	heap.Push(open, &node{
		state: start.Clone(),
		key:   start.Key(),
		f:     p.heuristic(start, goal),
	})
	closed := make(map[string]bool)

	iterations := 0
	for open.Len() > 0 {
		iterations++
		if iterations > p.maxIterations {
			return &models.GOAPPlan{
				GoalID:     goal.ID,
				Achievable: false,
				Reason:     fmt.Sprintf("iteration budget of %d exhausted", p.maxIterations),
			}
		}
		if time.Now().After(deadline) {
			return &models.GOAPPlan{
				GoalID:     goal.ID,
				Achievable: false,
				Reason:     fmt.Sprintf("search timed out after %s", p.searchTimeout),
			}
		}

		current := heap.Pop(open).(*node)
		if closed[current.key] {
			continue
		}
		closed[current.key] = true

		if satisfied(goal.Conditions, current.state) {
			return reconstruct(goal, current)
		}

		// Branches past the length cap are pruned, not fatal: shorter
		// routes elsewhere in the frontier keep searching.
		if current.depth >= p.maxPlanLength {
			continue
		}

		for _, action := range actions {
			if !satisfied(action.Preconditions, current.state) {
				continue
			}
			next := apply(current.state, action.Effects)
			nextKey := next.Key()
			if closed[nextKey] {
				continue
			}
			g := current.g + action.Cost
			heap.Push(open, &node{
				state:    next,
				key:      nextKey,
				actionID: action.ID,
				parent:   current,
				g:        g,
				f:        g + p.heuristic(next, goal),
				depth:    current.depth + 1,
			})
		}
	}

	return &models.GOAPPlan{
		GoalID:     goal.ID,
		Achievable: false,
		Reason:     "no action sequence reaches the goal",
	}
}

// reconstruct walks parent links back to the root and reverses.
func reconstruct(goal *models.GOAPGoal, end *node) *models.GOAPPlan {
	var actionIDs []string
	for n := end; n.parent != nil; n = n.parent {
		actionIDs = append(actionIDs, n.actionID)
	}
	for i, j := 0, len(actionIDs)-1; i < j; i, j = i+1, j-1 {
		actionIDs[i], actionIDs[j] = actionIDs[j], actionIDs[i]
	}

	confidence := 1 - float64(len(actionIDs))/100
	if confidence < 0.5 {
		confidence = 0.5
	}
	return &models.GOAPPlan{
		GoalID:     goal.ID,
		ActionIDs:  actionIDs,
		TotalCost:  end.g,
		Achievable: true,
		Confidence: confidence,
	}
}

// defaultHeuristic sums, per unmet goal condition, a boolean-mismatch
// penalty, a scaled numeric shortfall, or a list-emptiness penalty.
func defaultHeuristic(state models.WorldState, goal *models.GOAPGoal) float64 {
	h := 0.0
	for key, want := range goal.Conditions {
		have, ok := state[key]
		if !ok {
			h += booleanMismatchPenalty
			continue
		}

		if wantNum, isNum := asNumber(want); isNum {
			if haveNum, ok := asNumber(have); ok {
				if shortfall := wantNum - haveNum; shortfall > 0 {
					h += shortfall * numericShortfallScale
				}
				continue
			}
			h += booleanMismatchPenalty
			continue
		}

		if wantList, isList := want.([]string); isList {
			haveList, _ := have.([]string)
			if len(wantList) > 0 && len(haveList) == 0 {
				h += emptyListPenalty
			} else if !equalValue(have, want) {
				h += booleanMismatchPenalty
			}
			continue
		}

		if !equalValue(have, want) {
			h += booleanMismatchPenalty
		}
	}
	return h
}
