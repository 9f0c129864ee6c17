// Package goap implements goal-oriented action planning: A* search over
// world states using registered actions, plan execution against live
// state, and a readiness heuristic.
package goap

import (
	"fmt"
	"sync"
	"time"

	"github.com/ShayCichocki/taskforge/internal/config"
	"github.com/ShayCichocki/taskforge/pkg/models"
)

// Heuristic estimates the remaining cost from a state to a goal.
// It must never overestimate badly enough to matter for plan quality;
// the default heuristic is used when nil.
type Heuristic func(state models.WorldState, goal *models.GOAPGoal) float64

// Planner searches for minimum-cost action sequences. It holds no
// mutable state across invocations beyond the plan cache, which is safe
// for concurrent use.
type Planner struct {
	mu      sync.RWMutex
	actions map[string]*models.GOAPAction
	goals   map[string]*models.GOAPGoal

	cacheMu sync.RWMutex
	cache   map[string]*models.GOAPPlan

	heuristic     Heuristic
	maxIterations int
	maxPlanLength int
	searchTimeout time.Duration
}

// Option configures a Planner.
type Option func(*Planner)

// WithHeuristic overrides the default search heuristic.
func WithHeuristic(h Heuristic) Option {
	return func(p *Planner) { p.heuristic = h }
}

// New creates a goal planner from configuration.
func New(cfg *config.Config, opts ...Option) *Planner {
	maxIterations := cfg.Goal.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 1000
	}
	maxPlanLength := cfg.Goal.MaxPlanLength
	if maxPlanLength <= 0 {
		maxPlanLength = 20
	}
	searchTimeout := cfg.Goal.SearchTimeout
	if searchTimeout <= 0 {
		searchTimeout = 5 * time.Second
	}

	p := &Planner{
		actions:       make(map[string]*models.GOAPAction),
		goals:         make(map[string]*models.GOAPGoal),
		cache:         make(map[string]*models.GOAPPlan),
		heuristic:     defaultHeuristic,
		maxIterations: maxIterations,
		maxPlanLength: maxPlanLength,
		searchTimeout: searchTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RegisterAction adds an action to the catalog. Registering an existing
// id replaces it.
func (p *Planner) RegisterAction(action *models.GOAPAction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions[action.ID] = action
}

// RegisterGoal adds a goal to the catalog. Registering an existing id
// replaces it.
func (p *Planner) RegisterGoal(goal *models.GOAPGoal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.goals[goal.ID] = goal
}

// Action returns a registered action by id.
func (p *Planner) Action(id string) (*models.GOAPAction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	action, ok := p.actions[id]
	return action, ok
}

// Goal returns a registered goal by id.
func (p *Planner) Goal(id string) (*models.GOAPGoal, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	goal, ok := p.goals[id]
	return goal, ok
}

// ClearCache drops every cached plan.
func (p *Planner) ClearCache() {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	p.cache = make(map[string]*models.GOAPPlan)
}

// cacheKey identifies a plan by goal and canonical start state.
func cacheKey(goalID string, state models.WorldState) string {
	return goalID + "::" + state.Key()
}

// satisfied reports whether every condition holds in the state.
// Numeric conditions are "at least"; everything else is exact match.
func satisfied(conditions, state models.WorldState) bool {
	for key, want := range conditions {
		have, ok := state[key]
		if !ok {
			return false
		}
		wantNum, wantIsNum := asNumber(want)
		haveNum, haveIsNum := asNumber(have)
		if wantIsNum && haveIsNum {
			if haveNum < wantNum {
				return false
			}
			continue
		}
		if !equalValue(have, want) {
			return false
		}
	}
	return true
}

// apply produces the successor state from applying effects.
func apply(state models.WorldState, effects models.WorldState) models.WorldState {
	next := state.Clone()
	for key, value := range effects {
		if list, ok := value.([]string); ok {
			next[key] = append([]string(nil), list...)
			continue
		}
		next[key] = value
	}
	return next
}

// asNumber normalizes numeric state values to float64.
func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

// equalValue compares two non-numeric state values.
func equalValue(a, b any) bool {
	al, aOK := a.([]string)
	bl, bOK := b.([]string)
	if aOK && bOK {
		if len(al) != len(bl) {
			return false
		}
		for i := range al {
			if al[i] != bl[i] {
				return false
			}
		}
		return true
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
