// Package planner decomposes free-text task descriptions into subtask
// plans: dependency graphs, capability-matched resource allocation,
// business-day timelines, and risk assessment.
package planner

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/taskforge/internal/bus"
	"github.com/ShayCichocki/taskforge/internal/config"
	"github.com/ShayCichocki/taskforge/pkg/models"
)

// Planner implements the planning pipeline. All methods are pure with
// respect to their inputs; a Planner is safe for concurrent use.
type Planner struct {
	strategy models.EstimationStrategy
	minMatch float64
	policies config.PolicyConfig
	events   *bus.Bus
	now      func() time.Time
}

// Option configures a Planner.
type Option func(*Planner)

// WithEvents publishes plan lifecycle events on the given bus.
func WithEvents(events *bus.Bus) Option {
	return func(p *Planner) { p.events = events }
}

// WithClock overrides the time source used for timeline estimation.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// New creates a planner from configuration.
func New(cfg *config.Config, opts ...Option) *Planner {
	strategy := models.EstimationStrategy(cfg.Planner.Strategy)
	if !strategy.Valid() {
		strategy = models.EstimationRealistic
	}
	minMatch := cfg.Planner.MinMatchThreshold
	if minMatch <= 0 {
		minMatch = 0.3
	}

	p := &Planner{
		strategy: strategy,
		minMatch: minMatch,
		policies: cfg.Policies,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CreateExecutionPlan runs the full pipeline: decomposition, dependency
// analysis, resource allocation, timeline estimation, and optionally risk
// assessment. Each stage consumes the prior stage's output.
func (p *Planner) CreateExecutionPlan(name, description string, agents []models.AgentInfo, includeRisks bool) *models.ExecutionPlan {
	decomposition := p.Decompose(description)
	graph := p.AnalyzeDependencies(decomposition.Subtasks)
	allocation := p.AllocateResources(decomposition.Subtasks, agents)
	timeline := p.EstimateTimeline(decomposition)

	plan := &models.ExecutionPlan{
		ID:            uuid.New().String(),
		Name:          name,
		Status:        "draft",
		CreatedAt:     p.now(),
		Decomposition: decomposition,
		Dependencies:  graph,
		Allocation:    allocation,
		Timeline:      timeline,
	}
	if includeRisks {
		plan.Risks = p.AssessRisks(decomposition, graph, allocation)
	}

	if p.events != nil {
		p.events.Publish(bus.Event{
			Topic:   bus.TopicPlanCreated,
			Message: fmt.Sprintf("plan %s created with %d subtasks", plan.ID, len(decomposition.Subtasks)),
			Payload: map[string]any{"plan_id": plan.ID, "name": name},
		})
	}
	return plan
}
