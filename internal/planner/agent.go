package planner

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/taskforge/internal/agent"
	"github.com/ShayCichocki/taskforge/pkg/models"
)

// AgentType is the registry type name for planner agents.
const AgentType = "planner"

// Planner sub-operations dispatched from task input.
const (
	OpDecompose    = "decompose"
	OpDependencies = "dependencies"
	OpTimeline     = "timeline"
	OpRisks        = "risks"
	OpPlan         = "plan"
)

// Capabilities lists what a planner agent offers to resource allocation.
func Capabilities() []string {
	return []string{"planning", "estimation", "analysis"}
}

// NewAgent wraps the planner in the standard execution lifecycle. The
// task's "operation" input selects the planning method; an unrecognized
// operation fails with an invalid-task-type error.
func NewAgent(p *Planner, cfg agent.CoreConfig) *agent.Core {
	cfg.Type = AgentType
	cfg.Handler = p.handle
	return agent.NewCore(cfg)
}

// handle dispatches one planning task.
func (p *Planner) handle(ctx context.Context, task *models.Task) (any, error) {
	operation, _ := task.Input["operation"].(string)
	if operation == "" {
		operation = OpPlan
	}

	description, _ := task.Input["description"].(string)
	if description == "" {
		description = task.Description
	}

	switch operation {
	case OpDecompose:
		return p.Decompose(description), nil

	case OpDependencies:
		decomposition := p.Decompose(description)
		return p.AnalyzeDependencies(decomposition.Subtasks), nil

	case OpTimeline:
		return p.EstimateTimeline(p.Decompose(description)), nil

	case OpRisks:
		decomposition := p.Decompose(description)
		graph := p.AnalyzeDependencies(decomposition.Subtasks)
		return p.AssessRisks(decomposition, graph, nil), nil

	case OpPlan:
		name, _ := task.Input["name"].(string)
		if name == "" {
			name = task.ID
		}
		agents, _ := task.Input["agents"].([]models.AgentInfo)
		return p.CreateExecutionPlan(name, description, agents, true), nil

	default:
		return nil, &models.AgentError{
			Code:    agent.CodeInvalidTaskType,
			Message: fmt.Sprintf("unknown planner operation %q", operation),
		}
	}
}
