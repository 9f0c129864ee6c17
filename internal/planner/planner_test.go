package planner

import (
	"context"
	"testing"

	"github.com/ShayCichocki/taskforge/internal/agent"
	"github.com/ShayCichocki/taskforge/pkg/models"
)

func TestCreateExecutionPlan(t *testing.T) {
	p := clockedPlanner(models.EstimationRealistic)
	agents := []models.AgentInfo{
		{ID: "builder-1", Type: "builder", Capabilities: []string{"api", "backend", "security", "database"}, Availability: 80},
		{ID: "tester-1", Type: "tester", Capabilities: []string{"testing", "review"}, Availability: 40},
		{ID: "analyst-1", Type: "analyst", Capabilities: []string{"analysis", "design", "documentation"}, Availability: 40},
	}

	plan := p.CreateExecutionPlan("api-project", "Build a REST API with authentication", agents, true)

	if plan.ID == "" {
		t.Error("expected a generated plan id")
	}
	if plan.Status != "draft" {
		t.Errorf("expected status draft, got %s", plan.Status)
	}
	if plan.Decomposition == nil || plan.Dependencies == nil || plan.Allocation == nil || plan.Timeline == nil {
		t.Fatal("expected all pipeline stages populated")
	}
	if plan.Risks == nil {
		t.Fatal("expected a risk assessment")
	}
	if len(plan.Dependencies.Cycles) != 0 {
		t.Errorf("decomposition produced cycles: %v", plan.Dependencies.Cycles)
	}

	total := len(plan.Allocation.Assignments) + len(plan.Allocation.UnassignedTasks)
	if total != len(plan.Decomposition.Subtasks) {
		t.Errorf("allocation covers %d subtasks, decomposition has %d",
			total, len(plan.Decomposition.Subtasks))
	}
}

func TestCreateExecutionPlanWithoutRisks(t *testing.T) {
	p := clockedPlanner(models.EstimationRealistic)
	plan := p.CreateExecutionPlan("quick", "write a utility", nil, false)
	if plan.Risks != nil {
		t.Error("expected no risk assessment when not requested")
	}
}

func TestPlannerAgentDispatch(t *testing.T) {
	p := clockedPlanner(models.EstimationRealistic)
	instance := NewAgent(p, agent.CoreConfig{ID: "planner-1"})

	result := instance.Execute(context.Background(), &models.Task{
		ID:          "t1",
		Description: "Build a REST API",
		Input:       map[string]any{"operation": OpDecompose},
	})
	if !result.Success {
		t.Fatalf("decompose failed: %+v", result.Error)
	}
	decomposition, ok := result.Data.(*models.Decomposition)
	if !ok {
		t.Fatalf("expected *models.Decomposition, got %T", result.Data)
	}
	if len(decomposition.Subtasks) == 0 {
		t.Error("expected subtasks in result data")
	}
}

func TestPlannerAgentUnknownOperation(t *testing.T) {
	p := clockedPlanner(models.EstimationRealistic)
	instance := NewAgent(p, agent.CoreConfig{ID: "planner-1"})

	result := instance.Execute(context.Background(), &models.Task{
		ID:          "t1",
		Description: "anything",
		Input:       map[string]any{"operation": "divinate"},
	})
	if result.Success {
		t.Fatal("expected failure for unknown operation")
	}
	if result.Error == nil || result.Error.Code != agent.CodeInvalidTaskType {
		t.Errorf("expected %s, got %+v", agent.CodeInvalidTaskType, result.Error)
	}
}

func TestPlannerAgentDefaultsToFullPlan(t *testing.T) {
	p := clockedPlanner(models.EstimationRealistic)
	instance := NewAgent(p, agent.CoreConfig{ID: "planner-1"})

	result := instance.Execute(context.Background(), &models.Task{
		ID:          "t2",
		Description: "Build a REST API with a database",
	})
	if !result.Success {
		t.Fatalf("plan failed: %+v", result.Error)
	}
	plan, ok := result.Data.(*models.ExecutionPlan)
	if !ok {
		t.Fatalf("expected *models.ExecutionPlan, got %T", result.Data)
	}
	if plan.Status != "draft" {
		t.Errorf("expected draft plan, got %s", plan.Status)
	}
}
