package goap

import (
	"errors"
	"testing"

	"github.com/ShayCichocki/taskforge/pkg/models"
)

func TestExecutePlanRunsToCompletion(t *testing.T) {
	p := newPlanner()
	buildWorld(p)

	plan := p.CreatePlan(models.WorldState{}, "shippable")
	execution := p.ExecutePlan(plan, models.WorldState{})

	if !execution.Success {
		t.Fatalf("expected success, got failure at %q: %s", execution.FailedStep, execution.FailureReason)
	}
	if len(execution.CompletedSteps) != 3 {
		t.Errorf("expected 3 completed steps, got %v", execution.CompletedSteps)
	}
	if execution.State["tests_passed"] != true {
		t.Errorf("expected effects applied, got %v", execution.State)
	}
}

func TestExecutePlanLivePreconditionFailure(t *testing.T) {
	p := newPlanner()
	buildWorld(p)

	plan := p.CreatePlan(models.WorldState{"sources_present": true}, "shippable")
	if !plan.Achievable {
		t.Fatalf("setup: %q", plan.Reason)
	}

	// The live state lost the fact the plan was built on.
	execution := p.ExecutePlan(plan, models.WorldState{})
	if execution.Success {
		t.Fatal("expected failure when live preconditions no longer hold")
	}
	if execution.FailedStep != "compile" {
		t.Errorf("expected compile to fail, got %q", execution.FailedStep)
	}
	if execution.FailureReason == "" {
		t.Error("expected a failure reason")
	}
}

func TestExecutePlanReportsPrefix(t *testing.T) {
	p := newPlanner()
	p.RegisterAction(&models.GOAPAction{
		ID:      "step_one",
		Cost:    1,
		Effects: models.WorldState{"one_done": true},
	})
	p.RegisterAction(&models.GOAPAction{
		ID:            "step_two",
		Cost:          1,
		Preconditions: models.WorldState{"one_done": true},
		Effects:       models.WorldState{"two_done": true},
		Execute: func(state models.WorldState) error {
			return errors.New("downstream service rejected the request")
		},
	})
	p.RegisterGoal(&models.GOAPGoal{
		ID:         "both",
		Conditions: models.WorldState{"two_done": true},
	})

	plan := p.CreatePlan(models.WorldState{}, "both")
	execution := p.ExecutePlan(plan, models.WorldState{})

	if execution.Success {
		t.Fatal("expected failure from the execution hook")
	}
	if len(execution.CompletedSteps) != 1 || execution.CompletedSteps[0] != "step_one" {
		t.Errorf("expected completed prefix [step_one], got %v", execution.CompletedSteps)
	}
	if execution.FailedStep != "step_two" {
		t.Errorf("expected step_two as failed step, got %q", execution.FailedStep)
	}
	// No rollback: step_one's effects remain in the reported state.
	if execution.State["one_done"] != true {
		t.Error("expected prior effects preserved at failure")
	}
}

func TestExecutePlanPanickingHook(t *testing.T) {
	p := newPlanner()
	p.RegisterAction(&models.GOAPAction{
		ID:      "volatile",
		Cost:    1,
		Effects: models.WorldState{"done": true},
		Execute: func(state models.WorldState) error {
			panic("hook exploded")
		},
	})
	p.RegisterGoal(&models.GOAPGoal{
		ID:         "done_goal",
		Conditions: models.WorldState{"done": true},
	})

	plan := p.CreatePlan(models.WorldState{}, "done_goal")
	execution := p.ExecutePlan(plan, models.WorldState{})

	if execution.Success {
		t.Fatal("expected failure from panicking hook")
	}
	if execution.FailedStep != "volatile" {
		t.Errorf("expected volatile as failed step, got %q", execution.FailedStep)
	}
}

func TestExecutePlanUnachievable(t *testing.T) {
	p := newPlanner()
	execution := p.ExecutePlan(&models.GOAPPlan{Achievable: false}, models.WorldState{})
	if execution.Success {
		t.Fatal("expected failure for unachievable plan")
	}
	if execution.FailureReason == "" {
		t.Error("expected a failure reason")
	}
}

func TestExecutePlanDoesNotMutateInput(t *testing.T) {
	p := newPlanner()
	buildWorld(p)

	plan := p.CreatePlan(models.WorldState{}, "shippable")
	live := models.WorldState{"observer": true}
	p.ExecutePlan(plan, live)

	if len(live) != 1 {
		t.Errorf("input state mutated: %v", live)
	}
}
