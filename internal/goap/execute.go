package goap

import (
	"fmt"

	"github.com/ShayCichocki/taskforge/pkg/models"
)

// ExecutePlan walks a plan's actions in order against live state.
//
// Preconditions are re-checked against the current state before every
// step, since external mutation between planning and execution is
// expected. A failed precondition or execution hook stops the run and
// reports the completed prefix plus the failing step; completed steps
// are not rolled back.
func (p *Planner) ExecutePlan(plan *models.GOAPPlan, state models.WorldState) *models.PlanExecution {
	execution := &models.PlanExecution{
		CompletedSteps: []string{},
		State:          state.Clone(),
	}

	if plan == nil || !plan.Achievable {
		execution.FailureReason = "plan is not achievable"
		return execution
	}

	for _, actionID := range plan.ActionIDs {
		action, ok := p.Action(actionID)
		if !ok {
			execution.FailedStep = actionID
			execution.FailureReason = fmt.Sprintf("action %q is no longer registered", actionID)
			return execution
		}

		if !satisfied(action.Preconditions, execution.State) {
			execution.FailedStep = actionID
			execution.FailureReason = fmt.Sprintf("preconditions for %q no longer hold", actionID)
			return execution
		}

		if action.Execute != nil {
			if err := runStep(action, execution.State); err != nil {
				execution.FailedStep = actionID
				execution.FailureReason = err.Error()
				return execution
			}
		}

		execution.State = apply(execution.State, action.Effects)
		execution.CompletedSteps = append(execution.CompletedSteps, actionID)
	}

	execution.Success = true
	return execution
}

// runStep invokes an action's execution hook, converting panics to errors
// so one misbehaving hook cannot take the whole run down.
func runStep(action *models.GOAPAction, state models.WorldState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action %q panicked: %v", action.ID, r)
		}
	}()
	return action.Execute(state)
}
