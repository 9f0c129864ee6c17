package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/taskforge/internal/goap"
	"github.com/ShayCichocki/taskforge/pkg/models"
)

var (
	goapCatalog string
	goapState   string
	goapExecute bool
	readyState  string
)

var goapCmd = &cobra.Command{
	Use:   "goap <goal-id>",
	Short: "Plan an action sequence toward a goal",
	Long: `Run goal-oriented action planning: load an action/goal catalog
and a world state from YAML, then search for the minimum-cost action
sequence that satisfies the goal's conditions.`,
	Args: cobra.ExactArgs(1),
	RunE: runGoap,
}

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "Score whether work described by a world state is ready to proceed",
	RunE:  runReady,
}

func init() {
	goapCmd.Flags().StringVar(&goapCatalog, "catalog", "", "YAML file with actions and goals (required)")
	goapCmd.Flags().StringVar(&goapState, "state", "", "YAML file with the start world state")
	goapCmd.Flags().BoolVar(&goapExecute, "execute", false, "execute the plan against the loaded state")
	goapCmd.MarkFlagRequired("catalog")

	readyCmd.Flags().StringVar(&readyState, "state", "", "YAML file with the world state (required)")
	readyCmd.MarkFlagRequired("state")
}

func runGoap(cmd *cobra.Command, args []string) error {
	goalID := args[0]

	p := goap.New(cfg)
	if err := p.LoadCatalog(goapCatalog); err != nil {
		return err
	}

	state := models.WorldState{}
	if goapState != "" {
		var err error
		state, err = goap.LoadState(goapState)
		if err != nil {
			return err
		}
	}

	plan := p.CreatePlan(state, goalID)
	if !plan.Achievable {
		fmt.Printf("%s goal %q is not achievable: %s\n",
			color.RedString("✗"), goalID, plan.Reason)
		return nil
	}

	if len(plan.ActionIDs) == 0 {
		fmt.Printf("%s goal %q is already satisfied\n", color.GreenString("✓"), goalID)
		return nil
	}

	fmt.Printf("%s plan for %q (cost %.1f):\n", color.GreenString("✓"), goalID, plan.TotalCost)
	for i, id := range plan.ActionIDs {
		fmt.Printf("  %d. %s\n", i+1, id)
	}

	if !goapExecute {
		return nil
	}

	execution := p.ExecutePlan(plan, state)
	if execution.Success {
		fmt.Printf("\n%s executed %d step(s)\n", color.GreenString("✓"), len(execution.CompletedSteps))
		return nil
	}
	fmt.Printf("\n%s failed at %q after %s: %s\n",
		color.RedString("✗"), execution.FailedStep,
		stepSummary(execution.CompletedSteps), execution.FailureReason)
	return nil
}

func runReady(cmd *cobra.Command, args []string) error {
	state, err := goap.LoadState(readyState)
	if err != nil {
		return err
	}

	p := goap.New(cfg)
	report := p.EvaluateReadiness(state)

	label := color.GreenString("ready")
	if !report.Ready {
		label = color.RedString("not ready")
	}
	fmt.Printf("%s (score %.2f)\n", label, report.Score)
	for _, blocker := range report.Blockers {
		fmt.Printf("  %s %s\n", color.YellowString("•"), blocker)
	}
	for _, rec := range report.Recommendations {
		fmt.Printf("  %s %s\n", color.CyanString("→"), rec)
	}
	return nil
}

func stepSummary(steps []string) string {
	if len(steps) == 0 {
		return "0 steps"
	}
	return fmt.Sprintf("%d step(s) (%s)", len(steps), strings.Join(steps, ", "))
}
