package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/taskforge/internal/agent"
	"github.com/ShayCichocki/taskforge/internal/bus"
	"github.com/ShayCichocki/taskforge/internal/planner"
	"github.com/ShayCichocki/taskforge/internal/trajectory"
	"github.com/ShayCichocki/taskforge/pkg/models"
)

var (
	planName    string
	planAgents  string
	planOutput  string
	planNoRisks bool
	planRecord  bool
)

var planCmd = &cobra.Command{
	Use:   "plan <description>",
	Short: "Create an execution plan from a task description",
	Long: `Decompose a task description into subtasks and produce a full
execution plan: dependency graph, resource allocation, business-day
timeline, and risk assessment.

Agents for resource allocation are read from a YAML file:

  agents:
    - id: builder-1
      type: builder
      capabilities: [api, backend]
      availability: 40`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planName, "name", "", "plan name (defaults to the description)")
	planCmd.Flags().StringVar(&planAgents, "agents", "", "YAML file listing agents for allocation")
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "", "write the plan to a .yaml or .json file")
	planCmd.Flags().BoolVar(&planNoRisks, "no-risks", false, "skip risk assessment")
	planCmd.Flags().BoolVar(&planRecord, "record", false, "record the planning run in the trajectory store")
}

func runPlan(cmd *cobra.Command, args []string) error {
	description := strings.Join(args, " ")
	name := planName
	if name == "" {
		name = description
	}

	agents, err := loadAgents(planAgents)
	if err != nil {
		return err
	}

	var recorder trajectory.Recorder = trajectory.Nop{}
	if planRecord {
		store, err := openTrajectoryStore()
		if err != nil {
			return err
		}
		defer store.Close()
		recorder = store
	}

	events := bus.New()
	p := planner.New(cfg, planner.WithEvents(events))
	instance := planner.NewAgent(p, agent.CoreConfig{
		DefaultTimeout: cfg.Execution.DefaultTimeout,
		Retry: &agent.RetryPolicy{
			MaxRetries:        cfg.Execution.MaxRetries,
			InitialDelay:      cfg.Execution.InitialDelay,
			BackoffFactor:     cfg.Execution.BackoffFactor,
			RetryablePatterns: cfg.Policies.RetryablePatterns,
		},
		Recorder: recorder,
		Hooks:    agent.LogHookInvoker{},
	})

	result := instance.Execute(context.Background(), &models.Task{
		ID:          "plan",
		Description: description,
		Priority:    models.PriorityHigh,
		Input: map[string]any{
			"operation": planner.OpPlan,
			"name":      name,
			"agents":    agents,
		},
	})
	events.Wait()

	if !result.Success {
		return fmt.Errorf("planning failed: %s (%s)", result.Error.Message, result.Error.Code)
	}
	plan := result.Data.(*models.ExecutionPlan)
	if planNoRisks {
		plan.Risks = nil
	}

	if planOutput != "" {
		return writePlan(plan, planOutput)
	}
	renderPlan(plan)
	return nil
}

// agentsFile is the on-disk agent list format.
type agentsFile struct {
	Agents []struct {
		ID               string   `yaml:"id"`
		Type             string   `yaml:"type"`
		Capabilities     []string `yaml:"capabilities"`
		Availability     float64  `yaml:"availability"`
		PerformanceScore float64  `yaml:"performance_score"`
	} `yaml:"agents"`
}

func loadAgents(path string) ([]models.AgentInfo, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agents file: %w", err)
	}
	var file agentsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse agents file: %w", err)
	}

	agents := make([]models.AgentInfo, 0, len(file.Agents))
	for _, a := range file.Agents {
		agents = append(agents, models.AgentInfo{
			ID:               a.ID,
			Type:             a.Type,
			Capabilities:     a.Capabilities,
			Availability:     a.Availability,
			PerformanceScore: a.PerformanceScore,
		})
	}
	return agents, nil
}

func openTrajectoryStore() (*trajectory.Store, error) {
	return trajectory.Open(trajectory.DefaultPath())
}

func writePlan(plan *models.ExecutionPlan, path string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(plan, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(plan)
	default:
		return fmt.Errorf("unsupported output format %q (use .yaml or .json)", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("serialize plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	fmt.Printf("%s wrote %s\n", color.GreenString("✓"), path)
	return nil
}

func renderPlan(plan *models.ExecutionPlan) {
	bold := color.New(color.Bold)

	bold.Printf("Plan: %s\n", plan.Name)
	fmt.Printf("  id: %s  status: %s  strategy: %s\n\n",
		plan.ID, plan.Status, plan.Decomposition.Strategy)

	bold.Println("Subtasks")
	for _, sub := range plan.Decomposition.Subtasks {
		deps := ""
		if len(sub.Dependencies) > 0 {
			deps = " <- " + strings.Join(sub.Dependencies, ", ")
		}
		fmt.Printf("  %-24s %6.1fh  %s%s\n",
			sub.ID, sub.Effort.Expected, priorityLabel(sub.Priority), deps)
	}
	fmt.Printf("  total: %.1fh\n\n", plan.Decomposition.TotalHours)

	if len(plan.Dependencies.Cycles) > 0 {
		color.Red("Cycles detected: %v\n", plan.Dependencies.Cycles)
	}
	bold.Println("Critical path")
	fmt.Printf("  %s\n\n", strings.Join(plan.Dependencies.CriticalPath, " -> "))

	bold.Println("Allocation")
	for _, a := range plan.Allocation.Assignments {
		fmt.Printf("  %-24s -> %s (%s) %.0f%% confidence\n",
			a.TaskID, a.AgentID, a.AgentType, a.Confidence)
	}
	for _, id := range plan.Allocation.UnassignedTasks {
		fmt.Printf("  %-24s %s\n", id, color.YellowString("unassigned"))
	}
	fmt.Println()

	bold.Println("Timeline")
	fmt.Printf("  %s -> %s (%d business days, %.0f%% buffer, %.0f%% confidence)\n",
		plan.Timeline.StartDate.Format("2006-01-02"),
		plan.Timeline.EndDate.Format("2006-01-02"),
		plan.Timeline.TotalBusinessDays,
		plan.Timeline.BufferPercentage,
		plan.Timeline.Confidence)
	for _, phase := range plan.Timeline.Phases {
		fmt.Printf("  %-10s %s -> %s  %s\n", phase.Name,
			phase.Start.Format("01-02"), phase.End.Format("01-02"),
			strings.Join(phase.TaskIDs, ", "))
	}
	fmt.Println()

	if plan.Risks != nil {
		bold.Println("Risks")
		for _, risk := range plan.Risks.Risks {
			fmt.Printf("  [%s] %-10s %.0f  %s\n",
				riskLabel(risk.Probability), risk.Category, risk.Score, risk.Description)
		}
		fmt.Printf("  overall: %s (%.0f/100)\n",
			riskLabel(plan.Risks.OverallRisk), plan.Risks.RiskScore)
	}
}

func priorityLabel(p models.Priority) string {
	switch p {
	case models.PriorityCritical:
		return color.RedString("critical")
	case models.PriorityHigh:
		return color.YellowString("high")
	case models.PriorityLow:
		return color.New(color.Faint).Sprint("low")
	default:
		return string(p)
	}
}

func riskLabel(level models.RiskLevel) string {
	switch level {
	case models.RiskHigh:
		return color.RedString("high")
	case models.RiskMedium:
		return color.YellowString("medium")
	default:
		return color.GreenString("low")
	}
}
