package models

import "time"

// EstimationStrategy biases effort estimates toward optimism or pessimism.
type EstimationStrategy string

const (
	// EstimationOptimistic shrinks the likely and max estimates.
	EstimationOptimistic EstimationStrategy = "optimistic"
	// EstimationRealistic leaves the three-point estimate unscaled.
	EstimationRealistic EstimationStrategy = "realistic"
	// EstimationPessimistic inflates the likely and max estimates.
	EstimationPessimistic EstimationStrategy = "pessimistic"
)

// Valid returns true if the strategy is a known value.
func (s EstimationStrategy) Valid() bool {
	switch s {
	case EstimationOptimistic, EstimationRealistic, EstimationPessimistic:
		return true
	default:
		return false
	}
}

// EffortEstimate is a three-point PERT estimate in hours.
// Expected is (Min + 4*Likely + Max) / 6 after strategy scaling.
type EffortEstimate struct {
	// Min is the best-case effort in hours.
	Min float64 `json:"min"`
	// Likely is the most probable effort in hours.
	Likely float64 `json:"likely"`
	// Max is the worst-case effort in hours.
	Max float64 `json:"max"`
	// Expected is the PERT-weighted effort in hours.
	Expected float64 `json:"expected"`
}

// Subtask is one unit of a decomposed root task.
type Subtask struct {
	// ID is the unique identifier for this subtask.
	ID string `json:"id"`
	// Description states what this subtask accomplishes.
	Description string `json:"description"`
	// Effort is the three-point effort estimate.
	Effort EffortEstimate `json:"effort"`
	// RequiredCapabilities lists capability strings an agent must offer.
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`
	// Dependencies lists subtask IDs that must complete first.
	Dependencies []string `json:"dependencies,omitempty"`
	// Priority is the urgency of the subtask.
	Priority Priority `json:"priority"`
	// AssignedAgentType suggests the agent type for this subtask, if any.
	AssignedAgentType string `json:"assigned_agent_type,omitempty"`
}

// Decomposition is the result of breaking a root task into subtasks.
type Decomposition struct {
	// RootDescription is the original task description.
	RootDescription string `json:"root_description"`
	// Subtasks is the ordered list of produced subtasks.
	Subtasks []*Subtask `json:"subtasks"`
	// Strategy is the estimation strategy used.
	Strategy EstimationStrategy `json:"strategy"`
	// TotalHours is the sum of expected effort across subtasks.
	TotalHours float64 `json:"total_hours"`
}

// EdgeType classifies a dependency edge.
type EdgeType string

const (
	// EdgeBlocks means the source must finish before the target starts.
	EdgeBlocks EdgeType = "blocks"
	// EdgeRequires means the target declared the source as a dependency.
	EdgeRequires EdgeType = "requires"
	// EdgeSuggests means the ordering is advisory only.
	EdgeSuggests EdgeType = "suggests"
)

// Edge is a single dependency relationship between two subtasks.
type Edge struct {
	// From is the subtask that is depended upon.
	From string `json:"from"`
	// To is the subtask that depends on From.
	To string `json:"to"`
	// Type is the dependency classification.
	Type EdgeType `json:"type"`
}

// DependencyGraph is the analyzed dependency structure of a decomposition.
// When Cycles is non-empty, ExecutionOrder is best effort only and
// CriticalPath is computed on the acyclic projection of the graph.
type DependencyGraph struct {
	// Nodes maps subtask ID to its subtask.
	Nodes map[string]*Subtask `json:"nodes"`
	// Edges lists every declared dependency.
	Edges []Edge `json:"edges"`
	// CriticalPath is the maximum-duration path through the DAG.
	CriticalPath []string `json:"critical_path"`
	// Parallelizable groups subtasks that share the same earliest start.
	// Only groups with more than one member are included.
	Parallelizable [][]string `json:"parallelizable"`
	// ExecutionOrder is a topological ordering of subtask IDs.
	ExecutionOrder []string `json:"execution_order"`
	// Cycles lists each detected cycle as an ordered node sequence.
	Cycles [][]string `json:"cycles,omitempty"`
}

// Assignment pairs a subtask with the agent chosen to execute it.
type Assignment struct {
	// TaskID is the subtask being assigned.
	TaskID string `json:"task_id"`
	// AgentID is the chosen agent.
	AgentID string `json:"agent_id"`
	// AgentType is the chosen agent's type.
	AgentType string `json:"agent_type"`
	// EstimatedDurationHours is the expected effort for this assignment.
	EstimatedDurationHours float64 `json:"estimated_duration_hours"`
	// Confidence is the match confidence in [0,100].
	Confidence float64 `json:"confidence"`
}

// ResourceAllocation maps subtasks onto capability-matched agents.
// Every subtask appears in exactly one of Assignments or UnassignedTasks.
type ResourceAllocation struct {
	// Assignments lists successful subtask-to-agent pairings.
	Assignments []Assignment `json:"assignments"`
	// Utilization maps agent ID to percentage of availability consumed.
	Utilization map[string]float64 `json:"utilization"`
	// Bottlenecks lists capabilities with too few qualified agents.
	Bottlenecks []string `json:"bottlenecks,omitempty"`
	// UnassignedTasks lists subtask IDs no agent could cover.
	UnassignedTasks []string `json:"unassigned_tasks,omitempty"`
}

// Milestone marks a phase boundary in the timeline.
type Milestone struct {
	// Name labels the milestone.
	Name string `json:"name"`
	// Date is when the milestone is reached.
	Date time.Time `json:"date"`
	// RequiredTaskIDs are the subtasks gating this milestone.
	RequiredTaskIDs []string `json:"required_task_ids"`
}

// Phase is a contiguous block of work in the timeline.
type Phase struct {
	// Name labels the phase.
	Name string `json:"name"`
	// Start is the first business day of the phase.
	Start time.Time `json:"start"`
	// End is the last business day of the phase.
	End time.Time `json:"end"`
	// TaskIDs are the subtasks executed during this phase.
	TaskIDs []string `json:"task_ids"`
}

// TimelineEstimate lays a decomposition out over business days.
type TimelineEstimate struct {
	// StartDate is the first business day of the project.
	StartDate time.Time `json:"start_date"`
	// EndDate is the projected completion date, always a business day.
	EndDate time.Time `json:"end_date"`
	// TotalBusinessDays is the number of working days in the plan.
	TotalBusinessDays int `json:"total_business_days"`
	// Milestones are the phase-boundary milestones in order.
	Milestones []Milestone `json:"milestones"`
	// Phases are chronologically non-overlapping, contiguous work blocks.
	Phases []Phase `json:"phases"`
	// Confidence is the estimate confidence in [0,100].
	Confidence float64 `json:"confidence"`
	// BufferPercentage is the schedule buffer applied.
	BufferPercentage float64 `json:"buffer_percentage"`
}

// RiskLevel grades a risk's probability or impact.
type RiskLevel string

const (
	// RiskHigh is the most severe grade.
	RiskHigh RiskLevel = "high"
	// RiskMedium is the middle grade.
	RiskMedium RiskLevel = "medium"
	// RiskLow is the least severe grade.
	RiskLow RiskLevel = "low"
)

// Weight returns the numeric weight used in risk scoring.
func (l RiskLevel) Weight() float64 {
	switch l {
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// RiskCategory classifies a risk.
type RiskCategory string

const (
	// RiskTechnical covers design and implementation hazards.
	RiskTechnical RiskCategory = "technical"
	// RiskResource covers staffing and capability hazards.
	RiskResource RiskCategory = "resource"
	// RiskSchedule covers timeline hazards.
	RiskSchedule RiskCategory = "schedule"
	// RiskScope covers requirement-change hazards.
	RiskScope RiskCategory = "scope"
	// RiskExternal covers hazards outside the team's control.
	RiskExternal RiskCategory = "external"
)

// Risk is a single identified project risk.
type Risk struct {
	// ID is the unique identifier for this risk.
	ID string `json:"id"`
	// Probability grades how likely the risk is.
	Probability RiskLevel `json:"probability"`
	// Impact grades how damaging the risk would be.
	Impact RiskLevel `json:"impact"`
	// Score is Probability.Weight() * Impact.Weight().
	Score float64 `json:"score"`
	// Category classifies the risk.
	Category RiskCategory `json:"category"`
	// Description states the risk.
	Description string `json:"description"`
	// Mitigation is the preventive measure.
	Mitigation string `json:"mitigation"`
	// Contingency is the response if the risk materializes.
	Contingency string `json:"contingency"`
}

// RiskAssessment scores a plan's overall risk.
// Risks is always sorted by Score descending.
type RiskAssessment struct {
	// Risks lists identified risks, highest score first.
	Risks []Risk `json:"risks"`
	// OverallRisk bands RiskScore into high/medium/low.
	OverallRisk RiskLevel `json:"overall_risk"`
	// RiskScore is the normalized aggregate in [0,100].
	RiskScore float64 `json:"risk_score"`
	// Recommendations suggests actions to reduce risk.
	Recommendations []string `json:"recommendations,omitempty"`
}

// ExecutionPlan is the aggregate output of the full planning pipeline.
type ExecutionPlan struct {
	// ID is the generated plan identifier.
	ID string `json:"id"`
	// Name labels the plan.
	Name string `json:"name"`
	// Status is always "draft" when freshly created.
	Status string `json:"status"`
	// CreatedAt is when the plan was produced.
	CreatedAt time.Time `json:"created_at"`
	// Decomposition is the subtask breakdown.
	Decomposition *Decomposition `json:"decomposition"`
	// Dependencies is the analyzed dependency graph.
	Dependencies *DependencyGraph `json:"dependencies"`
	// Allocation maps subtasks onto agents.
	Allocation *ResourceAllocation `json:"allocation"`
	// Timeline is the business-day schedule.
	Timeline *TimelineEstimate `json:"timeline"`
	// Risks is the risk assessment, if requested.
	Risks *RiskAssessment `json:"risks,omitempty"`
}
