package planner

import (
	"strings"

	"github.com/ShayCichocki/taskforge/pkg/models"
)

// subtaskTemplate is the unscaled three-point estimate for one subtask kind.
type subtaskTemplate struct {
	id           string
	description  string
	min          float64
	likely       float64
	max          float64
	capabilities []string
	priority     models.Priority
	agentType    string
}

// Decompose breaks a free-text description into subtasks.
//
// A requirements-analysis subtask always comes first with no dependencies.
// API, authentication, database, and UI groups are added when the
// description matches the configured keyword sets. Testing, documentation,
// and review close out every decomposition, depending on the work before
// them. Keyword matching is heuristic policy, not classification: the sets
// live in configuration so deployments can tune them.
func (p *Planner) Decompose(description string) *models.Decomposition {
	lower := strings.ToLower(description)

	subtasks := []*models.Subtask{p.build(subtaskTemplate{
		id:           "requirements_analysis",
		description:  "Analyze requirements and define acceptance criteria",
		min:          2,
		likely:       4,
		max:          8,
		capabilities: []string{"analysis"},
		priority:     models.PriorityCritical,
		agentType:    "analyst",
	}, nil)}

	var implementation []string
	addImpl := func(t subtaskTemplate, deps []string) {
		subtasks = append(subtasks, p.build(t, deps))
		implementation = append(implementation, t.id)
	}

	if matchesAny(lower, p.policies.APIKeywords) {
		addImpl(subtaskTemplate{
			id:           "api_design",
			description:  "Design API endpoints and contracts",
			min:          3,
			likely:       6,
			max:          12,
			capabilities: []string{"api", "design"},
			priority:     models.PriorityHigh,
			agentType:    "architect",
		}, []string{"requirements_analysis"})
		addImpl(subtaskTemplate{
			id:           "api_implementation",
			description:  "Implement API endpoints",
			min:          6,
			likely:       12,
			max:          24,
			capabilities: []string{"api", "backend"},
			priority:     models.PriorityHigh,
			agentType:    "builder",
		}, []string{"api_design"})
	}

	if matchesAny(lower, p.policies.AuthKeywords) {
		addImpl(subtaskTemplate{
			id:           "auth_implementation",
			description:  "Implement authentication and authorization",
			min:          4,
			likely:       8,
			max:          16,
			capabilities: []string{"security", "backend"},
			priority:     models.PriorityHigh,
			agentType:    "builder",
		}, []string{"requirements_analysis"})
	}

	if matchesAny(lower, p.policies.DatabaseKeywords) {
		addImpl(subtaskTemplate{
			id:           "database_schema",
			description:  "Design database schema and migrations",
			min:          2,
			likely:       5,
			max:          10,
			capabilities: []string{"database", "design"},
			priority:     models.PriorityHigh,
			agentType:    "architect",
		}, []string{"requirements_analysis"})
		addImpl(subtaskTemplate{
			id:           "database_integration",
			description:  "Implement data access layer",
			min:          4,
			likely:       8,
			max:          16,
			capabilities: []string{"database", "backend"},
			priority:     models.PriorityMedium,
			agentType:    "builder",
		}, []string{"database_schema"})
	}

	if matchesAny(lower, p.policies.UIKeywords) {
		addImpl(subtaskTemplate{
			id:           "ui_components",
			description:  "Build user interface components",
			min:          5,
			likely:       10,
			max:          20,
			capabilities: []string{"frontend"},
			priority:     models.PriorityMedium,
			agentType:    "builder",
		}, []string{"requirements_analysis"})
	}

	// Without any matched group, testing still needs an upstream.
	if len(implementation) == 0 {
		addImpl(subtaskTemplate{
			id:           "implementation",
			description:  "Implement core functionality",
			min:          4,
			likely:       8,
			max:          16,
			capabilities: []string{"backend"},
			priority:     models.PriorityHigh,
			agentType:    "builder",
		}, []string{"requirements_analysis"})
	}

	subtasks = append(subtasks, p.build(subtaskTemplate{
		id:           "testing",
		description:  "Write and run tests against the implementation",
		min:          3,
		likely:       6,
		max:          12,
		capabilities: []string{"testing"},
		priority:     models.PriorityHigh,
		agentType:    "tester",
	}, implementation))
	subtasks = append(subtasks, p.build(subtaskTemplate{
		id:           "documentation",
		description:  "Document the delivered functionality",
		min:          1,
		likely:       3,
		max:          6,
		capabilities: []string{"documentation"},
		priority:     models.PriorityLow,
		agentType:    "writer",
	}, implementation))
	subtasks = append(subtasks, p.build(subtaskTemplate{
		id:           "review",
		description:  "Review deliverables and sign off",
		min:          1,
		likely:       2,
		max:          4,
		capabilities: []string{"review"},
		priority:     models.PriorityMedium,
		agentType:    "reviewer",
	}, []string{"testing", "documentation"}))

	total := 0.0
	for _, sub := range subtasks {
		total += sub.Effort.Expected
	}

	return &models.Decomposition{
		RootDescription: description,
		Subtasks:        subtasks,
		Strategy:        p.strategy,
		TotalHours:      total,
	}
}

// build materializes a template with strategy-scaled PERT effort.
func (p *Planner) build(t subtaskTemplate, deps []string) *models.Subtask {
	return &models.Subtask{
		ID:                   t.id,
		Description:          t.description,
		Effort:               p.estimate(t.min, t.likely, t.max),
		RequiredCapabilities: t.capabilities,
		Dependencies:         append([]string(nil), deps...),
		Priority:             t.priority,
		AssignedAgentType:    t.agentType,
	}
}

// estimate scales a three-point estimate by the configured strategy and
// computes the PERT expected value (min + 4*likely + max) / 6.
func (p *Planner) estimate(min, likely, max float64) models.EffortEstimate {
	switch p.strategy {
	case models.EstimationOptimistic:
		likely *= 0.8
		max *= 0.7
	case models.EstimationPessimistic:
		likely *= 1.3
		max *= 1.5
	}
	if likely < min {
		likely = min
	}
	if max < likely {
		max = likely
	}
	return models.EffortEstimate{
		Min:      min,
		Likely:   likely,
		Max:      max,
		Expected: (min + 4*likely + max) / 6,
	}
}

// matchesAny reports whether any keyword occurs in the lowercased text.
func matchesAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
