package pessimist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/graph"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/loop"
)

// #region evaluator
// Evaluator inspects a loop plan, its components and its agent map before
// the loop is allowed to run.
type Evaluator struct {
	config Config
}

// NewEvaluator creates a risk evaluator. CriticalAgents is copied.
func NewEvaluator(config Config) *Evaluator {
	config.CriticalAgents = append([]string(nil), config.CriticalAgents...)
	return &Evaluator{config: config}
}

// findings accumulates risks and changes with positional ids.
type findings struct {
	risks   []Risk
	changes []RecommendedChange
}

func (f *findings) risk(riskType string, sev Severity, desc string, affected []string, mitigations ...string) {
	f.risks = append(f.risks, Risk{
		RiskID:                fmt.Sprintf("risk-%d", len(f.risks)+1),
		RiskType:              riskType,
		Severity:              sev,
		Description:           desc,
		AffectedElements:      nonNil(affected),
		MitigationSuggestions: nonNil(mitigations),
	})
}

func (f *findings) change(changeType string, priority int, desc string, affected []string, impact string) {
	f.changes = append(f.changes, RecommendedChange{
		ChangeID:         fmt.Sprintf("change-%d", len(f.changes)+1),
		ChangeType:       changeType,
		Priority:         priority,
		Description:      desc,
		AffectedElements: nonNil(affected),
		ExpectedImpact:   impact,
	})
}

// Evaluate runs the plan, component and agent-map checks and returns the verdict.
func (e *Evaluator) Evaluate(req Request) Result {
	f := &findings{}
	e.checkPlan(f, req.Plan)
	e.checkComponents(f, req.Components)
	e.checkAgentMap(f, req.AgentMap)

	confidence := e.Confidence(f.risks)
	approved := confidence >= e.config.ApprovalThreshold

	risks := f.risks
	if risks == nil {
		risks = []Risk{}
	}
	changes := f.changes
	if changes == nil {
		changes = []RecommendedChange{}
	}
	return Result{
		ProjectID:          req.ProjectID,
		LoopID:             req.LoopID,
		ConfidenceScore:    confidence,
		Approved:           approved,
		Risks:              risks,
		RecommendedChanges: changes,
		EvaluationSummary:  e.summarize(confidence, approved, risks, len(changes)),
	}
}

// Confidence returns 1 - min(1, total risk weight / RiskBudget).
func (e *Evaluator) Confidence(risks []Risk) float64 {
	counts := countBySeverity(risks)
	var total float64
	for _, sev := range severityOrder {
		total += float64(counts[sev]) * severityWeights[sev]
	}
	budget := e.config.RiskBudget
	if budget <= 0 {
		budget = DefaultConfig().RiskBudget
	}
	return loop.Clamp(1 - total/budget)
}

// #endregion evaluator

// #region plan-checks
func (e *Evaluator) checkPlan(f *findings, plan loop.Plan) {
	if len(plan.Steps) == 0 {
		f.risk("empty_plan", SeverityCritical, "loop plan has no steps", []string{"plan"},
			"define at least one step with an agent and an action")
	}

	var outOfOrder []string
	for i, s := range plan.Steps {
		if !s.Bare && s.ID != i+1 {
			outOfOrder = append(outOfOrder, fmt.Sprintf("step-%d", s.ID))
		}
	}
	if len(outOfOrder) > 0 {
		f.risk("non_sequential_steps", SeverityMedium,
			"plan step ids are not sequential from 1", outOfOrder,
			"renumber steps 1..n in execution order")
	}

	for i, s := range plan.Steps {
		var missing []string
		if strings.TrimSpace(s.Agent) == "" {
			missing = append(missing, "agent")
		}
		if strings.TrimSpace(s.Action) == "" {
			missing = append(missing, "action")
		}
		if len(missing) == 0 {
			continue
		}
		name := fmt.Sprintf("step-%d", i+1)
		f.risk("incomplete_step", SeverityHigh,
			fmt.Sprintf("%s is missing %s", name, strings.Join(missing, " and ")),
			[]string{name}, "assign an owning agent and an explicit action")
	}

	switch {
	case plan.MaxIterations == nil:
		f.risk("missing_max_iterations", SeverityMedium, "plan sets no max_iterations bound",
			[]string{"max_iterations"}, fmt.Sprintf("set max_iterations to %d or fewer", e.config.MaxIterationsUpper))
	case *plan.MaxIterations > e.config.MaxIterationsUpper:
		f.risk("excessive_max_iterations", SeverityLow,
			fmt.Sprintf("max_iterations %d exceeds %d", *plan.MaxIterations, e.config.MaxIterationsUpper),
			[]string{"max_iterations"}, "lower max_iterations")
	}

	switch {
	case plan.TimeoutSeconds == nil:
		f.risk("missing_timeout", SeverityMedium, "plan sets no timeout",
			[]string{"timeout_seconds"}, fmt.Sprintf("set timeout_seconds to %d or fewer", e.config.TimeoutUpper))
	case *plan.TimeoutSeconds > e.config.TimeoutUpper:
		f.risk("excessive_timeout", SeverityLow,
			fmt.Sprintf("timeout %ds exceeds %ds", *plan.TimeoutSeconds, e.config.TimeoutUpper),
			[]string{"timeout_seconds"}, "lower timeout_seconds")
	}
}

// #endregion plan-checks

// #region component-checks
func (e *Evaluator) checkComponents(f *findings, components []Component) {
	counts := make(map[string]int)
	var order []string
	for _, c := range components {
		if counts[c.ID] == 0 {
			order = append(order, c.ID)
		}
		counts[c.ID]++
	}

	for _, c := range components {
		if !strings.EqualFold(strings.TrimSpace(c.RiskLevel), "high") {
			continue
		}
		f.risk("high_risk_component", SeverityHigh,
			fmt.Sprintf("component %s is marked high risk", c.ID),
			[]string{c.ID}, "add a fallback path", "gate the component behind a critic review")
		f.change("add_fallback", 1,
			fmt.Sprintf("add a fallback mechanism for component %s", c.ID),
			[]string{c.ID}, "loop can recover when the component fails")
	}

	for _, id := range order {
		if counts[id] > 1 {
			f.risk("duplicate_component", SeverityMedium,
				fmt.Sprintf("component id %q appears %d times", id, counts[id]),
				[]string{id}, "give every component a unique id")
		}
	}

	for _, c := range components {
		if strings.TrimSpace(c.Description) == "" {
			f.risk("missing_description", SeverityLow,
				fmt.Sprintf("component %s has no description", c.ID),
				[]string{c.ID}, "describe what the component does")
		}
	}
}

// #endregion component-checks

// #region agent-checks
func (e *Evaluator) checkAgentMap(f *findings, agents map[string]AgentSpec) {
	names := make([]string, 0, len(agents))
	specs := make(map[string]AgentSpec, len(agents))
	for name, spec := range agents {
		n := normalize(name)
		if _, ok := specs[n]; !ok {
			names = append(names, n)
		}
		specs[n] = spec
	}
	sort.Strings(names)

	g := graph.New()
	for _, n := range names {
		g.AddNode(n)
		for _, dep := range specs[n].Dependencies {
			if d := normalize(dep); d != "" {
				g.AddEdge(n, d)
			}
		}
	}

	reverse := g.Reverse()
	for _, crit := range e.config.CriticalAgents {
		c := normalize(crit)
		if _, ok := specs[c]; ok {
			continue
		}
		affected := append([]string{c}, reverse.Walk(c, 0)...)
		f.risk("missing_critical_agent", SeverityHigh,
			fmt.Sprintf("critical agent %s is not in the agent map", c),
			affected, fmt.Sprintf("add %s to the agent map", c))
		f.change("add_agent", 1, fmt.Sprintf("add %s to the agent map", c),
			[]string{c}, "restores required oversight")
	}

	for _, cycle := range g.Cycles() {
		f.risk("circular_dependency", SeverityCritical,
			fmt.Sprintf("circular dependency: %s", cycle),
			[]string(cycle), "break the cycle by removing one dependency edge")
	}

	roles := make(map[string][]string)
	var roleOrder []string
	for _, n := range names {
		role := strings.ToLower(strings.TrimSpace(specs[n].Role))
		if role == "" {
			continue
		}
		if _, ok := roles[role]; !ok {
			roleOrder = append(roleOrder, role)
		}
		roles[role] = append(roles[role], n)
	}
	for _, role := range roleOrder {
		if holders := roles[role]; len(holders) > 1 {
			f.risk("duplicate_role", SeverityMedium,
				fmt.Sprintf("role %q is assigned to %s", role, strings.Join(holders, ", ")),
				holders, "assign each role to a single agent")
		}
	}

	for _, n := range names {
		if specs[n].Priority == nil {
			f.risk("missing_priority", SeverityLow,
				fmt.Sprintf("agent %s has no priority", n),
				[]string{n}, "set an explicit priority")
		}
	}

	if guardian := normalize(e.config.GuardianAgent); guardian != "" {
		if _, ok := specs[guardian]; !ok {
			f.change("add_guardian", 3, fmt.Sprintf("add a %s agent to police tool use", guardian),
				[]string{guardian}, "unsafe actions are blocked before execution")
		}
	}
}

// #endregion agent-checks

// #region helpers
func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func countBySeverity(risks []Risk) map[Severity]int {
	counts := make(map[Severity]int, len(severityOrder))
	for _, r := range risks {
		counts[r.Severity]++
	}
	return counts
}

// #endregion helpers
