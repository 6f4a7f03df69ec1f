package pessimist

import "github.com/danielpatrickdp/loop-governor/go-controller/internal/loop"

// #region severity
// Severity grades a risk.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityOrder fixes the order used for summation and summary counts.
var severityOrder = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

var severityWeights = map[Severity]float64{
	SeverityCritical: 1.0,
	SeverityHigh:     0.7,
	SeverityMedium:   0.4,
	SeverityLow:      0.2,
}

// #endregion severity

// #region inputs
// Component is one element of the loop's component list.
type Component struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description"`
	RiskLevel   string `json:"risk_level,omitempty"`
}

// AgentSpec is one entry of the agent map, keyed by agent name.
type AgentSpec struct {
	Role         string   `json:"role"`
	Dependencies []string `json:"dependencies,omitempty"`
	Priority     *int     `json:"priority,omitempty"`
}

// Request is everything the evaluator inspects before a loop runs.
type Request struct {
	ProjectID  string               `json:"project_id"`
	LoopID     string               `json:"loop_id"`
	Plan       loop.Plan            `json:"loop_plan"`
	Components []Component          `json:"component_list"`
	AgentMap   map[string]AgentSpec `json:"agent_map"`
}

// #endregion inputs

// #region outputs
// Risk is a single pre-run hazard.
type Risk struct {
	RiskID                string   `json:"risk_id"`
	RiskType              string   `json:"risk_type"`
	Severity              Severity `json:"severity"`
	Description           string   `json:"description"`
	AffectedElements      []string `json:"affected_elements"`
	MitigationSuggestions []string `json:"mitigation_suggestions"`
}

// RecommendedChange is a concrete edit the pessimist proposes.
type RecommendedChange struct {
	ChangeID         string   `json:"change_id"`
	ChangeType       string   `json:"change_type"`
	Priority         int      `json:"priority"`
	Description      string   `json:"description"`
	AffectedElements []string `json:"affected_elements"`
	ExpectedImpact   string   `json:"expected_impact"`
}

// Result is the pessimist's verdict on a loop plan.
type Result struct {
	ProjectID          string              `json:"project_id"`
	LoopID             string              `json:"loop_id"`
	ConfidenceScore    float64             `json:"confidence_score"`
	Approved           bool                `json:"approved"`
	Risks              []Risk              `json:"risks"`
	RecommendedChanges []RecommendedChange `json:"recommended_changes"`
	EvaluationSummary  string              `json:"evaluation_summary"`
}

// #endregion outputs

// #region config
// Config holds the evaluator's thresholds.
type Config struct {
	CriticalAgents []string `json:"critical_agents" mapstructure:"critical_agents" yaml:"critical_agents"`
	GuardianAgent  string   `json:"guardian_agent" mapstructure:"guardian_agent" yaml:"guardian_agent"`

	MaxIterationsUpper int `json:"max_iterations_upper" mapstructure:"max_iterations_upper" yaml:"max_iterations_upper"`
	TimeoutUpper       int `json:"timeout_upper" mapstructure:"timeout_upper" yaml:"timeout_upper"`

	// RiskBudget is the weighted risk total at which confidence reaches zero.
	RiskBudget        float64 `json:"risk_budget" mapstructure:"risk_budget" yaml:"risk_budget"`
	ApprovalThreshold float64 `json:"approval_threshold" mapstructure:"approval_threshold" yaml:"approval_threshold"`
	HighConfidence    float64 `json:"high_confidence" mapstructure:"high_confidence" yaml:"high_confidence"`
}

// DefaultConfig returns the default risk rules and approval threshold.
func DefaultConfig() Config {
	return Config{
		CriticalAgents:     []string{"ORCHESTRATOR", "CRITIC"},
		GuardianAgent:      "GUARDIAN",
		MaxIterationsUpper: 10,
		TimeoutUpper:       600,
		RiskBudget:         5,
		ApprovalThreshold:  0.6,
		HighConfidence:     0.8,
	}
}

// #endregion config
