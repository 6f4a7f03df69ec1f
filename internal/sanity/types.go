package sanity

// #region severity
// Severity grades a validation issue.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// severityWeights feed the validation score.
var severityWeights = map[Severity]float64{
	SeverityCritical: 1.0,
	SeverityError:    0.5,
	SeverityWarning:  0.2,
}

// #endregion severity

// #region issue
// Issue is a single structural problem found in a loop definition.
type Issue struct {
	IssueType         string   `json:"issue_type"`
	Severity          Severity `json:"severity"`
	Description       string   `json:"description"`
	AffectedComponent string   `json:"affected_component"`
}

// Recommendation is a suggested fix. Priority runs from 1 (most urgent) to 5.
type Recommendation struct {
	RecommendationType string `json:"recommendation_type"`
	Description        string `json:"description"`
	Priority           int    `json:"priority"`
}

// #endregion issue

// #region request
// Request describes a loop about to run.
type Request struct {
	ProjectID      string         `json:"project_id"`
	LoopID         string         `json:"loop_id"`
	PlannedAgents  []string       `json:"planned_agents"`
	ExpectedSchema map[string]any `json:"expected_schema"`
	MaxLoops       int            `json:"max_loops"`
	Context        map[string]any `json:"context,omitempty"`
}

// Result is the output of a structural validation pass.
type Result struct {
	ProjectID       string           `json:"project_id"`
	LoopID          string           `json:"loop_id"`
	Valid           bool             `json:"valid"`
	Issues          []Issue          `json:"issues"`
	Recommendations []Recommendation `json:"recommendations"`
	ValidationScore float64          `json:"validation_score"`
	Context         map[string]any   `json:"context,omitempty"`
}

// #endregion request

// #region config
// Config is the registry and rule set a Validator is built from.
type Config struct {
	RegisteredAgents []string `json:"registered_agents" mapstructure:"registered_agents" yaml:"registered_agents"`
	RequiredAgents   []string `json:"required_agents" mapstructure:"required_agents" yaml:"required_agents"`
	// ConflictingAgents lists pairs that should not be planned together.
	ConflictingAgents [][]string `json:"conflicting_agents" mapstructure:"conflicting_agents" yaml:"conflicting_agents"`
	// Templates maps template name -> section name -> field names.
	Templates      map[string]map[string][]string `json:"templates" mapstructure:"templates" yaml:"templates"`
	RequiredFields map[string][]string            `json:"required_fields" mapstructure:"required_fields" yaml:"required_fields"`

	MaxLoopsUpper          int     `json:"max_loops_upper" mapstructure:"max_loops_upper" yaml:"max_loops_upper"`
	MaxLoopsLower          int     `json:"max_loops_lower" mapstructure:"max_loops_lower" yaml:"max_loops_lower"`
	SimilarityThreshold    float64 `json:"similarity_threshold" mapstructure:"similarity_threshold" yaml:"similarity_threshold"`
	TemplateMatchThreshold float64 `json:"template_match_threshold" mapstructure:"template_match_threshold" yaml:"template_match_threshold"`
	PassThreshold          float64 `json:"pass_threshold" mapstructure:"pass_threshold" yaml:"pass_threshold"`
}

// DefaultConfig returns the stock agent registry and schema templates.
func DefaultConfig() Config {
	return Config{
		RegisteredAgents: []string{
			"ORCHESTRATOR", "CRITIC", "PESSIMIST", "OPTIMIST", "GUARDIAN",
			"HAL", "CORE_FORGE", "ASH", "SAGE", "NOVA", "HISTORIAN",
			"CEO", "CTO", "OBSERVER", "MEMORY",
		},
		RequiredAgents:    []string{"ORCHESTRATOR", "CRITIC"},
		ConflictingAgents: [][]string{{"PESSIMIST", "OPTIMIST"}},
		Templates: map[string]map[string][]string{
			"standard": {
				"input":  {"query", "context"},
				"output": {"status", "result"},
			},
			"analysis": {
				"input":  {"query", "data_source", "parameters"},
				"output": {"status", "analysis", "confidence"},
			},
			"generation": {
				"input":  {"query", "constraints"},
				"output": {"status", "content", "metadata"},
			},
		},
		RequiredFields: map[string][]string{
			"input":  {"query"},
			"output": {"status"},
		},
		MaxLoopsUpper:          10,
		MaxLoopsLower:          2,
		SimilarityThreshold:    0.6,
		TemplateMatchThreshold: 0.8,
		PassThreshold:          0.7,
	}
}

// #endregion config
