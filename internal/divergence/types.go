package divergence

// #region config
// Config holds the weights used to combine term and action divergence.
type Config struct {
	KeyTermsWeight    float64 `json:"key_terms_weight" mapstructure:"key_terms_weight" yaml:"key_terms_weight"`
	ActionStepsWeight float64 `json:"action_steps_weight" mapstructure:"action_steps_weight" yaml:"action_steps_weight"`
	MinTermLength     int     `json:"min_term_length" mapstructure:"min_term_length" yaml:"min_term_length"`
}

// DefaultConfig returns the stock 0.6/0.4 weighting.
func DefaultConfig() Config {
	return Config{
		KeyTermsWeight:    0.6,
		ActionStepsWeight: 0.4,
		MinTermLength:     4,
	}
}

// #endregion config

// #region breakdown
// Breakdown exposes the intermediate values behind a divergence score.
type Breakdown struct {
	PlanTerms        int     `json:"plan_terms"`
	SummaryTerms     int     `json:"summary_terms"`
	Overlap          int     `json:"overlap"`
	PlanCoverage     float64 `json:"plan_coverage"`
	JaccardDistance  float64 `json:"jaccard_distance"`
	TermDivergence   float64 `json:"term_divergence"`
	PlanActions      int     `json:"plan_actions"`
	MatchedActions   int     `json:"matched_actions"`
	ActionDivergence float64 `json:"action_divergence"`
	Divergence       float64 `json:"divergence"`
}

// #endregion breakdown
