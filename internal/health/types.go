package health

// #region components
// Component names scored by the health scorer.
const (
	ComponentPlanRerouted          = "plan_rerouted"
	ComponentRequiredAgentsCalled  = "required_agents_called"
	ComponentCriticSkipped         = "critic_skipped"
	ComponentCompletedWithoutError = "completed_without_error"
)

// componentOrder fixes summation order so scores are bit-for-bit repeatable.
var componentOrder = []string{
	ComponentPlanRerouted,
	ComponentRequiredAgentsCalled,
	ComponentCriticSkipped,
	ComponentCompletedWithoutError,
}

// CriticAgent is the agent whose absence is scored separately.
const CriticAgent = "critic"

// #endregion components

// #region config
// Config holds the required agent set and per-component weights.
type Config struct {
	RequiredAgents []string           `json:"required_agents" mapstructure:"required_agents" yaml:"required_agents"`
	Weights        map[string]float64 `json:"weights" mapstructure:"weights" yaml:"weights"`
	DefaultWeight  float64            `json:"default_weight" mapstructure:"default_weight" yaml:"default_weight"`
}

// DefaultConfig returns the stock weights (0.3/0.25/0.15/0.3).
func DefaultConfig() Config {
	return Config{
		RequiredAgents: []string{"core-forge", "critic", "hal"},
		Weights: map[string]float64{
			ComponentPlanRerouted:          0.3,
			ComponentRequiredAgentsCalled:  0.25,
			ComponentCriticSkipped:         0.15,
			ComponentCompletedWithoutError: 0.3,
		},
		DefaultWeight: 0.25,
	}
}

// #endregion config
