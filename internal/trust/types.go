package trust

// #region config
// Config holds the sliding window size for failure rates and decay.
type Config struct {
	WindowSize int `json:"window_size" mapstructure:"window_size" yaml:"window_size"`
}

// DefaultConfig returns a window of the ten most recent entries.
func DefaultConfig() Config {
	return Config{WindowSize: 10}
}

// #endregion config

// #region result
// Result is the output of a trust-decay pass over an agent log trace.
type Result struct {
	AgentFailureRate  map[string]float64 `json:"agent_failure_rate"`
	AvgLoopTrustDecay float64            `json:"avg_loop_trust_decay"`
}

// #endregion result
