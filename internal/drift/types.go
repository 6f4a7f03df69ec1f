package drift

// #region severity
// Severity is the aggregate drift verdict for a loop.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityCritical Severity = "critical"
)

// #endregion severity

// #region signals
// BiasSignal carries the tags raised by the most recent pessimist review.
type BiasSignal struct {
	Tags []string `json:"bias_tags"`
}

// Signals are the upstream readings for one loop. A nil field means the
// signal was never recorded and is excluded from the breach ratio.
type Signals struct {
	Alignment       *float64    `json:"alignment_score,omitempty"`
	BeliefAlignment *float64    `json:"belief_alignment_score,omitempty"`
	Health          *float64    `json:"health_score,omitempty"`
	TrustDecay      *float64    `json:"trust_decay,omitempty"`
	Bias            *BiasSignal `json:"bias,omitempty"`
}

// #endregion signals

// #region records
// Summary is the drift record emitted for a loop.
type Summary struct {
	LoopID               string   `json:"loop_id"`
	DriftSeverity        Severity `json:"drift_severity"`
	AlignmentScore       *float64 `json:"alignment_score,omitempty"`
	BeliefAlignmentScore *float64 `json:"belief_alignment_score,omitempty"`
	HealthScore          *float64 `json:"health_score,omitempty"`
	TrustDecay           *float64 `json:"trust_decay,omitempty"`
	// BiasTags is nil when no bias review exists and points to a possibly
	// empty list when one does.
	BiasTags       *[]string `json:"bias_tags,omitempty"`
	Recommendation string    `json:"recommendation"`
	Timestamp      string    `json:"timestamp"`
}

// Warning is the escalation record emitted alongside a critical summary.
type Warning struct {
	WarningID       string   `json:"warning_id"`
	LoopID          string   `json:"loop_id"`
	WarningType     string   `json:"warning_type"`
	Severity        Severity `json:"severity"`
	BreachedSignals []string `json:"breached_signals"`
	Message         string   `json:"message"`
	Timestamp       string   `json:"timestamp"`
}

// WarningSystemReset is the only warning type the aggregator emits.
const WarningSystemReset = "system_reset"

// #endregion records

// #region config
// Band is one set of breach thresholds. Scores breach at or below their
// threshold, trust decay at or above, bias at or above the tag count.
type Band struct {
	Alignment       float64 `json:"alignment" mapstructure:"alignment" yaml:"alignment"`
	BeliefAlignment float64 `json:"belief_alignment" mapstructure:"belief_alignment" yaml:"belief_alignment"`
	Health          float64 `json:"health" mapstructure:"health" yaml:"health"`
	TrustDecay      float64 `json:"trust_decay" mapstructure:"trust_decay" yaml:"trust_decay"`
	BiasTags        int     `json:"bias_tags" mapstructure:"bias_tags" yaml:"bias_tags"`
}

// Thresholds configures the aggregator.
type Thresholds struct {
	Critical Band `json:"critical" mapstructure:"critical" yaml:"critical"`
	Moderate Band `json:"moderate" mapstructure:"moderate" yaml:"moderate"`
	// BreachRatio is the share of present signals that must breach a band.
	BreachRatio float64 `json:"breach_ratio" mapstructure:"breach_ratio" yaml:"breach_ratio"`
}

// DefaultThresholds returns the standard critical and moderate bands.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Critical:    Band{Alignment: 0.4, BeliefAlignment: 0.4, Health: 0.5, TrustDecay: 0.2, BiasTags: 2},
		Moderate:    Band{Alignment: 0.6, BeliefAlignment: 0.6, Health: 0.7, TrustDecay: 0.1, BiasTags: 1},
		BreachRatio: 0.5,
	}
}

// #endregion config
