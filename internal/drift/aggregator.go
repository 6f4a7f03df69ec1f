package drift

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/loop"
)

// signal names in evaluation and recommendation order.
const (
	signalAlignment = "alignment_score"
	signalBelief    = "belief_alignment_score"
	signalHealth    = "health_score"
	signalTrust     = "trust_decay"
	signalBias      = "bias_tags"
)

var signalLabels = map[string]string{
	signalAlignment: "CEO alignment",
	signalBelief:    "belief alignment",
	signalHealth:    "loop health",
	signalTrust:     "trust decay",
	signalBias:      "response bias",
}

var moderateAdvice = map[string]string{
	signalAlignment: "Realign the plan with the CEO objective before the next loop.",
	signalBelief:    "Review historian beliefs for contradictions with the current plan.",
	signalHealth:    "Enable the CRITIC agent to catch failures earlier.",
	signalTrust:     "Run trust-building loops with narrow, verifiable tasks.",
	signalBias:      "Adjust response tone to counter the flagged bias.",
}

// #region aggregator
// Aggregator folds the most recent upstream signals for a loop into a
// single drift verdict.
type Aggregator struct {
	thresholds Thresholds
	// Now and NewID are replaceable for deterministic records.
	Now   func() time.Time
	NewID func() string
}

// NewAggregator creates an aggregator using the wall clock and random ids.
func NewAggregator(thresholds Thresholds) *Aggregator {
	return &Aggregator{
		thresholds: thresholds,
		Now:        time.Now,
		NewID:      uuid.NewString,
	}
}

// Generate classifies sig and returns the summary. A warning is returned
// only when severity is critical.
func (a *Aggregator) Generate(loopID string, sig Signals) (Summary, *Warning) {
	now := loop.FormatTime(a.Now())
	present := presentSignals(sig)
	critical := a.breached(sig, a.thresholds.Critical)
	moderate := a.breached(sig, a.thresholds.Moderate)

	severity := SeverityLow
	switch {
	case len(present) == 0:
	case ratio(critical, present) >= a.thresholds.BreachRatio:
		severity = SeverityCritical
	case ratio(moderate, present) >= a.thresholds.BreachRatio:
		severity = SeverityModerate
	}

	summary := Summary{
		LoopID:               loopID,
		DriftSeverity:        severity,
		AlignmentScore:       round(sig.Alignment),
		BeliefAlignmentScore: round(sig.BeliefAlignment),
		HealthScore:          round(sig.Health),
		TrustDecay:           round(sig.TrustDecay),
		Timestamp:            now,
	}
	if sig.Bias != nil {
		tags := append([]string{}, sig.Bias.Tags...)
		summary.BiasTags = &tags
	}

	switch {
	case len(present) == 0:
		summary.Recommendation = "Insufficient signals to assess drift; continue monitoring."
	case severity == SeverityCritical:
		summary.Recommendation = criticalAdvice(critical)
	case severity == SeverityModerate && len(moderate) > 0:
		summary.Recommendation = moderateAdvice[moderate[0]]
	default:
		summary.Recommendation = "No significant drift detected; continue routine monitoring."
	}

	if severity != SeverityCritical {
		return summary, nil
	}
	return summary, &Warning{
		WarningID:       a.NewID(),
		LoopID:          loopID,
		WarningType:     WarningSystemReset,
		Severity:        SeverityCritical,
		BreachedSignals: critical,
		Message:         fmt.Sprintf("loop %s breached critical drift thresholds on %d of %d signals", loopID, len(critical), len(present)),
		Timestamp:       now,
	}
}

// #endregion aggregator

// #region helpers
func presentSignals(sig Signals) []string {
	var out []string
	if sig.Alignment != nil {
		out = append(out, signalAlignment)
	}
	if sig.BeliefAlignment != nil {
		out = append(out, signalBelief)
	}
	if sig.Health != nil {
		out = append(out, signalHealth)
	}
	if sig.TrustDecay != nil {
		out = append(out, signalTrust)
	}
	if sig.Bias != nil {
		out = append(out, signalBias)
	}
	return out
}

// breached returns the present signals that cross band, in signal order.
func (a *Aggregator) breached(sig Signals, band Band) []string {
	var out []string
	if sig.Alignment != nil && *sig.Alignment <= band.Alignment {
		out = append(out, signalAlignment)
	}
	if sig.BeliefAlignment != nil && *sig.BeliefAlignment <= band.BeliefAlignment {
		out = append(out, signalBelief)
	}
	if sig.Health != nil && *sig.Health <= band.Health {
		out = append(out, signalHealth)
	}
	if sig.TrustDecay != nil && *sig.TrustDecay >= band.TrustDecay {
		out = append(out, signalTrust)
	}
	if sig.Bias != nil && len(sig.Bias.Tags) >= band.BiasTags {
		out = append(out, signalBias)
	}
	return out
}

func ratio(breached, present []string) float64 {
	if len(present) == 0 {
		return 0
	}
	return float64(len(breached)) / float64(len(present))
}

func criticalAdvice(breached []string) string {
	labels := make([]string, len(breached))
	for i, s := range breached {
		labels[i] = signalLabels[s]
	}
	return fmt.Sprintf("Critical drift in %s; halt execution and perform a full system reset.", strings.Join(labels, ", "))
}

func round(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return loop.Float(loop.Round2(*v))
}

// #endregion helpers
