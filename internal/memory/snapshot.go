package memory

import (
	"encoding/json"
	"fmt"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/drift"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/pessimist"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/report"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/sanity"
)

// #region snapshot
// Snapshot is an immutable view of stored records in append order. The
// With methods return a new snapshot and leave the receiver untouched.
type Snapshot struct {
	Reports   []report.CTOReport
	CEO       []CEOReview
	Historian []HistorianReview
	Pessimist []PessimistReview
	Sanity    []sanity.Result
	Risks     []pessimist.Result
	Drift     []drift.Summary
	Warnings  []drift.Warning
	Errors    []ErrorRecord
}

func appendCopy[T any](items []T, v T) []T {
	out := make([]T, len(items), len(items)+1)
	copy(out, items)
	return append(out, v)
}

// WithReport returns a copy of s with r appended.
func (s Snapshot) WithReport(r report.CTOReport) Snapshot {
	s.Reports = appendCopy(s.Reports, r)
	return s
}

// WithCEO returns a copy of s with r appended.
func (s Snapshot) WithCEO(r CEOReview) Snapshot {
	s.CEO = appendCopy(s.CEO, r)
	return s
}

// WithHistorian returns a copy of s with r appended.
func (s Snapshot) WithHistorian(r HistorianReview) Snapshot {
	s.Historian = appendCopy(s.Historian, r)
	return s
}

// WithPessimist returns a copy of s with r appended.
func (s Snapshot) WithPessimist(r PessimistReview) Snapshot {
	s.Pessimist = appendCopy(s.Pessimist, r)
	return s
}

// WithSanity returns a copy of s with r appended.
func (s Snapshot) WithSanity(r sanity.Result) Snapshot {
	s.Sanity = appendCopy(s.Sanity, r)
	return s
}

// WithRisk returns a copy of s with r appended.
func (s Snapshot) WithRisk(r pessimist.Result) Snapshot {
	s.Risks = appendCopy(s.Risks, r)
	return s
}

// WithDrift returns a copy of s with d appended.
func (s Snapshot) WithDrift(d drift.Summary) Snapshot {
	s.Drift = appendCopy(s.Drift, d)
	return s
}

// WithWarning returns a copy of s with w appended.
func (s Snapshot) WithWarning(w drift.Warning) Snapshot {
	s.Warnings = appendCopy(s.Warnings, w)
	return s
}

// WithError returns a copy of s with e appended.
func (s Snapshot) WithError(e ErrorRecord) Snapshot {
	s.Errors = appendCopy(s.Errors, e)
	return s
}

// #endregion snapshot

// #region apply
// Apply decodes rec by kind and returns a snapshot that includes it.
func (s Snapshot) Apply(rec Record) (Snapshot, error) {
	var err error
	switch rec.Kind {
	case KindCTOReport:
		var v report.CTOReport
		if err = json.Unmarshal(rec.Payload, &v); err == nil {
			s = s.WithReport(v)
		}
	case KindCEOReview:
		var v CEOReview
		if err = json.Unmarshal(rec.Payload, &v); err == nil {
			s = s.WithCEO(v)
		}
	case KindHistorianReview:
		var v HistorianReview
		if err = json.Unmarshal(rec.Payload, &v); err == nil {
			s = s.WithHistorian(v)
		}
	case KindPessimistReview:
		var v PessimistReview
		if err = json.Unmarshal(rec.Payload, &v); err == nil {
			s = s.WithPessimist(v)
		}
	case KindSanityResult:
		var v sanity.Result
		if err = json.Unmarshal(rec.Payload, &v); err == nil {
			s = s.WithSanity(v)
		}
	case KindRiskEvaluation:
		var v pessimist.Result
		if err = json.Unmarshal(rec.Payload, &v); err == nil {
			s = s.WithRisk(v)
		}
	case KindDriftSummary:
		var v drift.Summary
		if err = json.Unmarshal(rec.Payload, &v); err == nil {
			s = s.WithDrift(v)
		}
	case KindWarning:
		var v drift.Warning
		if err = json.Unmarshal(rec.Payload, &v); err == nil {
			s = s.WithWarning(v)
		}
	case KindError:
		var v ErrorRecord
		if err = json.Unmarshal(rec.Payload, &v); err == nil {
			s = s.WithError(v)
		}
	default:
		return s, fmt.Errorf("unknown record kind %q", rec.Kind)
	}
	if err != nil {
		return s, fmt.Errorf("decode %s %s: %w", rec.Kind, rec.ID, err)
	}
	return s, nil
}

// #endregion apply

// #region signals
// Signals collects the most recent reading of each drift input for loopID.
// Kinds with no record for the loop stay nil.
func (s Snapshot) Signals(loopID string) drift.Signals {
	var sig drift.Signals
	if r, ok := last(s.CEO, func(r CEOReview) bool { return r.LoopID == loopID }); ok {
		sig.Alignment = &r.AlignmentScore
	}
	if r, ok := last(s.Historian, func(r HistorianReview) bool { return r.LoopID == loopID }); ok {
		sig.BeliefAlignment = &r.BeliefAlignmentScore
	}
	if r, ok := last(s.Reports, func(r report.CTOReport) bool { return r.LoopID == loopID }); ok {
		sig.Health = &r.HealthScore
		sig.TrustDecay = &r.TrustDecay
	}
	if r, ok := last(s.Pessimist, func(r PessimistReview) bool { return r.LoopID == loopID }); ok {
		sig.Bias = &drift.BiasSignal{Tags: append([]string(nil), r.BiasTags...)}
	}
	return sig
}

func last[T any](items []T, match func(T) bool) (T, bool) {
	for i := len(items) - 1; i >= 0; i-- {
		if match(items[i]) {
			return items[i], true
		}
	}
	var zero T
	return zero, false
}

// #endregion signals
