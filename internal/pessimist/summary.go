package pessimist

import (
	"fmt"
	"strings"
)

// summarize renders the one-paragraph verdict attached to every result.
func (e *Evaluator) summarize(confidence float64, approved bool, risks []Risk, changes int) string {
	band := "low"
	switch {
	case confidence >= e.config.HighConfidence:
		band = "high"
	case confidence >= e.config.ApprovalThreshold:
		band = "medium"
	}
	verdict := "rejected"
	if approved {
		verdict = "approved"
	}

	counts := countBySeverity(risks)
	parts := make([]string, 0, len(severityOrder))
	for _, sev := range severityOrder {
		parts = append(parts, fmt.Sprintf("%d %s", counts[sev], sev))
	}

	return fmt.Sprintf("Confidence %s (%.2f): loop %s. %d risks found (%s). %d recommended changes.",
		band, confidence, verdict, len(risks), strings.Join(parts, ", "), changes)
}
