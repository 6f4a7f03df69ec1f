package logging

import "time"

// #region evaluation-entry
// Entry is a single row in the evaluation_log table: one evaluator run with
// its input, output and verdict.
type Entry struct {
	ID          int64
	LoopID      string
	ProjectID   string
	Operation   string // "compose_report" | "validate_structure" | "evaluate_risk" | "record_signal" | "generate_drift"
	RequestJSON string
	ResultJSON  string
	Decision    string // "pass" | "reject" | "recorded" | drift severity
	Reason      string
	CreatedAt   time.Time
}

// #endregion evaluation-entry
