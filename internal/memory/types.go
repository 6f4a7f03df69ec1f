package memory

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a loop has no stored records.
var ErrNotFound = errors.New("memory: not found")

// #region kinds
// Record kinds stored in the records table.
const (
	KindCTOReport       = "cto_report"
	KindCEOReview       = "ceo_review"
	KindHistorianReview = "historian_review"
	KindPessimistReview = "pessimist_review"
	KindSanityResult    = "sanity_result"
	KindRiskEvaluation  = "risk_evaluation"
	KindDriftSummary    = "drift_summary"
	KindWarning         = "warning"
	KindError           = "error_record"
)

// Kinds lists every record kind in display order.
var Kinds = []string{
	KindCTOReport, KindCEOReview, KindHistorianReview, KindPessimistReview,
	KindSanityResult, KindRiskEvaluation, KindDriftSummary, KindWarning, KindError,
}

// #endregion kinds

// #region signal-records
// CEOReview is the upstream plan/objective alignment reading.
type CEOReview struct {
	LoopID         string  `json:"loop_id"`
	AlignmentScore float64 `json:"alignment_score"`
	Timestamp      string  `json:"timestamp"`
}

// HistorianReview is the upstream belief alignment reading.
type HistorianReview struct {
	LoopID               string  `json:"loop_id"`
	BeliefAlignmentScore float64 `json:"belief_alignment_score"`
	Timestamp            string  `json:"timestamp"`
}

// PessimistReview carries the bias tags raised for a loop's output.
type PessimistReview struct {
	LoopID    string   `json:"loop_id"`
	BiasTags  []string `json:"bias_tags"`
	Timestamp string   `json:"timestamp"`
}

// ErrorRecord captures an unexpected fault during an evaluation.
type ErrorRecord struct {
	ErrorID   string `json:"error_id"`
	LoopID    string `json:"loop_id"`
	ProjectID string `json:"project_id,omitempty"`
	Operation string `json:"operation"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// #endregion signal-records

// #region record
// Record is one stored row. Payload holds the JSON of the typed record.
type Record struct {
	ID        string          `json:"id"`
	LoopID    string          `json:"loop_id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// LoopInfo summarizes one loop's stored history.
type LoopInfo struct {
	LoopID     string
	Records    int
	LastKind   string
	LastUpdate time.Time
}

// Query filters ListRecords. Empty fields match everything.
type Query struct {
	LoopID string
	Kind   string
	Limit  int
}

// #endregion record
