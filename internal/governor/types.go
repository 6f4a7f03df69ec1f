package governor

import (
	"encoding/json"
	"errors"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/drift"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/loop"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/memory"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/pessimist"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/report"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/sanity"
)

// ErrInvalidRequest marks requests rejected before any evaluator runs.
var ErrInvalidRequest = errors.New("invalid request")

// ErrorRecord is persisted when an operation fails unexpectedly.
type ErrorRecord = memory.ErrorRecord

// Operation names used in the evaluation log and error records.
const (
	OpComposeReport     = "compose_report"
	OpValidateStructure = "validate_structure"
	OpEvaluateRisk      = "evaluate_risk"
	OpRecordSignal      = "record_signal"
	OpGenerateDrift     = "generate_drift"
)

// #region requests
// ReportRequest carries a finished loop to the post-run scorers.
type ReportRequest struct {
	ProjectID string          `json:"project_id,omitempty"`
	Loop      loop.Loop       `json:"loop"`
	Plan      loop.Plan       `json:"plan"`
	Summary   string          `json:"summary"`
	AgentLogs []loop.AgentLog `json:"agent_logs"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// ReportResponse is the CTO report plus the loop with its health score set.
type ReportResponse struct {
	Report report.CTOReport `json:"report"`
	Loop   loop.Loop        `json:"loop"`
}

// StructureRequest is a structural validation request with an optional
// config override.
type StructureRequest struct {
	sanity.Request
	Config json.RawMessage `json:"config,omitempty"`
}

// RiskRequest is a pre-run risk evaluation request with an optional config
// override.
type RiskRequest struct {
	pessimist.Request
	Config json.RawMessage `json:"config,omitempty"`
}

// DriftRequest asks for a drift verdict over a loop's stored signals.
type DriftRequest struct {
	LoopID string          `json:"loop_id"`
	Config json.RawMessage `json:"config,omitempty"`
}

// DriftResponse holds the summary and, when critical, the escalation warning.
type DriftResponse struct {
	Summary drift.Summary  `json:"summary"`
	Warning *drift.Warning `json:"warning,omitempty"`
}

// #endregion requests
