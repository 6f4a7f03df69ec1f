package governor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/config"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/divergence"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/drift"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/health"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/logging"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/loop"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/memory"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/pessimist"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/report"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/sanity"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/trust"
)

// #region governor
// Governor is the composition root: it owns one instance of every evaluator,
// built once from config, and persists every result it produces.
type Governor struct {
	config config.Config
	store  *memory.Store
	logger *slog.Logger

	composer   *report.Composer
	validator  *sanity.Validator
	evaluator  *pessimist.Evaluator
	aggregator *drift.Aggregator

	now   func() time.Time
	newID func() string
}

// New builds the evaluators from cfg. A nil logger uses slog.Default().
func New(cfg config.Config, store *memory.Store, logger *slog.Logger) *Governor {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Governor{
		config:     cfg,
		store:      store,
		logger:     logger,
		composer:   newComposer(cfg.Health, cfg.Divergence, cfg.Trust),
		validator:  sanity.NewValidator(cfg.Sanity),
		evaluator:  pessimist.NewEvaluator(cfg.Pessimist),
		aggregator: drift.NewAggregator(cfg.Drift),
	}
	g.SetClock(time.Now, uuid.NewString)
	return g
}

// SetClock replaces the time and id sources of the governor and its
// evaluators.
func (g *Governor) SetClock(now func() time.Time, newID func() string) {
	g.now = now
	g.newID = newID
	g.composer.Now = now
	g.aggregator.Now = now
	g.aggregator.NewID = newID
	g.store.Now = now
}

// Config returns the configuration the governor was built with.
func (g *Governor) Config() config.Config {
	return g.config
}

func newComposer(h health.Config, d divergence.Config, t trust.Config) *report.Composer {
	return report.NewComposer(health.NewScorer(h), divergence.NewScorer(d), trust.NewTracker(t))
}

// #endregion governor

// #region post-run
// ComposeReport scores a finished loop and stores the CTO report.
func (g *Governor) ComposeReport(ctx context.Context, req ReportRequest) (ReportResponse, error) {
	if strings.TrimSpace(req.Loop.ID) == "" {
		return ReportResponse{}, fmt.Errorf("%w: loop.loop_id is required", ErrInvalidRequest)
	}

	composer := g.composer
	if len(req.Config) > 0 {
		h, err := Overrides(g.config.Health, req.Config)
		if err != nil {
			return ReportResponse{}, err
		}
		d, err := Overrides(g.config.Divergence, req.Config)
		if err != nil {
			return ReportResponse{}, err
		}
		t, err := Overrides(g.config.Trust, req.Config)
		if err != nil {
			return ReportResponse{}, err
		}
		composer = newComposer(h, d, t)
		composer.Now = g.now
	}

	var resp ReportResponse
	err := guard(OpComposeReport, func() {
		resp.Report, resp.Loop = composer.Compose(req.Loop, req.Plan, req.Summary, req.AgentLogs)
	})
	if err != nil {
		return ReportResponse{}, err
	}

	if err := g.persist(ctx, req.Loop.ID, memory.KindCTOReport, resp.Report); err != nil {
		return ReportResponse{}, err
	}
	g.logEvaluation(logging.Entry{
		LoopID:    req.Loop.ID,
		ProjectID: req.ProjectID,
		Operation: OpComposeReport,
		Decision:  "recorded",
		Reason:    resp.Report.Recommendation,
	}, req, resp.Report)

	g.logger.Info("[GOVERNOR] composed report", "loop_id", req.Loop.ID,
		"health", resp.Report.HealthScore, "alignment", resp.Report.PlanSummaryAlignmentScore,
		"trust_decay", resp.Report.TrustDecay)
	return resp, nil
}

// #endregion post-run

// #region pre-run
// ValidateStructure runs the structural validator and stores its result.
func (g *Governor) ValidateStructure(ctx context.Context, req StructureRequest) (sanity.Result, error) {
	if strings.TrimSpace(req.LoopID) == "" {
		return sanity.Result{}, fmt.Errorf("%w: loop_id is required", ErrInvalidRequest)
	}

	validator := g.validator
	if len(req.Config) > 0 {
		cfg, err := Overrides(g.config.Sanity, req.Config)
		if err != nil {
			return sanity.Result{}, err
		}
		validator = sanity.NewValidator(cfg)
	}

	var res sanity.Result
	if err := guard(OpValidateStructure, func() { res = validator.Validate(req.Request) }); err != nil {
		return sanity.Result{}, err
	}
	res.ValidationScore = loop.Round2(res.ValidationScore)

	if err := g.persist(ctx, req.LoopID, memory.KindSanityResult, res); err != nil {
		return sanity.Result{}, err
	}
	g.logEvaluation(logging.Entry{
		LoopID:    req.LoopID,
		ProjectID: req.ProjectID,
		Operation: OpValidateStructure,
		Decision:  verdict(res.Valid),
		Reason:    fmt.Sprintf("validation score %.2f with %d issues", res.ValidationScore, len(res.Issues)),
	}, req, res)

	g.logger.Info("[GOVERNOR] validated structure", "loop_id", req.LoopID,
		"valid", res.Valid, "score", res.ValidationScore, "issues", len(res.Issues))
	return res, nil
}

// EvaluateRisk runs the pessimist evaluator and stores its result.
func (g *Governor) EvaluateRisk(ctx context.Context, req RiskRequest) (pessimist.Result, error) {
	if strings.TrimSpace(req.LoopID) == "" {
		return pessimist.Result{}, fmt.Errorf("%w: loop_id is required", ErrInvalidRequest)
	}

	evaluator := g.evaluator
	if len(req.Config) > 0 {
		cfg, err := Overrides(g.config.Pessimist, req.Config)
		if err != nil {
			return pessimist.Result{}, err
		}
		evaluator = pessimist.NewEvaluator(cfg)
	}

	var res pessimist.Result
	if err := guard(OpEvaluateRisk, func() { res = evaluator.Evaluate(req.Request) }); err != nil {
		return pessimist.Result{}, err
	}
	res.ConfidenceScore = loop.Round2(res.ConfidenceScore)

	if err := g.persist(ctx, req.LoopID, memory.KindRiskEvaluation, res); err != nil {
		return pessimist.Result{}, err
	}
	g.logEvaluation(logging.Entry{
		LoopID:    req.LoopID,
		ProjectID: req.ProjectID,
		Operation: OpEvaluateRisk,
		Decision:  verdict(res.Approved),
		Reason:    res.EvaluationSummary,
	}, req, res)

	g.logger.Info("[GOVERNOR] evaluated risk", "loop_id", req.LoopID,
		"approved", res.Approved, "confidence", res.ConfidenceScore, "risks", len(res.Risks))
	return res, nil
}

// #endregion pre-run

// #region signals
// RecordCEO stores a CEO alignment reading. A missing timestamp is filled in.
func (g *Governor) RecordCEO(ctx context.Context, r memory.CEOReview) (memory.CEOReview, error) {
	if err := checkSignal(r.LoopID, "alignment_score", r.AlignmentScore); err != nil {
		return memory.CEOReview{}, err
	}
	r.AlignmentScore = loop.Round2(r.AlignmentScore)
	if r.Timestamp == "" {
		r.Timestamp = loop.FormatTime(g.now())
	}
	return r, g.recordSignal(ctx, r.LoopID, memory.KindCEOReview, r)
}

// RecordHistorian stores a belief alignment reading.
func (g *Governor) RecordHistorian(ctx context.Context, r memory.HistorianReview) (memory.HistorianReview, error) {
	if err := checkSignal(r.LoopID, "belief_alignment_score", r.BeliefAlignmentScore); err != nil {
		return memory.HistorianReview{}, err
	}
	r.BeliefAlignmentScore = loop.Round2(r.BeliefAlignmentScore)
	if r.Timestamp == "" {
		r.Timestamp = loop.FormatTime(g.now())
	}
	return r, g.recordSignal(ctx, r.LoopID, memory.KindHistorianReview, r)
}

// RecordPessimist stores the bias tags raised for a loop.
func (g *Governor) RecordPessimist(ctx context.Context, r memory.PessimistReview) (memory.PessimistReview, error) {
	if strings.TrimSpace(r.LoopID) == "" {
		return memory.PessimistReview{}, fmt.Errorf("%w: loop_id is required", ErrInvalidRequest)
	}
	if r.BiasTags == nil {
		r.BiasTags = []string{}
	}
	if r.Timestamp == "" {
		r.Timestamp = loop.FormatTime(g.now())
	}
	return r, g.recordSignal(ctx, r.LoopID, memory.KindPessimistReview, r)
}

func (g *Governor) recordSignal(ctx context.Context, loopID, kind string, v any) error {
	if err := g.persist(ctx, loopID, kind, v); err != nil {
		return err
	}
	g.logEvaluation(logging.Entry{
		LoopID:    loopID,
		Operation: OpRecordSignal,
		Decision:  "recorded",
		Reason:    kind,
	}, v, nil)
	g.logger.Debug("[GOVERNOR] recorded signal", "loop_id", loopID, "kind", kind)
	return nil
}

func checkSignal(loopID, name string, score float64) error {
	if strings.TrimSpace(loopID) == "" {
		return fmt.Errorf("%w: loop_id is required", ErrInvalidRequest)
	}
	if score < 0 || score > 1 {
		return fmt.Errorf("%w: %s must be within [0,1], got %v", ErrInvalidRequest, name, score)
	}
	return nil
}

// #endregion signals

// #region drift
// GenerateDrift folds the loop's most recent stored signals into a drift
// summary. A critical verdict also stores and returns a system reset warning.
func (g *Governor) GenerateDrift(ctx context.Context, req DriftRequest) (DriftResponse, error) {
	if strings.TrimSpace(req.LoopID) == "" {
		return DriftResponse{}, fmt.Errorf("%w: loop_id is required", ErrInvalidRequest)
	}

	aggregator := g.aggregator
	if len(req.Config) > 0 {
		th, err := Overrides(g.config.Drift, req.Config)
		if err != nil {
			return DriftResponse{}, err
		}
		aggregator = drift.NewAggregator(th)
		aggregator.Now, aggregator.NewID = g.now, g.newID
	}

	snap, err := g.store.Load(ctx, req.LoopID)
	if err != nil && !errors.Is(err, memory.ErrNotFound) {
		return DriftResponse{}, fmt.Errorf("load signals: %w", err)
	}

	var resp DriftResponse
	err = guard(OpGenerateDrift, func() {
		resp.Summary, resp.Warning = aggregator.Generate(req.LoopID, snap.Signals(req.LoopID))
	})
	if err != nil {
		return DriftResponse{}, err
	}

	recs := make([]memory.Record, 0, 2)
	rec, err := memory.NewRecord(req.LoopID, memory.KindDriftSummary, resp.Summary)
	if err != nil {
		return DriftResponse{}, err
	}
	recs = append(recs, rec)
	if resp.Warning != nil {
		rec, err := memory.NewRecord(req.LoopID, memory.KindWarning, resp.Warning)
		if err != nil {
			return DriftResponse{}, err
		}
		recs = append(recs, rec)
	}
	if _, err := g.store.AppendAll(ctx, recs); err != nil {
		return DriftResponse{}, fmt.Errorf("store drift: %w", err)
	}

	g.logEvaluation(logging.Entry{
		LoopID:    req.LoopID,
		Operation: OpGenerateDrift,
		Decision:  string(resp.Summary.DriftSeverity),
		Reason:    resp.Summary.Recommendation,
	}, req, resp)

	if resp.Warning != nil {
		g.logger.Warn("[GOVERNOR] critical drift, system reset advised", "loop_id", req.LoopID,
			"warning_id", resp.Warning.WarningID, "breached", resp.Warning.BreachedSignals)
	} else {
		g.logger.Info("[GOVERNOR] generated drift summary", "loop_id", req.LoopID,
			"severity", resp.Summary.DriftSeverity)
	}
	return resp, nil
}

// #endregion drift

// #region errors
// RecordError persists an ErrorRecord for an operation that failed
// unexpectedly. Storage failures are logged, not returned.
func (g *Governor) RecordError(ctx context.Context, loopID, projectID, operation string, cause error) ErrorRecord {
	rec := ErrorRecord{
		ErrorID:   g.newID(),
		LoopID:    loopID,
		ProjectID: projectID,
		Operation: operation,
		Message:   cause.Error(),
		Timestamp: loop.FormatTime(g.now()),
	}
	g.logger.Error("[GOVERNOR] operation failed", "operation", operation, "loop_id", loopID, "error", cause)
	if loopID == "" {
		return rec
	}
	if err := g.persist(ctx, loopID, memory.KindError, rec); err != nil {
		g.logger.Error("[GOVERNOR] could not store error record", "error_id", rec.ErrorID, "error", err)
	}
	return rec
}

// guard runs fn and converts a panic into an error.
func guard(op string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: evaluator panicked: %v", op, r)
		}
	}()
	fn()
	return nil
}

// #endregion errors

// #region helpers
func (g *Governor) persist(ctx context.Context, loopID, kind string, v any) error {
	rec, err := memory.NewRecord(loopID, kind, v)
	if err != nil {
		return err
	}
	if _, err := g.store.Append(ctx, rec); err != nil {
		return fmt.Errorf("store %s: %w", kind, err)
	}
	return nil
}

// logEvaluation writes the provenance row. Failures are logged only.
func (g *Governor) logEvaluation(entry logging.Entry, request, result any) {
	if request != nil {
		if data, err := json.Marshal(request); err == nil {
			entry.RequestJSON = string(data)
		}
	}
	if result != nil {
		if data, err := json.Marshal(result); err == nil {
			entry.ResultJSON = string(data)
		}
	}
	entry.CreatedAt = g.now().UTC()
	if err := logging.LogEvaluation(g.store.DB(), entry); err != nil {
		g.logger.Warn("[GOVERNOR] provenance write failed", "operation", entry.Operation, "error", err)
	}
}

func verdict(ok bool) string {
	if ok {
		return "pass"
	}
	return "reject"
}

// #endregion helpers
