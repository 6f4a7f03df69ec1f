package governor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/config"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/drift"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/health"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/logging"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/loop"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/memory"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/pessimist"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/sanity"
)

var fixedNow = time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

func newTestGovernor(t *testing.T) (*Governor, *memory.Store) {
	t.Helper()
	store, err := memory.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	g := New(config.Default(), store, NewLogger(io.Discard, "debug"))
	ids := 0
	g.SetClock(func() time.Time { return fixedNow }, func() string {
		ids++
		return "id-" + string(rune('0'+ids))
	})
	return g, store
}

func loginPlan(t *testing.T) loop.Plan {
	t.Helper()
	var p loop.Plan
	raw := `{"objective":"Implement login route and handler",
		"steps":[{"description":"Create login route"},{"description":"Create login handler"}]}`
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	return p
}

// #region post-run-tests
func TestComposeReport_StoresReport(t *testing.T) {
	g, store := newTestGovernor(t)
	ctx := context.Background()

	resp, err := g.ComposeReport(ctx, ReportRequest{
		Loop:    loop.Loop{ID: "loop-1", CalledAgents: []string{"core-forge", "critic", "hal"}, Status: loop.StatusCompleted},
		Plan:    loginPlan(t),
		Summary: "Implemented login route and handler successfully.",
	})
	if err != nil {
		t.Fatalf("ComposeReport: %v", err)
	}
	if resp.Loop.HealthScore == nil || *resp.Loop.HealthScore != resp.Report.HealthScore {
		t.Fatalf("loop health not set: %+v", resp.Loop)
	}
	if resp.Report.Timestamp != "2026-04-01T09:30:00Z" {
		t.Errorf("timestamp = %q", resp.Report.Timestamp)
	}

	snap, err := store.Load(ctx, "loop-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Reports) != 1 || snap.Reports[0].HealthScore != resp.Report.HealthScore {
		t.Fatalf("stored reports = %+v", snap.Reports)
	}

	entries, err := logging.ListEvaluations(store.DB(), "loop-1", 10)
	if err != nil {
		t.Fatalf("ListEvaluations: %v", err)
	}
	if len(entries) != 1 || entries[0].Operation != OpComposeReport || entries[0].ResultJSON == "" {
		t.Fatalf("provenance = %+v", entries)
	}
}

func TestComposeReport_ConfigOverride(t *testing.T) {
	g, _ := newTestGovernor(t)
	req := ReportRequest{
		Loop:    loop.Loop{ID: "loop-2", CalledAgents: []string{"critic"}, Status: loop.StatusCompleted},
		Plan:    loginPlan(t),
		Summary: "login route",
	}
	base, err := g.ComposeReport(context.Background(), req)
	if err != nil {
		t.Fatalf("ComposeReport: %v", err)
	}

	req.Config = json.RawMessage(`{"required_agents":["critic"]}`)
	over, err := g.ComposeReport(context.Background(), req)
	if err != nil {
		t.Fatalf("ComposeReport override: %v", err)
	}
	if over.Report.HealthScore <= base.Report.HealthScore {
		t.Fatalf("override should relax required agents: %.2f vs %.2f", over.Report.HealthScore, base.Report.HealthScore)
	}
	if got := g.Config().Health.RequiredAgents; len(got) != 3 {
		t.Errorf("override leaked into base config: %v", got)
	}
}

func TestComposeReport_MissingLoopID(t *testing.T) {
	g, _ := newTestGovernor(t)
	_, err := g.ComposeReport(context.Background(), ReportRequest{})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

// #endregion post-run-tests

// #region pre-run-tests
func TestValidateStructure_OverrideAndPersist(t *testing.T) {
	g, store := newTestGovernor(t)
	req := StructureRequest{Request: sanity.Request{
		LoopID:        "loop-3",
		PlannedAgents: []string{"ORCHESTRATOR", "CRITIC"},
		ExpectedSchema: map[string]any{
			"input":  map[string]any{"query": "s", "context": "o"},
			"output": map[string]any{"status": "s", "result": "o"},
		},
		MaxLoops: 5,
	}}

	res, err := g.ValidateStructure(context.Background(), req)
	if err != nil {
		t.Fatalf("ValidateStructure: %v", err)
	}
	if !res.Valid || len(res.Issues) != 0 {
		t.Fatalf("expected clean result, got %+v", res)
	}

	req.Config = json.RawMessage(`{"max_loops_upper": 3}`)
	res, err = g.ValidateStructure(context.Background(), req)
	if err != nil {
		t.Fatalf("ValidateStructure override: %v", err)
	}
	if len(res.Issues) != 1 || res.Issues[0].IssueType != "excessive_max_loops" {
		t.Fatalf("override not applied: %+v", res.Issues)
	}

	snap, _ := store.Load(context.Background(), "loop-3")
	if len(snap.Sanity) != 2 {
		t.Errorf("expected 2 stored results, got %d", len(snap.Sanity))
	}
}

func TestValidateStructure_BadOverride(t *testing.T) {
	g, _ := newTestGovernor(t)
	req := StructureRequest{Request: sanity.Request{LoopID: "loop-4"}, Config: json.RawMessage(`{"max_loops_upper":"many"}`)}
	if _, err := g.ValidateStructure(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestEvaluateRisk_CycleRejected(t *testing.T) {
	g, store := newTestGovernor(t)
	p := func(v int) *int { return &v }
	req := RiskRequest{Request: pessimist.Request{
		LoopID: "loop-5",
		Plan: loop.Plan{
			Steps:          []loop.Step{{ID: 1, Agent: "CRITIC", Action: "review"}},
			MaxIterations:  loop.Int(3),
			TimeoutSeconds: loop.Int(60),
		},
		AgentMap: map[string]pessimist.AgentSpec{
			"ORCHESTRATOR": {Role: "o", Dependencies: []string{"CRITIC"}, Priority: p(1)},
			"CRITIC":       {Role: "c", Dependencies: []string{"ORCHESTRATOR"}, Priority: p(2)},
			"GUARDIAN":     {Role: "g", Priority: p(3)},
		},
	}}
	res, err := g.EvaluateRisk(context.Background(), req)
	if err != nil {
		t.Fatalf("EvaluateRisk: %v", err)
	}
	if len(res.Risks) != 1 || res.Risks[0].RiskType != "circular_dependency" {
		t.Fatalf("risks = %+v", res.Risks)
	}
	if res.ConfidenceScore != 0.8 || !res.Approved {
		t.Errorf("confidence %.2f approved %v", res.ConfidenceScore, res.Approved)
	}

	entries, _ := logging.ListEvaluations(store.DB(), "loop-5", 1)
	if len(entries) != 1 || entries[0].Decision != "pass" {
		t.Errorf("provenance = %+v", entries)
	}
}

// #endregion pre-run-tests

// #region drift-tests
func TestGenerateDrift_CriticalEscalates(t *testing.T) {
	g, store := newTestGovernor(t)
	ctx := context.Background()

	_, err := g.ComposeReport(ctx, ReportRequest{
		Loop:    loop.Loop{ID: "loop-6", PlanRerouted: true, Status: loop.StatusFailed, Error: true},
		Plan:    loginPlan(t),
		Summary: "Fixed unrelated bug in payment system.",
	})
	if err != nil {
		t.Fatalf("ComposeReport: %v", err)
	}
	if _, err := g.RecordCEO(ctx, memory.CEOReview{LoopID: "loop-6", AlignmentScore: 0.2}); err != nil {
		t.Fatalf("RecordCEO: %v", err)
	}
	if _, err := g.RecordHistorian(ctx, memory.HistorianReview{LoopID: "loop-6", BeliefAlignmentScore: 0.3}); err != nil {
		t.Fatalf("RecordHistorian: %v", err)
	}
	if _, err := g.RecordPessimist(ctx, memory.PessimistReview{LoopID: "loop-6", BiasTags: []string{"optimism", "deference"}}); err != nil {
		t.Fatalf("RecordPessimist: %v", err)
	}

	resp, err := g.GenerateDrift(ctx, DriftRequest{LoopID: "loop-6"})
	if err != nil {
		t.Fatalf("GenerateDrift: %v", err)
	}
	if resp.Summary.DriftSeverity != drift.SeverityCritical || resp.Warning == nil {
		t.Fatalf("expected critical with warning, got %+v", resp)
	}

	snap, _ := store.Load(ctx, "loop-6")
	if len(snap.Drift) != 1 || len(snap.Warnings) != 1 {
		t.Fatalf("drift records not stored: %+v", snap)
	}
	if snap.Warnings[0].WarningID != resp.Warning.WarningID {
		t.Errorf("warning id mismatch: %s vs %s", snap.Warnings[0].WarningID, resp.Warning.WarningID)
	}
}

func TestGenerateDrift_NoSignals(t *testing.T) {
	g, _ := newTestGovernor(t)
	resp, err := g.GenerateDrift(context.Background(), DriftRequest{LoopID: "loop-empty"})
	if err != nil {
		t.Fatalf("GenerateDrift: %v", err)
	}
	if resp.Summary.DriftSeverity != drift.SeverityLow || resp.Warning != nil {
		t.Fatalf("expected low without warning, got %+v", resp)
	}
	if !strings.Contains(resp.Summary.Recommendation, "Insufficient signals") {
		t.Errorf("recommendation = %q", resp.Summary.Recommendation)
	}
}

func TestRecordCEO_RejectsOutOfRange(t *testing.T) {
	g, _ := newTestGovernor(t)
	_, err := g.RecordCEO(context.Background(), memory.CEOReview{LoopID: "loop-7", AlignmentScore: 1.4})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

// #endregion drift-tests

// #region error-tests
func TestRecordError_Persists(t *testing.T) {
	g, store := newTestGovernor(t)
	rec := g.RecordError(context.Background(), "loop-8", "proj", OpEvaluateRisk, errors.New("boom"))
	if rec.Message != "boom" || rec.Timestamp != "2026-04-01T09:30:00Z" || rec.ErrorID == "" {
		t.Fatalf("unexpected record %+v", rec)
	}
	snap, err := store.Load(context.Background(), "loop-8")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Errors) != 1 || snap.Errors[0].Operation != OpEvaluateRisk {
		t.Fatalf("errors = %+v", snap.Errors)
	}
}

func TestGuard_RecoversPanic(t *testing.T) {
	err := guard("op", func() { panic("bad input") })
	if err == nil || !strings.Contains(err.Error(), "bad input") {
		t.Fatalf("expected panic converted to error, got %v", err)
	}
	if err := guard("op", func() {}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestOverrides_DoesNotMutateBase(t *testing.T) {
	base := health.DefaultConfig()
	out, err := Overrides(base, json.RawMessage(`{"weights":{"plan_rerouted":0.9}}`))
	if err != nil {
		t.Fatalf("Overrides: %v", err)
	}
	if out.Weights["plan_rerouted"] != 0.9 || out.Weights["critic_skipped"] != 0.15 {
		t.Fatalf("override = %v", out.Weights)
	}
	if base.Weights["plan_rerouted"] != 0.3 {
		t.Fatalf("base mutated: %v", base.Weights)
	}
}

// #endregion error-tests
