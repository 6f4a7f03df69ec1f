package replay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/config"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/drift"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/governor"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/memory"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/pessimist"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/report"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/sanity"
)

// Replay actions.
const (
	ActionGateReject = "gate_reject"
	ActionAccept     = "accept" // drift low
	ActionFlag       = "flag"   // drift moderate
	ActionReset      = "reset"  // drift critical
)

// replayEpoch pins every replayed record to the same clock.
var replayEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// #region types
// Result captures the outcome of replaying one loop through the governor.
type Result struct {
	LoopID string
	Action string
	Reason string

	// Gate stage
	Sanity sanity.Result
	Risk   pessimist.Result

	// Post-run stage (nil if the gate rejected)
	Report  *report.CTOReport
	Drift   *drift.Summary
	Warning *drift.Warning
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalLoops  int
	Accepted    int
	Flagged     int
	Resets      int
	GateRejects int
}

// Mismatch is an expected action that the replay did not reproduce.
type Mismatch struct {
	LoopID   string
	Expected string
	Got      string
}

// #endregion types

// #region replay
// Replay runs every loop through gate (structure + risk), then report,
// signals and drift, against a throwaway in-memory store.
func Replay(ctx context.Context, loops []FixtureLoop, cfg config.Config, logger *slog.Logger) ([]Result, error) {
	store, err := memory.NewStore(":memory:")
	if err != nil {
		return nil, fmt.Errorf("replay store: %w", err)
	}
	defer store.Close()

	gov := governor.New(cfg, store, logger)
	seq := 0
	gov.SetClock(func() time.Time { return replayEpoch }, func() string {
		seq++
		return fmt.Sprintf("replay-%d", seq)
	})

	results := make([]Result, 0, len(loops))
	for _, fl := range loops {
		r, err := replayLoop(ctx, gov, fl)
		if err != nil {
			return results, fmt.Errorf("replay loop %s: %w", fl.Loop.ID, err)
		}
		results = append(results, r)
	}
	return results, nil
}

func replayLoop(ctx context.Context, gov *governor.Governor, fl FixtureLoop) (Result, error) {
	loopID := fl.Loop.ID
	r := Result{LoopID: loopID}

	// 1. Gate
	var err error
	r.Sanity, err = gov.ValidateStructure(ctx, governor.StructureRequest{Request: sanity.Request{
		ProjectID:      fl.ProjectID,
		LoopID:         loopID,
		PlannedAgents:  fl.PlannedAgents,
		ExpectedSchema: fl.ExpectedSchema,
		MaxLoops:       fl.MaxLoops,
	}})
	if err != nil {
		return r, err
	}
	r.Risk, err = gov.EvaluateRisk(ctx, governor.RiskRequest{Request: pessimist.Request{
		ProjectID:  fl.ProjectID,
		LoopID:     loopID,
		Plan:       fl.Plan,
		Components: fl.Components,
		AgentMap:   fl.AgentMap,
	}})
	if err != nil {
		return r, err
	}
	if !r.Sanity.Valid || !r.Risk.Approved {
		r.Action = ActionGateReject
		r.Reason = gateReason(r.Sanity, r.Risk)
		return r, nil
	}

	// 2. Post-run report
	rep, err := gov.ComposeReport(ctx, governor.ReportRequest{
		ProjectID: fl.ProjectID,
		Loop:      fl.Loop,
		Plan:      fl.Plan,
		Summary:   fl.Summary,
		AgentLogs: fl.AgentLogs,
	})
	if err != nil {
		return r, err
	}
	r.Report = &rep.Report

	// 3. Upstream signals
	if fl.CEOAlignment != nil {
		if _, err := gov.RecordCEO(ctx, memory.CEOReview{LoopID: loopID, AlignmentScore: *fl.CEOAlignment}); err != nil {
			return r, err
		}
	}
	if fl.BeliefAlignment != nil {
		if _, err := gov.RecordHistorian(ctx, memory.HistorianReview{LoopID: loopID, BeliefAlignmentScore: *fl.BeliefAlignment}); err != nil {
			return r, err
		}
	}
	if fl.BiasTags != nil {
		if _, err := gov.RecordPessimist(ctx, memory.PessimistReview{LoopID: loopID, BiasTags: fl.BiasTags}); err != nil {
			return r, err
		}
	}

	// 4. Drift
	dr, err := gov.GenerateDrift(ctx, governor.DriftRequest{LoopID: loopID})
	if err != nil {
		return r, err
	}
	r.Drift = &dr.Summary
	r.Warning = dr.Warning
	r.Reason = dr.Summary.Recommendation
	switch dr.Summary.DriftSeverity {
	case drift.SeverityCritical:
		r.Action = ActionReset
	case drift.SeverityModerate:
		r.Action = ActionFlag
	default:
		r.Action = ActionAccept
	}
	return r, nil
}

func gateReason(s sanity.Result, p pessimist.Result) string {
	var parts []string
	if !s.Valid {
		parts = append(parts, fmt.Sprintf("structure invalid (score %.2f, %d issues)", s.ValidationScore, len(s.Issues)))
	}
	if !p.Approved {
		parts = append(parts, fmt.Sprintf("risk rejected (confidence %.2f)", p.ConfidenceScore))
	}
	return strings.Join(parts, "; ")
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result) Summary {
	s := Summary{TotalLoops: len(results)}
	for _, r := range results {
		switch r.Action {
		case ActionAccept:
			s.Accepted++
		case ActionFlag:
			s.Flagged++
		case ActionReset:
			s.Resets++
		case ActionGateReject:
			s.GateRejects++
		}
	}
	return s
}

// Check compares results with the expected actions by loop id. Expected
// loops missing from results are reported with an empty Got.
func Check(results []Result, expected []FixtureExpectedResult) []Mismatch {
	got := make(map[string]string, len(results))
	for _, r := range results {
		got[r.LoopID] = r.Action
	}
	var out []Mismatch
	for _, e := range expected {
		if g := got[e.LoopID]; g != e.Action {
			out = append(out, Mismatch{LoopID: e.LoopID, Expected: e.Action, Got: g})
		}
	}
	return out
}

// #endregion replay
