package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/config"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/drift"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/governor"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/loop"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/memory"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/pessimist"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/sanity"
)

// #region helpers
func startServer(t *testing.T) (*Client, *memory.Store) {
	t.Helper()
	store, err := memory.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	logger := governor.NewLogger(io.Discard, "debug")
	gov := governor.New(config.Default(), store, logger)
	gov.SetClock(func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }, func() string { return "fixed-id" })

	lis := bufconn.Listen(1 << 20)
	gs := NewServer(gov, logger).GRPCServer()
	go gs.Serve(lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		gs.Stop()
		store.Close()
	})
	return NewClientWithConn(conn), store
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// #endregion helpers

// #region round-trip-tests
func TestComposeReport_RoundTrip(t *testing.T) {
	c, _ := startServer(t)
	var plan loop.Plan
	if err := json.Unmarshal([]byte(`{"objective":"Implement login route and handler","steps":["Create login route",{"id":2,"description":"Create login handler","action":"create"}]}`), &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	resp, err := c.ComposeReport(testCtx(t), governor.ReportRequest{
		Loop:    loop.Loop{ID: "loop-1", CalledAgents: []string{"core-forge", "critic", "hal"}, Status: loop.StatusCompleted},
		Plan:    plan,
		Summary: "Implemented login route and handler successfully.",
		AgentLogs: []loop.AgentLog{
			{AgentName: "critic", Status: loop.LogFailed, Timestamp: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
		},
	})
	if err != nil {
		t.Fatalf("ComposeReport: %v", err)
	}
	if resp.Report.LoopID != "loop-1" || resp.Report.HealthScore < 0.9 {
		t.Fatalf("unexpected report %+v", resp.Report)
	}
	if resp.Report.AgentFailureRates["critic"] != 1 {
		t.Errorf("failure rates = %v", resp.Report.AgentFailureRates)
	}
	if resp.Loop.HealthScore == nil {
		t.Error("loop health score missing")
	}
}

func TestValidateAndEvaluate_RoundTrip(t *testing.T) {
	c, _ := startServer(t)
	ctx := testCtx(t)

	res, err := c.ValidateStructure(ctx, governor.StructureRequest{Request: sanity.Request{
		LoopID:        "loop-2",
		PlannedAgents: []string{"ORCHESTRATOR", "CRITIC", "PESSIMIST", "OPTIMIST"},
		ExpectedSchema: map[string]any{
			"input":  map[string]any{"query": "string"},
			"output": map[string]any{"status": "string"},
		},
		MaxLoops: 4,
	}})
	if err != nil {
		t.Fatalf("ValidateStructure: %v", err)
	}
	if len(res.Issues) != 1 || res.Issues[0].IssueType != "agent_conflict" {
		t.Fatalf("issues = %+v", res.Issues)
	}

	risk, err := c.EvaluateRisk(ctx, governor.RiskRequest{Request: pessimist.Request{LoopID: "loop-2"}})
	if err != nil {
		t.Fatalf("EvaluateRisk: %v", err)
	}
	if risk.Approved || len(risk.Risks) == 0 {
		t.Fatalf("empty plan should be rejected: %+v", risk)
	}
}

func TestSignalsAndDrift_RoundTrip(t *testing.T) {
	c, store := startServer(t)
	ctx := testCtx(t)

	if _, err := c.RecordCEO(ctx, memory.CEOReview{LoopID: "loop-3", AlignmentScore: 0.1}); err != nil {
		t.Fatalf("RecordCEO: %v", err)
	}
	if _, err := c.RecordHistorian(ctx, memory.HistorianReview{LoopID: "loop-3", BeliefAlignmentScore: 0.2}); err != nil {
		t.Fatalf("RecordHistorian: %v", err)
	}
	got, err := c.RecordPessimist(ctx, memory.PessimistReview{LoopID: "loop-3", BiasTags: []string{"flattery"}})
	if err != nil {
		t.Fatalf("RecordPessimist: %v", err)
	}
	if got.Timestamp != "2026-06-01T00:00:00Z" {
		t.Errorf("timestamp = %q", got.Timestamp)
	}

	resp, err := c.GenerateDrift(ctx, governor.DriftRequest{LoopID: "loop-3"})
	if err != nil {
		t.Fatalf("GenerateDrift: %v", err)
	}
	if resp.Summary.DriftSeverity != drift.SeverityCritical || resp.Warning == nil {
		t.Fatalf("expected critical drift with warning, got %+v", resp)
	}
	if resp.Summary.HealthScore != nil {
		t.Errorf("health was never reported and must be absent, got %v", *resp.Summary.HealthScore)
	}

	snap, err := store.Load(context.Background(), "loop-3")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Warnings) != 1 {
		t.Errorf("warning not stored: %+v", snap.Warnings)
	}
}

// #endregion round-trip-tests

// #region error-tests
func TestInvalidRequest_MapsToInvalidArgument(t *testing.T) {
	c, _ := startServer(t)
	_, err := c.GenerateDrift(testCtx(t), governor.DriftRequest{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestUnknownSignalKind(t *testing.T) {
	c, _ := startServer(t)
	in, _ := structpb.NewStruct(map[string]any{"kind": "oracle", "loop_id": "loop-4"})
	err := c.invoke.Invoke(testCtx(t), MethodRecordSignal, in, &structpb.Struct{})
	if status.Code(err) != codes.InvalidArgument || !strings.Contains(err.Error(), "oracle") {
		t.Fatalf("expected InvalidArgument for unknown kind, got %v", err)
	}
}

func TestStoreFailure_MapsToInternal(t *testing.T) {
	c, store := startServer(t)
	store.Close()
	_, err := c.RecordCEO(testCtx(t), memory.CEOReview{LoopID: "loop-5", AlignmentScore: 0.5})
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}
	if !strings.Contains(err.Error(), "error_id=fixed-id") {
		t.Errorf("error record id missing: %v", err)
	}
}

func TestHealthy(t *testing.T) {
	c, _ := startServer(t)
	ok, err := c.Healthy(testCtx(t))
	if err != nil || !ok {
		t.Fatalf("expected serving, got %v %v", ok, err)
	}
}

func TestNewClient_ClosesOwnConn(t *testing.T) {
	c, err := NewClient("localhost:0")
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := NewClientWithConn(nil).Close(); err != nil {
		t.Fatalf("Close on borrowed conn: %v", err)
	}
}

// #endregion error-tests
