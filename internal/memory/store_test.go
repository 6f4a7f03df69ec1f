package memory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/drift"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/report"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustAppend(t *testing.T, s *Store, loopID, kind string, v any) Record {
	t.Helper()
	rec, err := NewRecord(loopID, kind, v)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	out, err := s.Append(context.Background(), rec)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	return out
}

func TestAppendAndLoad(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	rec := mustAppend(t, s, "loop-1", KindCTOReport, report.CTOReport{LoopID: "loop-1", HealthScore: 0.4, TrustDecay: 0.3})
	if rec.ID == "" || rec.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at to be set: %+v", rec)
	}
	mustAppend(t, s, "loop-1", KindCEOReview, CEOReview{LoopID: "loop-1", AlignmentScore: 0.2})
	mustAppend(t, s, "loop-2", KindCEOReview, CEOReview{LoopID: "loop-2", AlignmentScore: 0.9})
	mustAppend(t, s, "loop-1", KindWarning, drift.Warning{WarningID: "w1", LoopID: "loop-1"})

	snap, err := s.Load(ctx, "loop-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Reports) != 1 || len(snap.CEO) != 1 || len(snap.Warnings) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	sig := snap.Signals("loop-1")
	if sig.Alignment == nil || *sig.Alignment != 0.2 {
		t.Errorf("alignment = %v", sig.Alignment)
	}
}

func TestLoad_NotFound(t *testing.T) {
	s := tempStore(t)
	_, err := s.Load(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppend_EmptyLoopID(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Append(context.Background(), Record{Kind: KindCEOReview, Payload: []byte(`{}`)}); err == nil {
		t.Fatal("expected error for empty loop id")
	}
}

func TestAppendAll_Atomic(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	good, _ := NewRecord("loop-1", KindCEOReview, CEOReview{LoopID: "loop-1"})
	bad := Record{Kind: KindCEOReview, Payload: []byte(`{}`)}

	if _, err := s.AppendAll(ctx, []Record{good, bad}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := s.Load(ctx, "loop-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("partial batch was committed: %v", err)
	}

	recs, err := s.AppendAll(ctx, []Record{good, good})
	if err != nil {
		t.Fatalf("AppendAll: %v", err)
	}
	if len(recs) != 2 || recs[0].ID == recs[1].ID {
		t.Fatalf("expected two distinct records, got %+v", recs)
	}
}

func TestListLoopsAndRecords(t *testing.T) {
	s := tempStore(t)
	s.Now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	mustAppend(t, s, "loop-a", KindCEOReview, CEOReview{LoopID: "loop-a"})
	mustAppend(t, s, "loop-b", KindCEOReview, CEOReview{LoopID: "loop-b"})
	mustAppend(t, s, "loop-a", KindDriftSummary, drift.Summary{LoopID: "loop-a", DriftSeverity: drift.SeverityLow})

	loops, err := s.ListLoops(ctx, 10)
	if err != nil {
		t.Fatalf("ListLoops: %v", err)
	}
	if len(loops) != 2 || loops[0].LoopID != "loop-a" || loops[0].Records != 2 || loops[0].LastKind != KindDriftSummary {
		t.Fatalf("unexpected loops: %+v", loops)
	}
	if !loops[0].LastUpdate.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("last update = %v", loops[0].LastUpdate)
	}

	recs, err := s.ListRecords(ctx, Query{Kind: KindCEOReview})
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(recs) != 2 || recs[0].LoopID != "loop-b" {
		t.Fatalf("expected newest first, got %+v", recs)
	}

	recs, _ = s.ListRecords(ctx, Query{LoopID: "loop-a", Limit: 1})
	if len(recs) != 1 || recs[0].Kind != KindDriftSummary {
		t.Fatalf("unexpected filtered records: %+v", recs)
	}
}

func TestNewStore_MemoryDatabase(t *testing.T) {
	s, err := NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()
	mustAppend(t, s, "loop-1", KindCEOReview, CEOReview{LoopID: "loop-1"})
	if _, err := s.Load(context.Background(), "loop-1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestListRecords_CorruptTimestamp(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	mustAppend(t, s, "loop-1", KindCEOReview, CEOReview{LoopID: "loop-1", AlignmentScore: 0.5})

	if _, err := s.DB().Exec(`UPDATE records SET created_at = 'garbage'`); err != nil {
		t.Fatalf("corrupt row: %v", err)
	}
	if _, err := s.ListRecords(ctx, Query{LoopID: "loop-1"}); err == nil {
		t.Error("ListRecords: expected error for unparseable created_at")
	}
	if _, err := s.ListLoops(ctx, 10); err == nil {
		t.Error("ListLoops: expected error for unparseable created_at")
	}
	if _, err := s.Load(ctx, "loop-1"); err == nil {
		t.Error("Load: expected error for unparseable created_at")
	}
}
