package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/logging"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/memory"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to governor.db")
	loopID := flag.String("loop", "", "show records and evaluation log for one loop")
	kind := flag.String("kind", "", "filter records to one kind ("+strings.Join(memory.Kinds, ", ")+")")
	last := flag.Int("last", 20, "show N most recent rows")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/governor.db [--loop id] [--kind k] [--last N] [--json]")
		os.Exit(2)
	}

	store, err := memory.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	switch {
	case *loopID != "":
		err = runLoopMode(ctx, store, *loopID, *kind, *last, *jsonOut)
	case *kind != "":
		err = runRecordMode(ctx, store, memory.Query{Kind: *kind, Limit: *last}, *jsonOut)
	default:
		err = runListMode(ctx, store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type loopRow struct {
	LoopID     string `json:"loop_id"`
	Records    int    `json:"records"`
	LastKind   string `json:"last_kind"`
	LastUpdate string `json:"last_update"`
}

func runListMode(ctx context.Context, store *memory.Store, last int, jsonOut bool) error {
	loops, err := store.ListLoops(ctx, last)
	if err != nil {
		return err
	}
	if len(loops) == 0 {
		fmt.Fprintln(os.Stderr, "no loops found")
		return nil
	}

	rows := make([]loopRow, len(loops))
	for i, l := range loops {
		rows[i] = loopRow{
			LoopID:     l.LoopID,
			Records:    l.Records,
			LastKind:   l.LastKind,
			LastUpdate: l.LastUpdate.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}
	if jsonOut {
		return printJSON(rows)
	}

	tw := newTable()
	tw.AppendHeader(table.Row{"Loop", "Records", "Last Kind", "Last Update"})
	for _, r := range rows {
		tw.AppendRow(table.Row{r.LoopID, r.Records, r.LastKind, r.LastUpdate})
	}
	tw.Render()
	return nil
}

// #endregion list-mode

// #region record-mode

type recordRow struct {
	ID        string          `json:"id"`
	LoopID    string          `json:"loop_id"`
	Kind      string          `json:"kind"`
	Headline  string          `json:"headline"`
	CreatedAt string          `json:"created_at"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func runRecordMode(ctx context.Context, store *memory.Store, q memory.Query, jsonOut bool) error {
	recs, err := store.ListRecords(ctx, q)
	if err != nil {
		return err
	}
	rows := recordRows(recs)
	if jsonOut {
		return printJSON(rows)
	}
	printRecordTable(rows)
	return nil
}

func recordRows(recs []memory.Record) []recordRow {
	rows := make([]recordRow, len(recs))
	for i, rec := range recs {
		rows[i] = recordRow{
			ID:        rec.ID,
			LoopID:    rec.LoopID,
			Kind:      rec.Kind,
			Headline:  headline(rec),
			CreatedAt: rec.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Payload:   rec.Payload,
		}
	}
	return rows
}

func printRecordTable(rows []recordRow) {
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no records found")
		return
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"Record", "Loop", "Kind", "Headline", "Time"})
	for _, r := range rows {
		tw.AppendRow(table.Row{shortID(r.ID), r.LoopID, r.Kind, r.Headline, r.CreatedAt})
	}
	tw.Render()
}

// headline renders the one-line gist of a record by decoding it into a
// snapshot and reading back the typed value.
func headline(rec memory.Record) string {
	snap, err := memory.Snapshot{}.Apply(rec)
	if err != nil {
		return "undecodable: " + err.Error()
	}
	switch {
	case len(snap.Reports) > 0:
		r := snap.Reports[0]
		return fmt.Sprintf("health %.2f, alignment %.2f, decay %.2f", r.HealthScore, r.PlanSummaryAlignmentScore, r.TrustDecay)
	case len(snap.CEO) > 0:
		return fmt.Sprintf("alignment %.2f", snap.CEO[0].AlignmentScore)
	case len(snap.Historian) > 0:
		return fmt.Sprintf("belief alignment %.2f", snap.Historian[0].BeliefAlignmentScore)
	case len(snap.Pessimist) > 0:
		return fmt.Sprintf("bias tags [%s]", strings.Join(snap.Pessimist[0].BiasTags, ", "))
	case len(snap.Sanity) > 0:
		s := snap.Sanity[0]
		return fmt.Sprintf("%s, score %.2f, %d issues", validity(s.Valid), s.ValidationScore, len(s.Issues))
	case len(snap.Risks) > 0:
		r := snap.Risks[0]
		return fmt.Sprintf("%s, confidence %.2f, %d risks", approval(r.Approved), r.ConfidenceScore, len(r.Risks))
	case len(snap.Drift) > 0:
		return fmt.Sprintf("drift %s", snap.Drift[0].DriftSeverity)
	case len(snap.Warnings) > 0:
		w := snap.Warnings[0]
		return fmt.Sprintf("%s: %s", w.WarningType, strings.Join(w.BreachedSignals, ", "))
	case len(snap.Errors) > 0:
		return snap.Errors[0].Message
	}
	return ""
}

func validity(ok bool) string {
	if ok {
		return "valid"
	}
	return "invalid"
}

func approval(ok bool) string {
	if ok {
		return "approved"
	}
	return "rejected"
}

// #endregion record-mode

// #region loop-mode

type loopOutput struct {
	LoopID      string      `json:"loop_id"`
	Records     []recordRow `json:"records"`
	Evaluations []evalRow   `json:"evaluations"`
}

type evalRow struct {
	Operation string `json:"operation"`
	Decision  string `json:"decision"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
}

func runLoopMode(ctx context.Context, store *memory.Store, loopID, kind string, last int, jsonOut bool) error {
	recs, err := store.ListRecords(ctx, memory.Query{LoopID: loopID, Kind: kind, Limit: last})
	if err != nil {
		return err
	}
	entries, err := logging.ListEvaluations(store.DB(), loopID, last)
	if err != nil {
		return err
	}

	out := loopOutput{LoopID: loopID, Records: recordRows(recs)}
	for _, e := range entries {
		out.Evaluations = append(out.Evaluations, evalRow{
			Operation: e.Operation,
			Decision:  e.Decision,
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Loop: %s\n\nRecords:\n", loopID)
	printRecordTable(out.Records)

	fmt.Printf("\nEvaluation log:\n")
	if len(out.Evaluations) == 0 {
		fmt.Println("  (none)")
		return nil
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"Operation", "Decision", "Reason", "Time"})
	for _, e := range out.Evaluations {
		tw.AppendRow(table.Row{e.Operation, e.Decision, truncate(e.Reason, 72), e.CreatedAt})
	}
	tw.Render()
	return nil
}

// #endregion loop-mode

// #region helpers

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	return tw
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// #endregion helpers
