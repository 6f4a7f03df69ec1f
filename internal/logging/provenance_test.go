package logging

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE evaluation_log (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		loop_id      TEXT NOT NULL,
		project_id   TEXT,
		operation    TEXT NOT NULL,
		request_json TEXT,
		result_json  TEXT,
		decision     TEXT NOT NULL,
		reason       TEXT,
		created_at   TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-evaluation-tests
func TestLogEvaluation_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := Entry{
		LoopID:      "loop-1",
		ProjectID:   "proj-1",
		Operation:   "validate_structure",
		RequestJSON: `{"max_loops":5}`,
		ResultJSON:  `{"valid":true}`,
		Decision:    "pass",
		Reason:      "validation score 1.00",
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogEvaluation(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM evaluation_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var loopID, decision string
	db.QueryRow("SELECT loop_id, decision FROM evaluation_log").Scan(&loopID, &decision)
	if loopID != "loop-1" {
		t.Errorf("expected loop_id 'loop-1', got %q", loopID)
	}
	if decision != "pass" {
		t.Errorf("expected decision 'pass', got %q", decision)
	}
}

func TestLogEvaluation_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	if err := LogEvaluation(db, Entry{LoopID: "loop-2", Operation: "generate_drift", Decision: "low"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM evaluation_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogEvaluation_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := Entry{
		LoopID:    "loop-3",
		Operation: "evaluate_risk",
		Decision:  "reject",
		CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := LogEvaluation(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var projectID, request, result, reason sql.NullString
	db.QueryRow("SELECT project_id, request_json, result_json, reason FROM evaluation_log").Scan(
		&projectID, &request, &result, &reason,
	)
	if projectID.Valid || request.Valid || result.Valid || reason.Valid {
		t.Error("expected NULL for empty optional fields")
	}
}

func TestLogEvaluation_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	err := LogEvaluation(db, Entry{LoopID: "loop-4", Operation: "compose_report", Decision: "recorded"})
	if err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-evaluation-tests

// #region list-tests
func TestListEvaluations_FiltersAndOrders(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	for _, e := range []Entry{
		{LoopID: "loop-a", Operation: "validate_structure", Decision: "pass"},
		{LoopID: "loop-b", Operation: "evaluate_risk", Decision: "reject", Reason: "cycle"},
		{LoopID: "loop-a", Operation: "generate_drift", Decision: "moderate"},
	} {
		if err := LogEvaluation(db, e); err != nil {
			t.Fatalf("LogEvaluation: %v", err)
		}
	}

	all, err := ListEvaluations(db, "", 10)
	if err != nil {
		t.Fatalf("ListEvaluations: %v", err)
	}
	if len(all) != 3 || all[0].Operation != "generate_drift" {
		t.Fatalf("expected 3 entries newest first, got %+v", all)
	}

	onlyA, err := ListEvaluations(db, "loop-a", 10)
	if err != nil {
		t.Fatalf("ListEvaluations: %v", err)
	}
	if len(onlyA) != 2 {
		t.Fatalf("expected 2 entries for loop-a, got %d", len(onlyA))
	}

	last, _ := ListEvaluations(db, "", 1)
	if len(last) != 1 || last[0].LoopID != "loop-a" {
		t.Errorf("limit not applied: %+v", last)
	}
}

func TestListEvaluations_CorruptTimestamp(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	_, err := db.Exec(`INSERT INTO evaluation_log (loop_id, operation, decision, created_at)
		VALUES ('loop-a', 'evaluate_risk', 'pass', 'not-a-time')`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := ListEvaluations(db, "loop-a", 10); err == nil {
		t.Fatal("expected error for unparseable created_at")
	}
}

// #endregion list-tests

// #region null-if-empty-tests
func TestNullIfEmpty_Empty(t *testing.T) {
	if result := nullIfEmpty(""); result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestNullIfEmpty_NonEmpty(t *testing.T) {
	if result := nullIfEmpty("hello"); result != "hello" {
		t.Errorf("expected 'hello', got %v", result)
	}
}

// #endregion null-if-empty-tests
