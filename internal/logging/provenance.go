package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-evaluation
// LogEvaluation writes an entry to the evaluation_log table.
func LogEvaluation(db *sql.DB, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO evaluation_log (loop_id, project_id, operation, request_json, result_json, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.LoopID,
		nullIfEmpty(entry.ProjectID),
		entry.Operation,
		nullIfEmpty(entry.RequestJSON),
		nullIfEmpty(entry.ResultJSON),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log evaluation: %w", err)
	}
	return nil
}

// #endregion log-evaluation

// #region list-evaluations
// ListEvaluations returns the newest entries first. An empty loopID lists
// every loop.
func ListEvaluations(db *sql.DB, loopID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(
		`SELECT id, loop_id, project_id, operation, request_json, result_json, decision, reason, created_at
		 FROM evaluation_log WHERE (? = '' OR loop_id = ?) ORDER BY id DESC LIMIT ?`,
		loopID, loopID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var projectID, request, result, reason sql.NullString
		var created string
		if err := rows.Scan(&e.ID, &e.LoopID, &projectID, &e.Operation, &request, &result, &e.Decision, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		e.ProjectID = projectID.String
		e.RequestJSON = request.String
		e.ResultJSON = result.String
		e.Reason = reason.String
		ts, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation %d: %w", e.ID, err)
		}
		e.CreatedAt = ts
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion list-evaluations

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
