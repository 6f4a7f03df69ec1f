package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS records (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	loop_id      TEXT NOT NULL,
	kind         TEXT NOT NULL,
	payload_json TEXT NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS records_loop ON records(loop_id, seq);

CREATE TABLE IF NOT EXISTS evaluation_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	loop_id      TEXT NOT NULL,
	project_id   TEXT,
	operation    TEXT NOT NULL,
	request_json TEXT,
	result_json  TEXT,
	decision     TEXT NOT NULL,
	reason       TEXT,
	created_at   TEXT NOT NULL
);
`

// #endregion schema

// #region store-struct
// Store persists governance records in SQLite. Writes are serialized by
// SQLite; readers rebuild snapshots per request.
type Store struct {
	db  *sql.DB
	Now func() time.Time
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		// each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, Now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region append
// NewRecord marshals v into a record for loopID. ID and CreatedAt are
// filled by Append.
func NewRecord(loopID, kind string, v any) (Record, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return Record{}, fmt.Errorf("marshal %s: %w", kind, err)
	}
	return Record{LoopID: loopID, Kind: kind, Payload: payload}, nil
}

// Append stores rec and returns it with ID and CreatedAt set.
func (s *Store) Append(ctx context.Context, rec Record) (Record, error) {
	if rec.LoopID == "" {
		return Record{}, fmt.Errorf("append %s: empty loop id", rec.Kind)
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (id, loop_id, kind, payload_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.LoopID, rec.Kind, string(rec.Payload), rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

// AppendAll stores every record in one transaction.
func (s *Store) AppendAll(ctx context.Context, recs []Record) ([]Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		if rec.LoopID == "" {
			return nil, fmt.Errorf("append %s: empty loop id", rec.Kind)
		}
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = s.Now().UTC()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO records (id, loop_id, kind, payload_json, created_at) VALUES (?, ?, ?, ?, ?)`,
			rec.ID, rec.LoopID, rec.Kind, string(rec.Payload), rec.CreatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return nil, fmt.Errorf("insert record: %w", err)
		}
		out = append(out, rec)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

// #endregion append

// #region load
// Load rebuilds the snapshot of every record stored for loopID.
// It returns ErrNotFound when the loop has no records.
func (s *Store) Load(ctx context.Context, loopID string) (Snapshot, error) {
	recs, err := s.query(ctx,
		`SELECT id, loop_id, kind, payload_json, created_at FROM records WHERE loop_id = ? ORDER BY seq`,
		loopID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load loop %s: %w", loopID, err)
	}
	if len(recs) == 0 {
		return Snapshot{}, fmt.Errorf("load loop %s: %w", loopID, ErrNotFound)
	}

	var snap Snapshot
	for _, rec := range recs {
		if snap, err = snap.Apply(rec); err != nil {
			return Snapshot{}, fmt.Errorf("load loop %s: %w", loopID, err)
		}
	}
	return snap, nil
}

// #endregion load

// #region list
// ListLoops returns the most recently updated loops first.
func (s *Store) ListLoops(ctx context.Context, limit int) ([]LoopInfo, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`WITH latest AS (
			SELECT loop_id, COUNT(*) AS n, MAX(seq) AS last_seq FROM records GROUP BY loop_id
		 )
		 SELECT l.loop_id, l.n, r.kind, r.created_at
		 FROM latest l JOIN records r ON r.seq = l.last_seq
		 ORDER BY l.last_seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list loops: %w", err)
	}
	defer rows.Close()

	var loops []LoopInfo
	for rows.Next() {
		var info LoopInfo
		var created string
		if err := rows.Scan(&info.LoopID, &info.Records, &info.LastKind, &created); err != nil {
			return nil, fmt.Errorf("scan loop: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("scan loop %s: %w", info.LoopID, err)
		}
		info.LastUpdate = ts
		loops = append(loops, info)
	}
	return loops, rows.Err()
}

// ListRecords returns matching records, newest first.
func (s *Store) ListRecords(ctx context.Context, q Query) ([]Record, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	recs, err := s.query(ctx,
		`SELECT id, loop_id, kind, payload_json, created_at FROM records
		 WHERE (? = '' OR loop_id = ?) AND (? = '' OR kind = ?)
		 ORDER BY seq DESC LIMIT ?`,
		q.LoopID, q.LoopID, q.Kind, q.Kind, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return recs, nil
}

func (s *Store) query(ctx context.Context, stmt string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		var payload, created string
		if err := rows.Scan(&rec.ID, &rec.LoopID, &rec.Kind, &payload, &created); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Payload = json.RawMessage(payload)
		ts, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("scan record %s: %w", rec.ID, err)
		}
		rec.CreatedAt = ts
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// #endregion list
