// Package audit persists kernel decisions to SQLite so operators can
// review governance history across restarts. The kernel's in-memory ring
// is authoritative for escalation; this sink is optional.
package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kestrelrobotics/swarmgov/internal/kernel"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS decision_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	decision_id  TEXT NOT NULL,
	node_id      TEXT NOT NULL,
	action       TEXT NOT NULL,
	allowed      INTEGER NOT NULL,
	violations   TEXT,
	checks_json  TEXT NOT NULL,
	snapshot_json TEXT NOT NULL,
	epoch        INTEGER NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decision_node ON decision_log(node_id);
`

// #endregion schema

// #region store
// Store writes decision records to a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the audit database and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore attaches to an existing database handle and runs migrations.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying handle for co-located stores.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store

// #region append

// Append writes one decision row.
func (s *Store) Append(d kernel.Decision) error {
	checks, err := json.Marshal(d.Checks)
	if err != nil {
		return fmt.Errorf("marshal checks: %w", err)
	}
	snapshot, err := json.Marshal(d.Node)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	violations, err := json.Marshal(d.Violations)
	if err != nil {
		return fmt.Errorf("marshal violations: %w", err)
	}
	allowed := 0
	if d.Allowed {
		allowed = 1
	}
	_, err = s.db.Exec(
		`INSERT INTO decision_log (decision_id, node_id, action, allowed, violations, checks_json, snapshot_json, epoch, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Node.ID, d.Action, allowed, string(violations), string(checks),
		string(snapshot), int64(d.Epoch), d.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append decision: %w", err)
	}
	return nil
}

// #endregion append

// #region queries

// Entry is one persisted decision row.
type Entry struct {
	DecisionID string
	NodeID     string
	Action     string
	Allowed    bool
	Violations []string
	Epoch      uint64
	CreatedAt  time.Time
}

// Recent returns the n most recent decisions for a node, newest first.
func (s *Store) Recent(nodeID string, n int) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT decision_id, node_id, action, allowed, violations, epoch, created_at
		 FROM decision_log WHERE node_id = ? ORDER BY id DESC LIMIT ?`,
		nodeID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent decisions: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ViolationCount counts DENY rows for a node since the given instant.
func (s *Store) ViolationCount(nodeID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM decision_log WHERE node_id = ? AND allowed = 0 AND created_at >= ?`,
		nodeID, since.UTC().Format(time.RFC3339Nano),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count violations: %w", err)
	}
	return count, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var e Entry
		var allowed int
		var violations string
		var created string
		var epoch int64
		if err := rows.Scan(&e.DecisionID, &e.NodeID, &e.Action, &allowed, &violations, &epoch, &created); err != nil {
			return nil, fmt.Errorf("scan decision row: %w", err)
		}
		e.Allowed = allowed == 1
		e.Epoch = uint64(epoch)
		if violations != "" {
			if err := json.Unmarshal([]byte(violations), &e.Violations); err != nil {
				return nil, fmt.Errorf("unmarshal violations: %w", err)
			}
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion queries
