// Package trust keeps the per-agent trust ledger. The Byzantine/anomaly
// detection subsystem is external; it reports score adjustments here, and
// the tick driver mirrors the cumulative score into every subsystem's
// trust field.
package trust

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS trust_scores (
	agent_id   TEXT PRIMARY KEY,
	score      REAL NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS trust_adjustments (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_id   TEXT NOT NULL,
	delta      REAL NOT NULL,
	score      REAL NOT NULL,
	source     TEXT NOT NULL,
	reason     TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_adjust_agent ON trust_adjustments(agent_id);
`

// #endregion schema

// #region ledger
// Adjustment is one recorded trust change.
type Adjustment struct {
	AgentID   string
	Delta     float64
	Score     float64 // cumulative score after this adjustment
	Source    string  // reporting subsystem, e.g. "anomaly_detector"
	Reason    string
	CreatedAt time.Time
}

// Ledger manages persistent trust scores. Scores are always clamped to
// [0,1]; adjustments beyond the clamp are recorded with the clamped
// result.
type Ledger struct {
	db *sql.DB
}

// NewLedger creates tables and returns a ledger.
func NewLedger(db *sql.DB) (*Ledger, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("trust schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// #endregion ledger

// #region operations

// Seed sets an agent's initial score, clamped to [0,1]. Existing scores
// are overwritten.
func (l *Ledger) Seed(agentID string, score float64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := l.db.Exec(
		`INSERT INTO trust_scores (agent_id, score, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(agent_id) DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at`,
		agentID, clamp01(score), now,
	)
	if err != nil {
		return fmt.Errorf("seed trust: %w", err)
	}
	return nil
}

// Apply records a delta from a reporting source and returns the clamped
// cumulative score. Unknown agents start from a score of 1.0.
func (l *Ledger) Apply(agentID string, delta float64, source, reason string) (float64, error) {
	current, err := l.Score(agentID)
	if err != nil {
		return 0, err
	}
	next := clamp01(current + delta)
	now := time.Now().UTC()

	tx, err := l.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO trust_scores (agent_id, score, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(agent_id) DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at`,
		agentID, next, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("update trust score: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO trust_adjustments (agent_id, delta, score, source, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		agentID, delta, next, source, reason, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("record trust adjustment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

// Score returns an agent's current trust. Agents with no ledger entry
// default to full trust.
func (l *Ledger) Score(agentID string) (float64, error) {
	var score float64
	err := l.db.QueryRow(
		`SELECT score FROM trust_scores WHERE agent_id = ?`, agentID,
	).Scan(&score)
	if err == sql.ErrNoRows {
		return 1.0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get trust score: %w", err)
	}
	return score, nil
}

// History returns the n most recent adjustments for an agent, newest
// first.
func (l *Ledger) History(agentID string, n int) ([]Adjustment, error) {
	rows, err := l.db.Query(
		`SELECT agent_id, delta, score, source, reason, created_at
		 FROM trust_adjustments WHERE agent_id = ? ORDER BY id DESC LIMIT ?`,
		agentID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()

	var out []Adjustment
	for rows.Next() {
		var a Adjustment
		var reason sql.NullString
		var created string
		if err := rows.Scan(&a.AgentID, &a.Delta, &a.Score, &a.Source, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		a.Reason = reason.String
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, a)
	}
	return out, rows.Err()
}

// #endregion operations

// #region helpers

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
