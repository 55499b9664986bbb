package policy

import (
	"database/sql"
	"fmt"
	"time"
)

// #region store

// Store persists applied manifests in SQLite so ground control can audit
// which policies a node has governed under.
type Store struct {
	db *sql.DB
}

// NewStore creates the policy_history table if needed and returns a store.
func NewStore(db *sql.DB) (*Store, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS policy_history (
		epoch       INTEGER PRIMARY KEY,
		version     TEXT NOT NULL,
		manifest    TEXT NOT NULL,
		applied_at  TEXT NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("create policy_history table: %w", err)
	}
	return &Store{db: db}, nil
}

// Record stores an applied manifest. Duplicate epochs are ignored; a
// manifest is immutable once issued.
func (s *Store) Record(m Manifest) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT OR IGNORE INTO policy_history (epoch, version, manifest, applied_at)
		 VALUES (?, ?, ?, ?)`,
		int64(m.Epoch), m.Version, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record policy: %w", err)
	}
	return nil
}

// History returns the n most recently applied manifests, newest first.
func (s *Store) History(n int) ([]Manifest, error) {
	rows, err := s.db.Query(
		`SELECT manifest FROM policy_history ORDER BY epoch DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("list policy history: %w", err)
	}
	defer rows.Close()

	var out []Manifest
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan policy row: %w", err)
		}
		m, err := Decode([]byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// #endregion store
