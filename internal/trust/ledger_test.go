package trust

import (
	"database/sql"
	"math"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "trust.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	l, err := NewLedger(db)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return l
}

func TestUnknownAgentDefaultsToFullTrust(t *testing.T) {
	l := newTestLedger(t)
	score, err := l.Score("ghost")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 1.0 {
		t.Fatalf("score = %v, want 1.0", score)
	}
}

func TestApplyClampsToUnitInterval(t *testing.T) {
	l := newTestLedger(t)
	if err := l.Seed("a", 0.5); err != nil {
		t.Fatalf("seed: %v", err)
	}

	score, err := l.Apply("a", -2.0, "anomaly_detector", "spoofed telemetry")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if score != 0 {
		t.Fatalf("score = %v, want clamp at 0", score)
	}

	score, err = l.Apply("a", 9.0, "operator", "manual restore")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if score != 1 {
		t.Fatalf("score = %v, want clamp at 1", score)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	l := newTestLedger(t)
	l.Seed("a", 1.0)
	l.Apply("a", -0.1, "anomaly_detector", "first")
	l.Apply("a", -0.2, "anomaly_detector", "second")

	hist, err := l.History("a", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("history length = %d, want 2", len(hist))
	}
	if hist[0].Reason != "second" || hist[1].Reason != "first" {
		t.Fatalf("history order wrong: %+v", hist)
	}
	if math.Abs(hist[0].Score-0.7) > 1e-9 {
		t.Fatalf("cumulative score = %v, want 0.7", hist[0].Score)
	}
}
