package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/kestrelrobotics/swarmgov/internal/kernel"
)

func testDecision(id, nodeID string, allowed bool, ts time.Time) kernel.Decision {
	d := kernel.Decision{
		ID:        id,
		Action:    "advance",
		Allowed:   allowed,
		Checks:    []kernel.Check{{Name: kernel.CheckEnergyFloor, Passed: allowed}},
		Epoch:     3,
		Timestamp: ts,
		Node:      kernel.Snapshot{ID: nodeID, Trust: 0.9, NeighborCount: 2},
	}
	if !allowed {
		d.Violations = []string{kernel.CheckEnergyFloor}
	}
	return d
}

func TestAppendAndRecent(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		d := testDecision(string(rune('a'+i)), "n1", i%2 == 0, base.Add(time.Duration(i)*time.Second))
		if err := store.Append(d); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	recent, err := store.Recent("n1", 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("recent length = %d, want 3", len(recent))
	}
	if recent[0].DecisionID != "e" {
		t.Fatalf("newest first expected, got %s", recent[0].DecisionID)
	}
	if recent[0].Epoch != 3 {
		t.Fatalf("epoch = %d, want 3", recent[0].Epoch)
	}
}

func TestViolationCountSince(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.Append(testDecision("a", "n1", false, base))
	store.Append(testDecision("b", "n1", false, base.Add(time.Hour)))
	store.Append(testDecision("c", "n1", true, base.Add(2*time.Hour)))
	store.Append(testDecision("d", "n2", false, base.Add(2*time.Hour)))

	count, err := store.ViolationCount("n1", base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("violation count = %d, want 1", count)
	}
}
