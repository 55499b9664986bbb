package kernel

import (
	"testing"
	"time"

	"github.com/kestrelrobotics/swarmgov/internal/oscillator"
	"github.com/kestrelrobotics/swarmgov/internal/policy"
)

var testKey = []byte("ground-control-key-0123456789abc")

func testManifest(epoch uint64) policy.Manifest {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return policy.Manifest{
		Epoch:   epoch,
		Version: "2.0.0",
		Params: policy.Params{
			MinSeparation:   1.0,
			EnergyFloor:     0.1,
			MinTrust:        0.2,
			MaxDrift:        0.5,
			AllowedRoles:    []string{"WORKER", "SCOUT", "SENTINEL", "LEADER"},
			SuppressedModes: []string{"HAZARD"},
		},
		IssuedAt:  issued,
		ExpiresAt: issued.Add(24 * time.Hour),
	}
}

// newTestKernel returns a kernel with one registered node, an active
// epoch-1 policy, and a clock frozen inside the policy window.
func newTestKernel(t *testing.T) (*Kernel, *policy.Signer) {
	t.Helper()
	signer := policy.NewSigner(testKey)
	k := NewKernel(DefaultConfig(), signer)
	k.now = func() time.Time { return time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC) }
	k.Register("n1")

	m, err := signer.Sign(testManifest(1))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if verr := k.ApplyPolicy(m); verr != nil {
		t.Fatalf("apply policy: %v", verr)
	}
	return k, signer
}

func TestAllowWhenAllInvariantsPass(t *testing.T) {
	k, _ := newTestKernel(t)
	d := k.CheckInvariants("n1", "advance")
	if !d.Allowed {
		t.Fatalf("expected ALLOW, violations: %v", d.Violations)
	}
	if len(d.Checks) != 6 {
		t.Fatalf("expected 6 reported checks, got %d", len(d.Checks))
	}
	if d.Epoch != 1 {
		t.Fatalf("decision epoch = %d, want 1", d.Epoch)
	}
}

func TestEnergyFloorScenario(t *testing.T) {
	k, _ := newTestKernel(t)
	k.SetEnergy("n1", 0.05) // policy floor is 0.1

	d := k.CheckInvariants("n1", "advance")
	if d.Allowed {
		t.Fatal("expected DENY")
	}
	if len(d.Violations) != 1 || d.Violations[0] != CheckEnergyFloor {
		t.Fatalf("violations = %v, want [energy_floor]", d.Violations)
	}

	k.SetHumanOverride("n1", true)
	d = k.CheckInvariants("n1", "advance")
	if !d.Allowed {
		t.Fatal("override engaged: expected ALLOW")
	}
}

func TestHumanOverrideDominates(t *testing.T) {
	k, _ := newTestKernel(t)
	k.SetEnergy("n1", 0)
	k.SetTrust("n1", 0)
	k.SetHazard("n1", true)
	k.SetMode("n1", oscillator.ModeHazard)
	k.SetHumanOverride("n1", true)

	d := k.CheckInvariants("n1", "advance")
	if !d.Allowed {
		t.Fatalf("override must allow unconditionally, violations: %v", d.Violations)
	}
	if len(d.Checks) != 1 || d.Checks[0].Name != CheckHumanOverride {
		t.Fatalf("override decision should report only the bypass check, got %+v", d.Checks)
	}
}

func TestAllViolationsReported(t *testing.T) {
	k, _ := newTestKernel(t)
	k.SetEnergy("n1", 0)
	k.SetTrust("n1", 0)
	k.SetHazard("n1", true)
	k.SetMode("n1", oscillator.ModeHazard)
	k.SetRole("n1", RoleDormant)

	d := k.CheckInvariants("n1", "advance")
	if d.Allowed {
		t.Fatal("expected DENY")
	}
	want := []string{CheckEnergyFloor, CheckMinTrust, CheckRoleAllowed, CheckModeSuppressed, CheckHazardFlag}
	if len(d.Violations) != len(want) {
		t.Fatalf("violations = %v, want %v", d.Violations, want)
	}
	for i, v := range want {
		if d.Violations[i] != v {
			t.Fatalf("violation[%d] = %s, want %s", i, d.Violations[i], v)
		}
	}
	// Every check is still present in the report.
	if len(d.Checks) != 6 {
		t.Fatalf("expected all 6 checks reported, got %d", len(d.Checks))
	}
}

func TestEpochReplayRejected(t *testing.T) {
	k, signer := newTestKernel(t)
	m2, _ := signer.Sign(testManifest(2))
	if verr := k.ApplyPolicy(m2); verr != nil {
		t.Fatalf("apply epoch 2: %v", verr)
	}

	m1, _ := signer.Sign(testManifest(1))
	if verr := k.ApplyPolicy(m1); verr == nil || verr.Reason != policy.RejectEpochNotMonotonic {
		t.Fatalf("epoch 1 replay: want epoch_not_monotonic, got %v", verr)
	}
	replay2, _ := signer.Sign(testManifest(2))
	if verr := k.ApplyPolicy(replay2); verr == nil || verr.Reason != policy.RejectEpochNotMonotonic {
		t.Fatalf("epoch 2 replay: want epoch_not_monotonic, got %v", verr)
	}

	if active, _ := k.ActivePolicy(); active.Epoch != 2 {
		t.Fatalf("active epoch = %d, want 2", active.Epoch)
	}
}

func TestBadSignatureKeepsLastGoodPolicy(t *testing.T) {
	k, _ := newTestKernel(t)
	forged := testManifest(5)
	forged.Signature = "deadbeef"
	verr := k.ApplyPolicy(forged)
	if verr == nil || verr.Reason != policy.RejectInvalidSignature {
		t.Fatalf("want invalid_signature, got %v", verr)
	}
	if active, ok := k.ActivePolicy(); !ok || active.Epoch != 1 {
		t.Fatalf("last-good policy lost: %+v", active)
	}
}

func TestPolicyGracePeriod(t *testing.T) {
	k, _ := newTestKernel(t)
	expiry := testManifest(1).ExpiresAt

	// Inside grace: invariant 7 still passes.
	k.now = func() time.Time { return expiry.Add(time.Minute) }
	d := k.CheckInvariants("n1", "advance")
	if !d.Allowed {
		t.Fatalf("expected ALLOW inside grace period, violations: %v", d.Violations)
	}

	// Beyond grace: invariant 7 fails.
	k.now = func() time.Time { return expiry.Add(time.Hour) }
	d = k.CheckInvariants("n1", "advance")
	if d.Allowed {
		t.Fatal("expected DENY beyond grace period")
	}
	if len(d.Violations) != 1 || d.Violations[0] != CheckPolicyValid {
		t.Fatalf("violations = %v, want [policy_valid]", d.Violations)
	}
}

func TestNoPolicyFailsInvariantSeven(t *testing.T) {
	signer := policy.NewSigner(testKey)
	k := NewKernel(DefaultConfig(), signer)
	k.Register("n1")

	d := k.CheckInvariants("n1", "advance")
	if d.Allowed {
		t.Fatal("expected DENY with no policy applied")
	}
	if len(d.Violations) != 1 || d.Violations[0] != CheckPolicyValid {
		t.Fatalf("violations = %v, want [policy_valid]", d.Violations)
	}
}

func TestPolicyChangeLeavesAgentStateUntouched(t *testing.T) {
	k, signer := newTestKernel(t)
	k.SetTrust("n1", 0.6)
	k.SetEnergy("n1", 0.4)
	k.SetRole("n1", RoleScout)

	m2, _ := signer.Sign(testManifest(2))
	if verr := k.ApplyPolicy(m2); verr != nil {
		t.Fatalf("apply: %v", verr)
	}

	n, _ := k.Node("n1")
	if n.Trust != 0.6 || n.Energy != 0.4 || n.Role != RoleScout {
		t.Fatalf("agent state mutated by policy change: %+v", n)
	}
	if hist := k.PolicyHistory(); len(hist) != 1 || hist[0].Epoch != 1 {
		t.Fatalf("superseded policy not in history: %+v", hist)
	}
}

func TestEnergyAccounting(t *testing.T) {
	k, _ := newTestKernel(t)
	k.SetEnergy("n1", 0.5)
	k.ConsumeEnergy("n1", 0.2)
	if n, _ := k.Node("n1"); n.Energy != 0.3 {
		t.Fatalf("energy = %v, want 0.3", n.Energy)
	}
	k.ConsumeEnergy("n1", 5.0)
	if n, _ := k.Node("n1"); n.Energy != 0 {
		t.Fatalf("energy = %v, want clamp at 0", n.Energy)
	}
	k.RechargeEnergy("n1", 5.0)
	if n, _ := k.Node("n1"); n.Energy != 1 {
		t.Fatalf("energy = %v, want clamp at 1", n.Energy)
	}
}

func TestNeighborTruncation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NeighborCap = 3
	k := NewKernel(cfg, policy.NewSigner(testKey))
	k.Register("n1")
	k.SetNeighbors("n1", []string{"a", "b", "c", "d", "e"})

	n, _ := k.Node("n1")
	if len(n.Neighbors) != 3 {
		t.Fatalf("neighbor count = %d, want truncated to 3", len(n.Neighbors))
	}
}

func TestAuditLogBoundedAndCounted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AuditLogSize = 10
	k := NewKernel(cfg, policy.NewSigner(testKey))
	k.Register("n1") // no policy → every decision denies

	for i := 0; i < 25; i++ {
		k.CheckInvariants("n1", "probe")
	}
	log := k.AuditLog()
	if len(log) != 10 {
		t.Fatalf("audit log length = %d, want cap 10", len(log))
	}
	if got := k.RecentViolations(5); got != 5 {
		t.Fatalf("recent violations = %d, want 5", got)
	}
	// Snapshot reduces neighbors to a count.
	k.SetNeighbors("n1", []string{"a", "b"})
	d := k.CheckInvariants("n1", "probe")
	if d.Node.NeighborCount != 2 {
		t.Fatalf("snapshot neighbor count = %d, want 2", d.Node.NeighborCount)
	}
}

func TestConfigSanitizedOnConstruction(t *testing.T) {
	k := NewKernel(Config{NeighborCap: -1, AuditLogSize: -1, PolicyGrace: -time.Minute}, policy.NewSigner(testKey))
	c := k.Config()
	d := DefaultConfig()
	if c.NeighborCap != d.NeighborCap || c.AuditLogSize != d.AuditLogSize {
		t.Fatalf("non-positive bounds not defaulted: %+v", c)
	}
	if c.PolicyGrace != 0 {
		t.Fatalf("negative grace = %v, want 0", c.PolicyGrace)
	}

	// The decision ring honors the same sanitized size.
	k.Register("n1")
	for i := 0; i < d.AuditLogSize+10; i++ {
		k.CheckInvariants("n1", "advance")
	}
	if got := len(k.AuditLog()); got != d.AuditLogSize {
		t.Fatalf("audit log length = %d, want sanitized cap %d", got, d.AuditLogSize)
	}
}

func TestUnknownNodeDenies(t *testing.T) {
	k, _ := newTestKernel(t)
	d := k.CheckInvariants("ghost", "advance")
	if d.Allowed {
		t.Fatal("unknown node must deny")
	}
}
