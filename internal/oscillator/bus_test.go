package oscillator

import (
	"math"
	"testing"

	"github.com/kestrelrobotics/swarmgov/internal/geometry"
)

func newTestBus() *Bus {
	return NewBus(DefaultConfig())
}

func TestCouplingHardCap(t *testing.T) {
	b := NewBus(Config{Coupling: 500})
	if k := b.Config().Coupling; k != MaxCoupling {
		t.Fatalf("coupling = %v, want hard cap %v", k, MaxCoupling)
	}
}

func TestFrequencyCapped(t *testing.T) {
	b := newTestBus()
	b.Register("a", 1e6, 0)
	s, _ := b.State("a")
	if s.Frequency != b.Config().MaxFrequency {
		t.Fatalf("frequency = %v, want cap %v", s.Frequency, b.Config().MaxFrequency)
	}
	b.SetFrequency("a", -4)
	s, _ = b.State("a")
	if s.Frequency != 0 {
		t.Fatalf("negative frequency = %v, want 0", s.Frequency)
	}
}

func TestModeBands(t *testing.T) {
	cases := []struct {
		hz   float64
		want Mode
	}{
		{0.0, ModeRegroup},
		{1.0, ModeRegroup},
		{2.0, ModeExplore},
		{4.9, ModeExplore},
		{5.0, ModeCommit},
		{10.0, ModeCommit},
		{10.1, ModeHazard},
	}
	for _, tc := range cases {
		if got := ModeForFrequency(tc.hz); got != tc.want {
			t.Fatalf("ModeForFrequency(%v) = %s, want %s", tc.hz, got, tc.want)
		}
	}
}

func TestInjectModeLandsInBand(t *testing.T) {
	b := newTestBus()
	b.Register("a", 1.0, 0)
	for _, m := range []Mode{ModeRegroup, ModeExplore, ModeCommit, ModeHazard} {
		b.InjectMode("a", m)
		s, _ := b.State("a")
		if got := ModeForFrequency(s.Frequency); got != m {
			t.Fatalf("injected %s, frequency %v classifies as %s", m, s.Frequency, got)
		}
	}
}

func TestPhaseAlwaysWrapped(t *testing.T) {
	b := NewBus(Config{Coupling: 0, MaxFrequency: 50, Dt: 0.3})
	b.Register("a", 40, 6.0)
	for i := 0; i < 200; i++ {
		b.Step()
		s, _ := b.State("a")
		if s.Phase < 0 || s.Phase >= 2*math.Pi {
			t.Fatalf("phase %v outside [0, 2π) at step %d", s.Phase, i)
		}
	}
}

func TestIdenticalOscillatorsSynchronize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Coupling = 4.0
	b := NewBus(cfg)
	phases := []float64{0.3, 2.1, 4.4, 5.5}
	for i, p := range phases {
		b.Register(string(rune('a'+i)), 1.0, p)
	}

	prev, _ := b.OrderParameter()
	for i := 0; i < 100; i++ {
		b.Step()
		r, _ := b.OrderParameter()
		if r < 0 || r > 1+1e-9 {
			t.Fatalf("order parameter %v outside [0,1]", r)
		}
		if r < prev-1e-6 {
			t.Fatalf("order parameter decreased %v -> %v at step %d for identical oscillators", prev, r, i)
		}
		prev = r
	}
	if prev < 0.99 {
		t.Fatalf("identical oscillators failed to synchronize, r = %v", prev)
	}
}

func TestCoupledAgentsConvergeToSharedMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Coupling = MaxCoupling
	b := NewBus(cfg)
	b.Register("slow", 1.5, 0) // REGROUP band natural frequency
	b.Register("fast", 3.5, 2) // EXPLORE band natural frequency

	// Before any step, modes reflect the natural frequencies.
	slow, _ := b.State("slow")
	fast, _ := b.State("fast")
	if slow.Mode != ModeRegroup || fast.Mode != ModeExplore {
		t.Fatalf("pre-step modes = %s/%s, want REGROUP/EXPLORE", slow.Mode, fast.Mode)
	}

	for i := 0; i < 2000; i++ {
		b.Step()
	}

	// Phase-locked agents share an instantaneous frequency near the mean
	// (2.5 Hz), so both classify into the EXPLORE band.
	slow, _ = b.State("slow")
	fast, _ = b.State("fast")
	slowHz := slow.PhaseVelocity / (2 * math.Pi)
	fastHz := fast.PhaseVelocity / (2 * math.Pi)
	if math.Abs(slowHz-fastHz) > 0.05 {
		t.Fatalf("agents did not phase-lock: %v Hz vs %v Hz", slowHz, fastHz)
	}
	if slow.Mode != fast.Mode {
		t.Fatalf("coupled agents never agreed on a mode: %s vs %s", slow.Mode, fast.Mode)
	}
	if slow.Mode != ModeExplore {
		t.Fatalf("locked mode = %s at %v Hz, want EXPLORE", slow.Mode, slowHz)
	}
}

func TestCircularProximityOrderParameter(t *testing.T) {
	b := NewBus(Config{Coupling: 0})
	b.Register("a", 1.0, 0)
	b.Register("b", 1.0, 0.01)
	b.Register("c", 1.0, 6.27) // just below 2π, circularly near 0

	r, _ := b.OrderParameter()
	if r < 0.99 {
		t.Fatalf("order parameter %v, want ≈1 for circularly proximate phases", r)
	}
}

func TestLowTrustPeerDownWeighted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Coupling = 2.0
	cfg.MinTrust = 0.0
	b := NewBus(cfg)
	b.Register("honest", 1.0, 0)
	b.Register("rogue", 1.0, 3*math.Pi/2) // spoofer pulling the phase backward
	b.Register("peer", 1.0, 0.1)
	b.SetTrust("rogue", 0.05)

	frozen := b.States()
	var honest State
	for _, s := range frozen {
		if s.ID == "honest" {
			honest = s
		}
	}
	coupling := b.couplingFor(honest, frozen)
	// The near-phase trusted peer should dominate the down-weighted rogue.
	if coupling <= 0 {
		t.Fatalf("low-trust rogue dominated coupling: %v", coupling)
	}
}

func TestCouplingRadiusQualification(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CouplingRadius = 5.0
	b := NewBus(cfg)
	b.Register("a", 1.0, 0)
	b.Register("far", 1.0, math.Pi)
	b.SetPosition("far", geometry.Vec3{X: 100})

	frozen := b.States()
	var a State
	for _, s := range frozen {
		if s.ID == "a" {
			a = s
		}
	}
	if c := b.couplingFor(a, frozen); c != 0 {
		t.Fatalf("out-of-radius neighbor produced coupling %v", c)
	}
}

func TestClusterCountPartitions(t *testing.T) {
	b := NewBus(Config{Coupling: 0})
	b.Register("a1", 1.0, 0.0)
	b.Register("a2", 1.0, 0.1)
	b.Register("b1", 1.0, math.Pi)
	b.Register("b2", 1.0, math.Pi+0.1)

	if got := b.ClusterCount(); got != 2 {
		t.Fatalf("cluster count = %d, want 2", got)
	}
}

func TestListenerNotifiedPerStep(t *testing.T) {
	b := newTestBus()
	b.Register("a", 1.0, 0)
	var calls int
	b.Subscribe(func(s Snapshot) {
		calls++
		if len(s.States) != 1 {
			t.Fatalf("snapshot has %d states, want 1", len(s.States))
		}
	})
	b.Step()
	b.Step()
	if calls != 2 {
		t.Fatalf("listener called %d times, want 2", calls)
	}
}

func TestEmptyBusTelemetry(t *testing.T) {
	b := newTestBus()
	if r, _ := b.OrderParameter(); r != 0 {
		t.Fatalf("empty bus order parameter = %v, want 0", r)
	}
	if n := b.ClusterCount(); n != 0 {
		t.Fatalf("empty bus cluster count = %d, want 0", n)
	}
	if m := b.DominantMode(); m != ModeRegroup {
		t.Fatalf("empty bus dominant mode = %s, want REGROUP", m)
	}
}
