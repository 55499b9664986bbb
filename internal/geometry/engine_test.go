package geometry

import (
	"math"
	"testing"
)

func newTestEngine() *Engine {
	return NewEngine(DefaultConfig())
}

func TestConfigClampsWeightsToCeilings(t *testing.T) {
	e := NewEngine(Config{
		CohesionWeight:   100,
		SeparationWeight: 100,
		GoalWeight:       100,
		DriftWeight:      100,
		MaxSpeed:         5,
		Dt:               0.1,
	})
	c := e.Config()
	if c.CohesionWeight != MaxCohesionWeight {
		t.Fatalf("cohesion weight %v, want cap %v", c.CohesionWeight, MaxCohesionWeight)
	}
	if c.SeparationWeight != MaxSeparationWeight {
		t.Fatalf("separation weight %v, want cap %v", c.SeparationWeight, MaxSeparationWeight)
	}
	if c.GoalWeight != MaxGoalWeight {
		t.Fatalf("goal weight %v, want cap %v", c.GoalWeight, MaxGoalWeight)
	}
	if c.DriftWeight != MaxDriftWeight {
		t.Fatalf("drift weight %v, want cap %v", c.DriftWeight, MaxDriftWeight)
	}
}

func TestConfigClampsNegativeValues(t *testing.T) {
	e := NewEngine(Config{CohesionWeight: -1, MaxSpeed: -3, MinSeparation: -2})
	c := e.Config()
	if c.CohesionWeight != 0 || c.MaxSpeed != 0 || c.MinSeparation != 0 {
		t.Fatalf("negative config not clamped to zero: %+v", c)
	}
	if c.Dt <= 0 {
		t.Fatalf("non-positive Dt not defaulted: %v", c.Dt)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	if got := Zero.Normalize(); !got.IsZero() {
		t.Fatalf("zero vector normalized to %+v, want zero", got)
	}
}

func TestCentroidTrustWeighted(t *testing.T) {
	e := newTestEngine()
	e.Register("a", Vec3{X: 0})
	e.Register("b", Vec3{X: 10})
	e.SetTrust("a", 1.0)
	e.SetTrust("b", 0.25)

	c := e.Centroid()
	want := 10 * 0.25 / 1.25
	if math.Abs(c.X-want) > 1e-9 {
		t.Fatalf("centroid X = %v, want %v", c.X, want)
	}
}

func TestCentroidZeroTrustDoesNotDivideByZero(t *testing.T) {
	e := newTestEngine()
	e.Register("a", Vec3{X: 2})
	e.SetTrust("a", 0)

	c := e.Centroid()
	if math.IsNaN(c.X) {
		t.Fatal("centroid is NaN for zero-trust swarm")
	}
	if math.Abs(c.X-2) > 1e-9 {
		t.Fatalf("centroid X = %v, want 2", c.X)
	}
}

func TestCentroidEmptyRegistry(t *testing.T) {
	e := newTestEngine()
	if got := e.Centroid(); !got.IsZero() {
		t.Fatalf("empty-registry centroid = %+v, want zero", got)
	}
}

func TestGoalForceCappedAtOne(t *testing.T) {
	e := newTestEngine()
	e.Register("a", Vec3{})
	e.SetGoal("a", Vec3{X: 1000})

	fb := e.Forces("a")
	if n := fb.Goal.Norm(); math.Abs(n-1.0) > 1e-9 {
		t.Fatalf("goal force norm = %v, want exactly 1.0", n)
	}
}

func TestSeparationStrictlyLocal(t *testing.T) {
	e := newTestEngine()
	e.Register("a", Vec3{})
	e.Register("far", Vec3{X: 100}) // outside SeparationRadius

	fb := e.Forces("a")
	if !fb.Separation.IsZero() {
		t.Fatalf("out-of-radius neighbor contributed separation %+v", fb.Separation)
	}
}

func TestSeparationInverseDistance(t *testing.T) {
	e := newTestEngine()
	e.Register("a", Vec3{})
	e.Register("b", Vec3{X: 2})

	fb := e.Forces("a")
	if fb.Separation.X >= 0 {
		t.Fatalf("separation should point away from neighbor, got %+v", fb.Separation)
	}
	if math.Abs(fb.Separation.Norm()-0.5) > 1e-9 {
		t.Fatalf("separation magnitude = %v, want 1/d = 0.5", fb.Separation.Norm())
	}
}

func TestResultantCappedAtMaxSpeed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSpeed = 2.0
	e := NewEngine(cfg)
	e.Register("a", Vec3{})
	e.Register("b", Vec3{X: 0.1}) // strong repulsion
	e.SetGoal("a", Vec3{X: -500})

	fb := e.Forces("a")
	if n := fb.Resultant.Norm(); n > 2.0+1e-9 {
		t.Fatalf("resultant norm %v exceeds max speed", n)
	}

	e.Step()
	for _, a := range e.Agents() {
		if n := a.Velocity.Norm(); n > 2.0+1e-9 {
			t.Fatalf("agent %s velocity %v exceeds max speed after step", a.ID, n)
		}
	}
}

func TestStepExcludesNoGoZones(t *testing.T) {
	e := newTestEngine()
	e.Register("a", Vec3{X: 0.1})
	e.AddZone(Vec3{}, 5.0)

	e.Step()

	a, _ := e.Agent("a")
	for _, z := range e.Zones() {
		if z.Contains(a.Position) {
			t.Fatalf("agent inside no-go zone after step: %+v", a.Position)
		}
	}
}

func TestZoneProjectionFromExactCenter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CohesionWeight = 0
	cfg.SeparationWeight = 0
	e := NewEngine(cfg)
	e.Register("a", Vec3{})
	e.AddZone(Vec3{}, 3.0)

	e.Step()

	a, _ := e.Agent("a")
	if d := a.Position.Norm(); d < 3.0 {
		t.Fatalf("agent at zone center not projected out, distance %v", d)
	}
}

func TestStepEnforcesMinSeparation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinSeparation = 2.0
	e := NewEngine(cfg)
	e.Register("a", Vec3{X: 0})
	e.Register("b", Vec3{X: 0.5})

	e.Step()

	a, _ := e.Agent("a")
	b, _ := e.Agent("b")
	if d := a.Position.Distance(b.Position); d < 2.0-1e-9 {
		t.Fatalf("pairwise distance %v below minimum separation", d)
	}
}

func TestRemoveAgent(t *testing.T) {
	e := newTestEngine()
	e.Register("a", Vec3{})
	e.Remove("a")
	if _, ok := e.Agent("a"); ok {
		t.Fatal("removed agent still registered")
	}
	// Forces for unknown agents return a zero breakdown, not a panic.
	if fb := e.Forces("a"); !fb.Resultant.IsZero() {
		t.Fatalf("unknown agent has non-zero forces: %+v", fb)
	}
}

func TestDriftPassThrough(t *testing.T) {
	e := newTestEngine()
	e.Register("a", Vec3{})
	e.SetDrift("a", Vec3{X: 0.3, Y: 0.4})

	fb := e.Forces("a")
	if fb.Drift != (Vec3{X: 0.3, Y: 0.4}) {
		t.Fatalf("drift not passed through: %+v", fb.Drift)
	}
}
