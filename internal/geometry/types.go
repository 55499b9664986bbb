package geometry

// #region weight-caps
// Hard ceilings on the four force weights. Configured values above a cap
// are silently clamped at construction and can never take effect.
const (
	MaxCohesionWeight   = 2.0
	MaxSeparationWeight = 3.0
	MaxGoalWeight       = 2.5
	MaxDriftWeight      = 1.0
)

// trustEpsilon floors agent trust in centroid weighting so zero-trust
// agents neither divide by zero nor vanish from the swarm shape.
const trustEpsilon = 1e-6

// zoneEpsilon is added beyond a no-go zone boundary when projecting an
// agent out of the exclusion sphere.
const zoneEpsilon = 1e-9

// #endregion weight-caps

// #region agent
// Agent is the authoritative spatial state for one registered agent.
// Mutated only by the engine's integration pass.
type Agent struct {
	ID       string
	Position Vec3
	Velocity Vec3
	Goal     *Vec3 // nil when no mission goal is set
	Drift    Vec3  // externally computed exploration vector
	Trust    float64
}

// #endregion agent

// #region zone
// Zone is a spherical no-go region.
type Zone struct {
	Center Vec3
	Radius float64
}

// Contains reports whether p lies strictly inside the exclusion sphere.
func (z Zone) Contains(p Vec3) bool {
	return z.Center.Distance(p) < z.Radius
}

// #endregion zone

// #region force-breakdown
// ForceBreakdown is the per-agent force decomposition from one compute pass.
type ForceBreakdown struct {
	Cohesion   Vec3
	Separation Vec3
	Goal       Vec3
	Drift      Vec3
	Resultant  Vec3 // weighted sum, norm capped at MaxSpeed
}

// #endregion force-breakdown

// #region config
// Config holds force weights and spatial limits for the engine.
type Config struct {
	CohesionWeight   float64 // α, capped at 2.0
	SeparationWeight float64 // β, capped at 3.0
	GoalWeight       float64 // γ, capped at 2.5
	DriftWeight      float64 // δ, capped at 1.0

	MaxSpeed         float64 // resultant norm cap per step
	SeparationRadius float64 // neighbor interaction range
	MinSeparation    float64 // hard pairwise distance floor after Step
	Dt               float64 // integration timestep, seconds
}

// DefaultConfig returns engine defaults for a small fleet.
func DefaultConfig() Config {
	return Config{
		CohesionWeight:   1.0,
		SeparationWeight: 1.5,
		GoalWeight:       1.0,
		DriftWeight:      0.5,
		MaxSpeed:         5.0,
		SeparationRadius: 10.0,
		MinSeparation:    1.0,
		Dt:               0.1,
	}
}

// sanitize clamps every field to its legal range. Out-of-range values are
// corrected silently; the engine prefers corrected-but-defined behavior.
func (c Config) sanitize() Config {
	clampWeight := func(v, cap float64) float64 {
		if v < 0 {
			return 0
		}
		if v > cap {
			return cap
		}
		return v
	}
	c.CohesionWeight = clampWeight(c.CohesionWeight, MaxCohesionWeight)
	c.SeparationWeight = clampWeight(c.SeparationWeight, MaxSeparationWeight)
	c.GoalWeight = clampWeight(c.GoalWeight, MaxGoalWeight)
	c.DriftWeight = clampWeight(c.DriftWeight, MaxDriftWeight)
	if c.MaxSpeed < 0 {
		c.MaxSpeed = 0
	}
	if c.SeparationRadius < 0 {
		c.SeparationRadius = 0
	}
	if c.MinSeparation < 0 {
		c.MinSeparation = 0
	}
	if c.Dt <= 0 {
		c.Dt = DefaultConfig().Dt
	}
	return c
}

// #endregion config
