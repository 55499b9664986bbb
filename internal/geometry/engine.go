package geometry

import (
	"math"
	"sort"
)

// #region engine
// Engine owns authoritative position/velocity for every registered agent
// and integrates one step per call, producing a force breakdown.
type Engine struct {
	config Config
	agents map[string]*Agent
	zones  []Zone
}

// NewEngine creates an engine. The config is sanitized: weights above
// their hard ceilings and negative limits are clamped, never rejected.
func NewEngine(config Config) *Engine {
	return &Engine{
		config: config.sanitize(),
		agents: make(map[string]*Agent),
	}
}

// Config returns the effective (sanitized) configuration.
func (e *Engine) Config() Config {
	return e.config
}

// #endregion engine

// #region registry

// Register adds an agent at the given position with full trust.
// Re-registering an existing ID resets its spatial state.
func (e *Engine) Register(id string, pos Vec3) {
	e.agents[id] = &Agent{ID: id, Position: pos, Trust: 1.0}
}

// Remove deletes an agent from the registry.
func (e *Engine) Remove(id string) {
	delete(e.agents, id)
}

// Agent returns a copy of the agent's spatial state and whether it exists.
func (e *Engine) Agent(id string) (Agent, bool) {
	a, ok := e.agents[id]
	if !ok {
		return Agent{}, false
	}
	return *a, true
}

// Agents returns a snapshot of all agents in ascending ID order.
func (e *Engine) Agents() []Agent {
	out := make([]Agent, 0, len(e.agents))
	for _, id := range e.sortedIDs() {
		out = append(out, *e.agents[id])
	}
	return out
}

// SetGoal assigns a mission goal to an agent. No-op for unknown IDs.
func (e *Engine) SetGoal(id string, goal Vec3) {
	if a, ok := e.agents[id]; ok {
		g := goal
		a.Goal = &g
	}
}

// ClearGoal removes an agent's mission goal.
func (e *Engine) ClearGoal(id string) {
	if a, ok := e.agents[id]; ok {
		a.Goal = nil
	}
}

// SetTrust updates an agent's trust score, clamped to [0,1].
func (e *Engine) SetTrust(id string, trust float64) {
	if a, ok := e.agents[id]; ok {
		a.Trust = clamp01(trust)
	}
}

// SetDrift mirrors the externally computed drift vector for an agent.
func (e *Engine) SetDrift(id string, drift Vec3) {
	if a, ok := e.agents[id]; ok {
		a.Drift = drift
	}
}

// #endregion registry

// #region zones

// AddZone registers a spherical no-go region. Negative radii clamp to zero.
func (e *Engine) AddZone(center Vec3, radius float64) {
	if radius < 0 {
		radius = 0
	}
	e.zones = append(e.zones, Zone{Center: center, Radius: radius})
}

// ClearZones removes all no-go regions.
func (e *Engine) ClearZones() {
	e.zones = nil
}

// Zones returns a snapshot of the registered no-go regions.
func (e *Engine) Zones() []Zone {
	out := make([]Zone, len(e.zones))
	copy(out, e.zones)
	return out
}

// #endregion zones

// #region centroid

// Centroid computes the trust-weighted mean position of the swarm.
// Trust is floored at a tiny epsilon so zero-trust agents neither divide
// by zero nor vanish entirely. Empty registry returns the zero vector.
func (e *Engine) Centroid() Vec3 {
	if len(e.agents) == 0 {
		return Zero
	}
	var sum Vec3
	var total float64
	for _, a := range e.agents {
		w := a.Trust
		if w < trustEpsilon {
			w = trustEpsilon
		}
		sum = sum.Add(a.Position.Scale(w))
		total += w
	}
	return sum.Scale(1 / total)
}

// #endregion centroid

// #region forces

// Forces computes the force decomposition for one agent against the
// current registry state. Unknown IDs return a zero breakdown.
func (e *Engine) Forces(id string) ForceBreakdown {
	a, ok := e.agents[id]
	if !ok {
		return ForceBreakdown{}
	}
	return e.forcesFor(*a, e.Centroid())
}

// forcesFor computes forces for a frozen agent copy against a precomputed
// centroid, so Step can evaluate every agent from one snapshot.
func (e *Engine) forcesFor(a Agent, centroid Vec3) ForceBreakdown {
	fb := ForceBreakdown{Drift: a.Drift}

	// Cohesion: linear, unsaturated attraction toward the trust-weighted centroid.
	fb.Cohesion = centroid.Sub(a.Position)

	// Separation: inverse-distance repulsion, accumulated over neighbors
	// within the separation radius. Strictly local interaction.
	for _, other := range e.agents {
		if other.ID == a.ID {
			continue
		}
		d := a.Position.Distance(other.Position)
		if d == 0 || d > e.config.SeparationRadius {
			continue
		}
		away := a.Position.Sub(other.Position).Normalize()
		fb.Separation = fb.Separation.Add(away.Scale(1 / d))
	}

	// Goal: linear attraction capped at magnitude 1.0 so a distant goal
	// can never dominate cohesion/separation.
	if a.Goal != nil {
		fb.Goal = a.Goal.Sub(a.Position).ClampNorm(1.0)
	}

	fb.Resultant = fb.Cohesion.Scale(e.config.CohesionWeight).
		Add(fb.Separation.Scale(e.config.SeparationWeight)).
		Add(fb.Goal.Scale(e.config.GoalWeight)).
		Add(fb.Drift.Scale(e.config.DriftWeight)).
		ClampNorm(e.config.MaxSpeed)
	return fb
}

// #endregion forces

// #region step

// Step integrates one tick for every agent. Phase 1 computes all forces
// from a frozen snapshot, so results are independent of processing order.
// Phase 2 commits position updates and then applies the hard spatial
// invariants in ascending agent-ID order: no-go-zone exclusion, then
// pairwise minimum separation. Correction order among simultaneously
// conflicting pairs is a documented approximation, not a globally optimal
// resolution; sorting by ID keeps the result deterministic.
func (e *Engine) Step() map[string]ForceBreakdown {
	ids := e.sortedIDs()
	centroid := e.Centroid()

	// Phase 1: compute from frozen snapshot.
	breakdowns := make(map[string]ForceBreakdown, len(ids))
	for _, id := range ids {
		breakdowns[id] = e.forcesFor(*e.agents[id], centroid)
	}

	// Phase 2: commit.
	for _, id := range ids {
		a := e.agents[id]
		a.Velocity = breakdowns[id].Resultant
		a.Position = a.Position.Add(a.Velocity.Scale(e.config.Dt))
	}

	for _, id := range ids {
		e.enforceZones(e.agents[id])
	}
	for _, id := range ids {
		e.enforceSeparation(e.agents[id], ids)
	}
	return breakdowns
}

// enforceZones projects an agent inside any exclusion sphere radially onto
// its boundary plus epsilon. An agent sitting exactly at a zone center has
// no radial direction; it is pushed along +X as an arbitrary fixed axis.
func (e *Engine) enforceZones(a *Agent) {
	for _, z := range e.zones {
		if !z.Contains(a.Position) {
			continue
		}
		dir := a.Position.Sub(z.Center).Normalize()
		if dir.IsZero() {
			dir = Vec3{X: 1}
		}
		a.Position = z.Center.Add(dir.Scale(z.Radius + zoneEpsilon))
	}
}

// enforceSeparation pushes an agent out along the connecting line to
// exactly MinSeparation from any closer neighbor.
func (e *Engine) enforceSeparation(a *Agent, ids []string) {
	min := e.config.MinSeparation
	if min <= 0 {
		return
	}
	for _, id := range ids {
		if id == a.ID {
			continue
		}
		other := e.agents[id]
		d := a.Position.Distance(other.Position)
		if d >= min {
			continue
		}
		dir := a.Position.Sub(other.Position).Normalize()
		if dir.IsZero() {
			dir = Vec3{X: 1}
		}
		a.Position = other.Position.Add(dir.Scale(min))
	}
}

// sortedIDs returns registered agent IDs in ascending order.
func (e *Engine) sortedIDs() []string {
	ids := make([]string, 0, len(e.agents))
	for id := range e.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// #endregion step

// #region helpers

// clamp01 clamps v to [0,1]. NaN clamps to 0.
func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
