package drift

import (
	"fmt"
	"math"
	"time"

	"github.com/kestrelrobotics/swarmgov/internal/geometry"
)

// #region governor
// Governor produces, per agent per step, a small exploratory vector that
// is provably bounded and vanishes before known-hazardous conditions
// manifest. It persists each agent's vector between steps so drift has
// inertia rather than resetting instantly.
type Governor struct {
	config  Config
	vectors map[string]geometry.Vec3
	history map[string]*ring
}

// NewGovernor creates a governor. Negative parameters are clamped, never
// rejected.
func NewGovernor(config Config) *Governor {
	return &Governor{
		config:  config.sanitize(),
		vectors: make(map[string]geometry.Vec3),
		history: make(map[string]*ring),
	}
}

// Config returns the effective (sanitized) configuration.
func (g *Governor) Config() Config {
	return g.config
}

// Register adds an agent with zero drift.
func (g *Governor) Register(id string) {
	g.vectors[id] = geometry.Zero
	g.history[id] = newRing(g.config.HistorySize)
}

// Remove deletes an agent's drift state and history.
func (g *Governor) Remove(id string) {
	delete(g.vectors, id)
	delete(g.history, id)
}

// Vector returns the current persisted drift vector for an agent.
func (g *Governor) Vector(id string) geometry.Vec3 {
	return g.vectors[id]
}

// #endregion governor

// #region auto-zero

// CheckAutoZero returns a non-nil reason whenever any hard suppression
// condition holds. Conditions are OR'd; the first tripped condition in
// fixed order is reported. Checked before budget computation and
// short-circuits it.
func (g *Governor) CheckAutoZero(in Inputs) *ZeroReason {
	for _, m := range g.config.SuppressionModes {
		if in.Mode == m {
			return &ZeroReason{
				Condition: "mode_suppressed",
				Detail:    fmt.Sprintf("mode %s is in the suppression set", in.Mode),
			}
		}
	}
	if in.Trust < g.config.TrustThreshold {
		return &ZeroReason{
			Condition: "trust_below_threshold",
			Detail:    fmt.Sprintf("trust %.3f below threshold %.3f", in.Trust, g.config.TrustThreshold),
		}
	}
	if in.Energy < g.config.EnergyFloor {
		return &ZeroReason{
			Condition: "energy_below_floor",
			Detail:    fmt.Sprintf("energy %.3f below floor %.3f", in.Energy, g.config.EnergyFloor),
		}
	}
	if in.Risk > g.config.RiskCeiling {
		return &ZeroReason{
			Condition: "risk_above_ceiling",
			Detail:    fmt.Sprintf("risk %.3f above ceiling %.3f", in.Risk, g.config.RiskCeiling),
		}
	}
	return nil
}

// #endregion auto-zero

// #region budget

// ComputeBudget returns the drift magnitude budget:
//
//	clamp(0, maxDrift, (u·U + e·E + t·T) · exp(−riskDecay·risk))
//
// Inputs are clamped to [0,1] before weighting. The exponential risk term
// decays the budget smoothly rather than as a cliff; the ceiling holds
// regardless of how favorable the inputs are.
func (g *Governor) ComputeBudget(in Inputs) (float64, Factors) {
	u := clamp01(in.Uncertainty)
	e := clamp01(in.Energy)
	tr := clamp01(in.Trust)
	risk := clamp01(in.Risk)

	attenuation := math.Exp(-g.config.RiskDecay * risk)
	budget := (g.config.UncertaintyScale*u + g.config.EnergyScale*e + g.config.TrustScale*tr) * attenuation
	if budget < 0 {
		budget = 0
	}
	if budget > g.config.MaxDriftMagnitude {
		budget = g.config.MaxDriftMagnitude
	}
	return budget, Factors{
		Uncertainty:     u,
		Energy:          e,
		Trust:           tr,
		RiskAttenuation: attenuation,
		Budget:          budget,
	}
}

// #endregion budget

// #region step

// Step computes the drift vector for one agent. The auto-zero gate runs
// first and short-circuits the budget. With an exploration direction the
// output is the normalized direction scaled by the budget; without one
// the previous vector decays linearly toward zero by DecayStep.
func (g *Governor) Step(id string, in Inputs, direction *geometry.Vec3) Result {
	if reason := g.CheckAutoZero(in); reason != nil {
		g.vectors[id] = geometry.Zero
		g.record(id, 0, true)
		return Result{Vector: geometry.Zero, Zeroed: true, Reason: reason}
	}

	budget, factors := g.ComputeBudget(in)

	var vec geometry.Vec3
	if direction != nil {
		vec = direction.Normalize().Scale(budget).ClampNorm(g.config.MaxDriftMagnitude)
	} else {
		vec = g.decayed(id)
	}

	g.vectors[id] = vec
	g.record(id, vec.Norm(), false)
	return Result{Vector: vec, Factors: factors}
}

// decayed shrinks the previous vector's magnitude by DecayStep, reaching
// exactly zero rather than crossing it.
func (g *Governor) decayed(id string) geometry.Vec3 {
	prev := g.vectors[id]
	n := prev.Norm()
	if n <= g.config.DecayStep {
		return geometry.Zero
	}
	return prev.Scale((n - g.config.DecayStep) / n)
}

// #endregion step

// #region history

// record appends a sample to the agent's bounded history ring.
func (g *Governor) record(id string, magnitude float64, zeroed bool) {
	r, ok := g.history[id]
	if !ok {
		r = newRing(g.config.HistorySize)
		g.history[id] = r
	}
	r.push(Sample{Magnitude: magnitude, Zeroed: zeroed, Timestamp: time.Now().UTC()})
}

// History returns a copy of the agent's recent samples, oldest first.
func (g *Governor) History(id string) []Sample {
	r, ok := g.history[id]
	if !ok {
		return nil
	}
	return r.snapshot()
}

// ZeroRatio returns the fraction of recent steps on which the agent's
// drift was suppressed. No history yields 0. Used upstream to flag
// chronically-unsafe agents.
func (g *Governor) ZeroRatio(id string) float64 {
	samples := g.History(id)
	if len(samples) == 0 {
		return 0
	}
	var zeroed int
	for _, s := range samples {
		if s.Zeroed {
			zeroed++
		}
	}
	return float64(zeroed) / float64(len(samples))
}

// SwarmEnergy returns Σ‖δ_i‖² over all persisted drift vectors.
func (g *Governor) SwarmEnergy() float64 {
	var total float64
	for _, v := range g.vectors {
		n := v.Norm()
		total += n * n
	}
	return total
}

// #endregion history

// #region ring

// ring is a fixed-capacity sample buffer; old entries are overwritten.
type ring struct {
	buf   []Sample
	next  int
	count int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]Sample, capacity)}
}

func (r *ring) push(s Sample) {
	r.buf[r.next] = s
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// snapshot returns entries oldest-first.
func (r *ring) snapshot() []Sample {
	out := make([]Sample, 0, r.count)
	start := r.next - r.count
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// #endregion ring

// #region helpers

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
