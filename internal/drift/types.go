package drift

import (
	"time"

	"github.com/kestrelrobotics/swarmgov/internal/geometry"
	"github.com/kestrelrobotics/swarmgov/internal/oscillator"
)

// #region config
// Config holds budget weights and hard suppression thresholds.
type Config struct {
	MaxDriftMagnitude float64 // absolute ceiling on drift vector norm
	UncertaintyScale  float64 // weight on uncertainty in the budget
	EnergyScale       float64 // weight on energy in the budget
	TrustScale        float64 // weight on trust in the budget
	RiskDecay         float64 // exponential attenuation rate on risk

	TrustThreshold float64 // auto-zero below this trust
	EnergyFloor    float64 // auto-zero below this energy
	RiskCeiling    float64 // auto-zero above this risk

	SuppressionModes []oscillator.Mode // auto-zero in these modes

	DecayStep   float64 // linear per-step decay toward zero absent stimulus
	HistorySize int     // bounded ring of per-step samples
}

// DefaultConfig returns governor defaults. HAZARD and REGROUP suppress
// drift out of the box.
func DefaultConfig() Config {
	return Config{
		MaxDriftMagnitude: 0.5,
		UncertaintyScale:  0.4,
		EnergyScale:       0.3,
		TrustScale:        0.3,
		RiskDecay:         3.0,
		TrustThreshold:    0.3,
		EnergyFloor:       0.2,
		RiskCeiling:       0.7,
		SuppressionModes:  []oscillator.Mode{oscillator.ModeHazard, oscillator.ModeRegroup},
		DecayStep:         0.05,
		HistorySize:       64,
	}
}

// sanitize clamps negative parameters to zero. A zero history size falls
// back to the default so the zero ratio stays computable.
func (c Config) sanitize() Config {
	for _, f := range []*float64{
		&c.MaxDriftMagnitude, &c.UncertaintyScale, &c.EnergyScale,
		&c.TrustScale, &c.RiskDecay, &c.TrustThreshold, &c.EnergyFloor,
		&c.RiskCeiling, &c.DecayStep,
	} {
		if *f < 0 {
			*f = 0
		}
	}
	if c.HistorySize <= 0 {
		c.HistorySize = DefaultConfig().HistorySize
	}
	return c
}

// #endregion config

// #region inputs
// Inputs are the per-agent, per-step conditions the governor reads.
// Scalar inputs are clamped to [0,1] before weighting.
type Inputs struct {
	Mode        oscillator.Mode
	Trust       float64
	Energy      float64
	Risk        float64
	Uncertainty float64
}

// #endregion inputs

// #region result
// ZeroReason explains why the auto-zero gate tripped.
type ZeroReason struct {
	Condition string // "mode_suppressed" | "trust_below_threshold" | "energy_below_floor" | "risk_above_ceiling"
	Detail    string
}

// Factors is the budget breakdown for telemetry.
type Factors struct {
	Uncertainty     float64
	Energy          float64
	Trust           float64
	RiskAttenuation float64 // exp(−RiskDecay·risk)
	Budget          float64
}

// Result bundles one governor step for one agent.
type Result struct {
	Vector  geometry.Vec3
	Factors Factors
	Zeroed  bool
	Reason  *ZeroReason // nil unless zeroed
}

// Sample is one history ring entry.
type Sample struct {
	Magnitude float64
	Zeroed    bool
	Timestamp time.Time
}

// #endregion result
