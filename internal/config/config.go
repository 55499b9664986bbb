// Package config loads kernel configuration from the environment.
// Every value has a default; deployments override with SWARMGOV_-prefixed
// variables. Out-of-range values are clamped by each subsystem at
// construction, never rejected here.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/kestrelrobotics/swarmgov/internal/drift"
	"github.com/kestrelrobotics/swarmgov/internal/geometry"
	"github.com/kestrelrobotics/swarmgov/internal/kernel"
	"github.com/kestrelrobotics/swarmgov/internal/oscillator"
)

// #region config
// Config is the root configuration for one governance kernel instance.
type Config struct {
	Geometry   GeometryConfig   `envconfig:"GEOMETRY"`
	Oscillator OscillatorConfig `envconfig:"OSCILLATOR"`
	Drift      DriftConfig      `envconfig:"DRIFT"`
	Kernel     KernelConfig     `envconfig:"KERNEL"`

	AuditDBPath string `envconfig:"AUDIT_DB"` // empty disables the SQLite sink
	KeyFilePath string `envconfig:"KEY_FILE" default:"swarmgov.key"`
}

// GeometryConfig mirrors geometry.Config with env tags.
type GeometryConfig struct {
	CohesionWeight   float64 `envconfig:"COHESION_WEIGHT" default:"1.0"`
	SeparationWeight float64 `envconfig:"SEPARATION_WEIGHT" default:"1.5"`
	GoalWeight       float64 `envconfig:"GOAL_WEIGHT" default:"1.0"`
	DriftWeight      float64 `envconfig:"DRIFT_WEIGHT" default:"0.5"`
	MaxSpeed         float64 `envconfig:"MAX_SPEED" default:"5.0"`
	SeparationRadius float64 `envconfig:"SEPARATION_RADIUS" default:"10.0"`
	MinSeparation    float64 `envconfig:"MIN_SEPARATION" default:"1.0"`
	Dt               float64 `envconfig:"DT" default:"0.1"`
}

// OscillatorConfig mirrors oscillator.Config with env tags.
type OscillatorConfig struct {
	Coupling       float64 `envconfig:"COUPLING" default:"2.0"`
	CouplingRadius float64 `envconfig:"COUPLING_RADIUS" default:"15.0"`
	MinTrust       float64 `envconfig:"MIN_TRUST" default:"0.1"`
	MaxFrequency   float64 `envconfig:"MAX_FREQUENCY" default:"20.0"`
	Dt             float64 `envconfig:"DT" default:"0.05"`
}

// DriftConfig mirrors drift.Config with env tags. Suppression modes are
// a comma-separated list of band names.
type DriftConfig struct {
	MaxDriftMagnitude float64  `envconfig:"MAX_MAGNITUDE" default:"0.5"`
	UncertaintyScale  float64  `envconfig:"UNCERTAINTY_SCALE" default:"0.4"`
	EnergyScale       float64  `envconfig:"ENERGY_SCALE" default:"0.3"`
	TrustScale        float64  `envconfig:"TRUST_SCALE" default:"0.3"`
	RiskDecay         float64  `envconfig:"RISK_DECAY" default:"3.0"`
	TrustThreshold    float64  `envconfig:"TRUST_THRESHOLD" default:"0.3"`
	EnergyFloor       float64  `envconfig:"ENERGY_FLOOR" default:"0.2"`
	RiskCeiling       float64  `envconfig:"RISK_CEILING" default:"0.7"`
	SuppressionModes  []string `envconfig:"SUPPRESSION_MODES" default:"HAZARD,REGROUP"`
	DecayStep         float64  `envconfig:"DECAY_STEP" default:"0.05"`
	HistorySize       int      `envconfig:"HISTORY_SIZE" default:"64"`
}

// KernelConfig mirrors kernel.Config with env tags.
type KernelConfig struct {
	NeighborCap       int           `envconfig:"NEIGHBOR_CAP" default:"32"`
	AuditLogSize      int           `envconfig:"AUDIT_LOG_SIZE" default:"256"`
	PolicyGrace       time.Duration `envconfig:"POLICY_GRACE" default:"5m"`
	PolicyHistorySize int           `envconfig:"POLICY_HISTORY_SIZE" default:"16"`
}

// #endregion config

// #region load

// FromEnv reads configuration from SWARMGOV_-prefixed variables.
func FromEnv() (Config, error) {
	var c Config
	if err := envconfig.Process("swarmgov", &c); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return c, nil
}

// Default returns the built-in configuration without touching the
// environment.
func Default() Config {
	return Config{
		Geometry:    GeometryConfig(geometryDefaults()),
		Oscillator:  OscillatorConfig(oscillatorDefaults()),
		Drift:       driftDefaults(),
		Kernel:      KernelConfig(kernel.DefaultConfig()),
		KeyFilePath: "swarmgov.key",
	}
}

func geometryDefaults() geometry.Config {
	return geometry.DefaultConfig()
}

func oscillatorDefaults() oscillator.Config {
	return oscillator.DefaultConfig()
}

func driftDefaults() DriftConfig {
	d := drift.DefaultConfig()
	modes := make([]string, len(d.SuppressionModes))
	for i, m := range d.SuppressionModes {
		modes[i] = string(m)
	}
	return DriftConfig{
		MaxDriftMagnitude: d.MaxDriftMagnitude,
		UncertaintyScale:  d.UncertaintyScale,
		EnergyScale:       d.EnergyScale,
		TrustScale:        d.TrustScale,
		RiskDecay:         d.RiskDecay,
		TrustThreshold:    d.TrustThreshold,
		EnergyFloor:       d.EnergyFloor,
		RiskCeiling:       d.RiskCeiling,
		SuppressionModes:  modes,
		DecayStep:         d.DecayStep,
		HistorySize:       d.HistorySize,
	}
}

// #endregion load

// #region convert

// GeometryConfig converts to the geometry engine's config type.
func (c Config) GeometryConfig() geometry.Config {
	return geometry.Config(c.Geometry)
}

// OscillatorConfig converts to the oscillator bus's config type.
func (c Config) OscillatorConfig() oscillator.Config {
	return oscillator.Config(c.Oscillator)
}

// DriftConfig converts to the drift governor's config type.
func (c Config) DriftConfig() drift.Config {
	modes := make([]oscillator.Mode, len(c.Drift.SuppressionModes))
	for i, m := range c.Drift.SuppressionModes {
		modes[i] = oscillator.Mode(m)
	}
	return drift.Config{
		MaxDriftMagnitude: c.Drift.MaxDriftMagnitude,
		UncertaintyScale:  c.Drift.UncertaintyScale,
		EnergyScale:       c.Drift.EnergyScale,
		TrustScale:        c.Drift.TrustScale,
		RiskDecay:         c.Drift.RiskDecay,
		TrustThreshold:    c.Drift.TrustThreshold,
		EnergyFloor:       c.Drift.EnergyFloor,
		RiskCeiling:       c.Drift.RiskCeiling,
		SuppressionModes:  modes,
		DecayStep:         c.Drift.DecayStep,
		HistorySize:       c.Drift.HistorySize,
	}
}

// KernelConfig converts to the node kernel's config type.
func (c Config) KernelConfig() kernel.Config {
	return kernel.Config(c.Kernel)
}

// #endregion convert
