package oscillator

import "github.com/kestrelrobotics/swarmgov/internal/geometry"

// #region mode
// Mode is a behavioral mode derived from oscillation frequency.
type Mode string

const (
	ModeRegroup Mode = "REGROUP"
	ModeExplore Mode = "EXPLORE"
	ModeCommit  Mode = "COMMIT"
	ModeHazard  Mode = "HAZARD"
)

// Frequency band edges in Hz. The four bands are disjoint:
// REGROUP [0.5,2.0), EXPLORE [2.0,5.0), COMMIT [5.0,10.0), HAZARD >10.0.
// Frequencies below the regroup floor classify as REGROUP.
const (
	RegroupFloor = 0.5
	ExploreFloor = 2.0
	CommitFloor  = 5.0
	HazardFloor  = 10.0
)

// ModeForFrequency maps an instantaneous frequency to its behavioral band.
func ModeForFrequency(hz float64) Mode {
	switch {
	case hz > HazardFloor:
		return ModeHazard
	case hz >= CommitFloor:
		return ModeCommit
	case hz >= ExploreFloor:
		return ModeExplore
	default:
		return ModeRegroup
	}
}

// TargetFrequency returns the injection frequency for a mode: the band
// midpoint, or just above the hazard threshold for HAZARD.
func TargetFrequency(m Mode) float64 {
	switch m {
	case ModeHazard:
		return HazardFloor + 1.0
	case ModeCommit:
		return (CommitFloor + HazardFloor) / 2
	case ModeExplore:
		return (ExploreFloor + CommitFloor) / 2
	default:
		return (RegroupFloor + ExploreFloor) / 2
	}
}

// #endregion mode

// #region state
// State is the oscillator state for one agent. Phase is continuous and
// wraps modulo 2π.
type State struct {
	ID            string
	Phase         float64 // radians, [0, 2π)
	Frequency     float64 // natural frequency, Hz, capped
	Trust         float64
	Position      geometry.Vec3 // mirrored, coupling-radius checks only
	Mode          Mode
	PhaseVelocity float64 // last applied dθ/dt, radians/s
}

// #endregion state

// #region config
// MaxCoupling is the hard cap on coupling strength K regardless of
// configuration.
const MaxCoupling = 10.0

// Config holds coupling and band parameters for the bus.
type Config struct {
	Coupling       float64 // K, hard-capped at 10.0
	CouplingRadius float64 // spatial qualification for neighbors
	MinTrust       float64 // trust qualification for neighbors
	MaxFrequency   float64 // Hz cap on natural frequency
	Dt             float64 // timestep, seconds
}

// DefaultConfig returns bus defaults.
func DefaultConfig() Config {
	return Config{
		Coupling:       2.0,
		CouplingRadius: 15.0,
		MinTrust:       0.1,
		MaxFrequency:   20.0,
		Dt:             0.05,
	}
}

// sanitize clamps coupling and limits to legal ranges.
func (c Config) sanitize() Config {
	if c.Coupling < 0 {
		c.Coupling = 0
	}
	if c.Coupling > MaxCoupling {
		c.Coupling = MaxCoupling
	}
	if c.CouplingRadius < 0 {
		c.CouplingRadius = 0
	}
	if c.MinTrust < 0 {
		c.MinTrust = 0
	}
	if c.MinTrust > 1 {
		c.MinTrust = 1
	}
	if c.MaxFrequency <= 0 {
		c.MaxFrequency = DefaultConfig().MaxFrequency
	}
	if c.Dt <= 0 {
		c.Dt = DefaultConfig().Dt
	}
	return c
}

// #endregion config

// #region snapshot
// Snapshot is the plain-data view delivered to listeners once per step.
type Snapshot struct {
	States         []State
	OrderParameter float64
	MeanPhase      float64
	DominantMode   Mode
	ClusterCount   int
}

// Listener receives a snapshot after each completed step.
type Listener func(Snapshot)

// #endregion snapshot
