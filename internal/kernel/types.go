package kernel

import (
	"time"

	"github.com/kestrelrobotics/swarmgov/internal/geometry"
	"github.com/kestrelrobotics/swarmgov/internal/oscillator"
)

// #region role
// Role is an agent's operational role.
type Role string

const (
	RoleWorker   Role = "WORKER"
	RoleScout    Role = "SCOUT"
	RoleSentinel Role = "SENTINEL"
	RoleLeader   Role = "LEADER"
	RoleDormant  Role = "DORMANT"
)

// #endregion role

// #region node
// Node is the authoritative per-agent governance state. Phase, mode and
// position are mirrors copied in once per tick by the caller; the
// oscillator bus and geometry engine own the originals.
type Node struct {
	ID            string
	Phase         float64
	Trust         float64
	Role          Role
	Energy        float64
	Hazard        bool
	Mode          oscillator.Mode
	Position      geometry.Vec3
	HumanOverride bool
	Neighbors     []string // bounded; overflow truncates
	LastUpdate    time.Time
}

// Snapshot is the audit-log view of a node: the neighbor set is reduced
// to a count.
type Snapshot struct {
	ID            string          `json:"id"`
	Trust         float64         `json:"trust"`
	Role          Role            `json:"role"`
	Energy        float64         `json:"energy"`
	Hazard        bool            `json:"hazard"`
	Mode          oscillator.Mode `json:"mode"`
	Position      geometry.Vec3   `json:"position"`
	HumanOverride bool            `json:"human_override"`
	NeighborCount int             `json:"neighbor_count"`
}

// #endregion node

// #region checks
// Invariant check names, in evaluation order. The human override is
// invariant 1: when engaged it allows unconditionally and nothing else is
// evaluated.
const (
	CheckHumanOverride  = "human_override"
	CheckEnergyFloor    = "energy_floor"
	CheckMinTrust       = "min_trust"
	CheckRoleAllowed    = "role_allowed"
	CheckModeSuppressed = "mode_suppressed"
	CheckHazardFlag     = "hazard_flag"
	CheckPolicyValid    = "policy_valid"
)

// Check is one named invariant evaluation.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Decision is the aggregated verdict for one proposed action. Checks 2-7
// are all evaluated and all reported even after an earlier failure, so
// operators see the complete picture.
type Decision struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Allowed    bool      `json:"allowed"`
	Checks     []Check   `json:"checks"`
	Violations []string  `json:"violations,omitempty"`
	Epoch      uint64    `json:"epoch"`
	Timestamp  time.Time `json:"timestamp"`
	Node       Snapshot  `json:"node"`
}

// #endregion checks

// #region config
// Config bounds the kernel's per-node resources.
type Config struct {
	NeighborCap       int           // max neighbor IDs kept per node
	AuditLogSize      int           // decision ring capacity
	PolicyGrace       time.Duration // validity grace past manifest expiry
	PolicyHistorySize int           // superseded manifests kept
}

// DefaultConfig returns kernel defaults.
func DefaultConfig() Config {
	return Config{
		NeighborCap:       32,
		AuditLogSize:      256,
		PolicyGrace:       5 * time.Minute,
		PolicyHistorySize: 16,
	}
}

// sanitize clamps non-positive bounds to defaults.
func (c Config) sanitize() Config {
	d := DefaultConfig()
	if c.NeighborCap <= 0 {
		c.NeighborCap = d.NeighborCap
	}
	if c.AuditLogSize <= 0 {
		c.AuditLogSize = d.AuditLogSize
	}
	if c.PolicyGrace < 0 {
		c.PolicyGrace = 0
	}
	if c.PolicyHistorySize <= 0 {
		c.PolicyHistorySize = d.PolicyHistorySize
	}
	return c
}

// #endregion config
