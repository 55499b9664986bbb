package kernel

import (
	"time"

	"github.com/kestrelrobotics/swarmgov/internal/geometry"
	"github.com/kestrelrobotics/swarmgov/internal/oscillator"
	"github.com/kestrelrobotics/swarmgov/internal/policy"
)

// #region kernel
// Kernel is the authoritative per-agent decision point: it owns node
// state, runs the hard invariant gate, manages signed/versioned policies
// and appends every decision to a bounded audit log.
type Kernel struct {
	config Config
	nodes  map[string]*Node

	active        *policy.Manifest
	policyHistory []policy.Manifest
	verifier      interface{ Verify(policy.Manifest) bool }

	audit *auditRing
	now   func() time.Time
}

// NewKernel creates a kernel. The verifier checks manifest signatures;
// pass the deployment's policy.Signer.
func NewKernel(config Config, verifier interface{ Verify(policy.Manifest) bool }) *Kernel {
	cfg := config.sanitize()
	return &Kernel{
		config:   cfg,
		nodes:    make(map[string]*Node),
		verifier: verifier,
		audit:    newAuditRing(cfg.AuditLogSize),
		now:      time.Now,
	}
}

// Config returns the effective (sanitized) configuration.
func (k *Kernel) Config() Config {
	return k.config
}

// #endregion kernel

// #region registry

// Register adds a node with full trust and energy as an idle worker.
func (k *Kernel) Register(id string) {
	k.nodes[id] = &Node{
		ID:         id,
		Trust:      1.0,
		Energy:     1.0,
		Role:       RoleWorker,
		Mode:       oscillator.ModeRegroup,
		LastUpdate: k.now().UTC(),
	}
}

// Remove deletes a node.
func (k *Kernel) Remove(id string) {
	delete(k.nodes, id)
}

// Node returns a copy of a node's state and whether it exists.
func (k *Kernel) Node(id string) (Node, bool) {
	n, ok := k.nodes[id]
	if !ok {
		return Node{}, false
	}
	out := *n
	out.Neighbors = append([]string(nil), n.Neighbors...)
	return out, true
}

// IDs returns all registered node IDs.
func (k *Kernel) IDs() []string {
	ids := make([]string, 0, len(k.nodes))
	for id := range k.nodes {
		ids = append(ids, id)
	}
	return ids
}

// #endregion registry

// #region mutators

// SetTrust updates a node's trust, clamped to [0,1].
func (k *Kernel) SetTrust(id string, trust float64) {
	k.mutate(id, func(n *Node) { n.Trust = clamp01(trust) })
}

// SetEnergy sets a node's energy, clamped to [0,1].
func (k *Kernel) SetEnergy(id string, energy float64) {
	k.mutate(id, func(n *Node) { n.Energy = clamp01(energy) })
}

// SetRole updates a node's role.
func (k *Kernel) SetRole(id string, role Role) {
	k.mutate(id, func(n *Node) { n.Role = role })
}

// SetMode mirrors the oscillator-derived mode into the node.
func (k *Kernel) SetMode(id string, mode oscillator.Mode) {
	k.mutate(id, func(n *Node) { n.Mode = mode })
}

// SetHazard sets the hazard flag.
func (k *Kernel) SetHazard(id string, hazard bool) {
	k.mutate(id, func(n *Node) { n.Hazard = hazard })
}

// SetPosition mirrors the geometry engine's position into the node.
func (k *Kernel) SetPosition(id string, pos geometry.Vec3) {
	k.mutate(id, func(n *Node) { n.Position = pos })
}

// SetPhase mirrors the oscillator bus's phase into the node.
func (k *Kernel) SetPhase(id string, phase float64) {
	k.mutate(id, func(n *Node) { n.Phase = phase })
}

// SetHumanOverride engages or releases the human override.
func (k *Kernel) SetHumanOverride(id string, engaged bool) {
	k.mutate(id, func(n *Node) { n.HumanOverride = engaged })
}

// SetNeighbors replaces a node's neighbor set. More IDs than the
// configured cap is handled by truncation, not failure.
func (k *Kernel) SetNeighbors(id string, neighbors []string) {
	k.mutate(id, func(n *Node) {
		if len(neighbors) > k.config.NeighborCap {
			neighbors = neighbors[:k.config.NeighborCap]
		}
		n.Neighbors = append([]string(nil), neighbors...)
	})
}

// ConsumeEnergy subtracts amt from a node's energy, clamped at 0.
// Callers meter consumption; the kernel never decays energy on its own.
func (k *Kernel) ConsumeEnergy(id string, amt float64) {
	k.mutate(id, func(n *Node) { n.Energy = clamp01(n.Energy - amt) })
}

// RechargeEnergy adds amt to a node's energy, clamped at 1.
func (k *Kernel) RechargeEnergy(id string, amt float64) {
	k.mutate(id, func(n *Node) { n.Energy = clamp01(n.Energy + amt) })
}

func (k *Kernel) mutate(id string, f func(*Node)) {
	if n, ok := k.nodes[id]; ok {
		f(n)
		n.LastUpdate = k.now().UTC()
	}
}

// #endregion mutators

// #region policy

// ApplyPolicy validates a candidate manifest (signature, then strict
// epoch monotonicity, then expiry) and activates it on success. Failures
// return the tagged reason and leave the last-good policy governing.
// Agent state is untouched by policy changes.
func (k *Kernel) ApplyPolicy(m policy.Manifest) *policy.ValidationError {
	var currentEpoch uint64
	if k.active != nil {
		currentEpoch = k.active.Epoch
	}
	if verr := policy.Validate(m, k.verifier, currentEpoch, k.now()); verr != nil {
		return verr
	}
	if k.active != nil {
		k.policyHistory = append(k.policyHistory, *k.active)
		if len(k.policyHistory) > k.config.PolicyHistorySize {
			k.policyHistory = k.policyHistory[len(k.policyHistory)-k.config.PolicyHistorySize:]
		}
	}
	applied := m
	k.active = &applied
	return nil
}

// ActivePolicy returns the governing manifest, or false when unset.
func (k *Kernel) ActivePolicy() (policy.Manifest, bool) {
	if k.active == nil {
		return policy.Manifest{}, false
	}
	return *k.active, true
}

// PolicyHistory returns superseded manifests, oldest first.
func (k *Kernel) PolicyHistory() []policy.Manifest {
	return append([]policy.Manifest(nil), k.policyHistory...)
}

// #endregion policy

// #region helpers

func clamp01(v float64) float64 {
	if v < 0 || v != v { // NaN
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
