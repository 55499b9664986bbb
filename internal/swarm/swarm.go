// Package swarm composes the geometry engine, oscillator bus, drift
// governor and node kernel into one per-agent governance kernel driven by
// a shared tick. Subsystems never hold references to each other; the
// swarm copies snapshots between them once per tick.
package swarm

import (
	"fmt"
	"log"
	"sync"

	"github.com/kestrelrobotics/swarmgov/internal/audit"
	"github.com/kestrelrobotics/swarmgov/internal/config"
	"github.com/kestrelrobotics/swarmgov/internal/drift"
	"github.com/kestrelrobotics/swarmgov/internal/geometry"
	"github.com/kestrelrobotics/swarmgov/internal/kernel"
	"github.com/kestrelrobotics/swarmgov/internal/oscillator"
	"github.com/kestrelrobotics/swarmgov/internal/policy"
	"github.com/kestrelrobotics/swarmgov/internal/trust"
)

// #region types

// AgentSpec describes one agent at registration time.
type AgentSpec struct {
	ID        string
	Position  geometry.Vec3
	Goal      *geometry.Vec3
	Frequency float64 // natural oscillation frequency, Hz
	Phase     float64 // initial phase, radians
	Role      kernel.Role
	Trust     float64
	Energy    float64
}

// TickInput carries the per-agent external conditions for one tick.
// Risk and uncertainty come from the mission layer; the exploration
// direction is optional.
type TickInput struct {
	Risk        float64
	Uncertainty float64
	ExploreDir  *geometry.Vec3
}

// TickResult is the per-tick outcome for the whole fleet.
type TickResult struct {
	Drift  map[string]drift.Result
	Forces map[string]geometry.ForceBreakdown
}

// Telemetry is the plain-data monitoring view across subsystems.
type Telemetry struct {
	OrderParameter float64
	MeanPhase      float64
	DominantMode   oscillator.Mode
	ClusterCount   int
	DriftEnergy    float64
	AgentCount     int
}

// #endregion types

// #region swarm

// Swarm owns one instance of each subsystem plus optional persistence.
type Swarm struct {
	mu sync.Mutex

	Engine   *geometry.Engine
	Bus      *oscillator.Bus
	Governor *drift.Governor
	Kernel   *kernel.Kernel

	auditSink   *audit.Store
	ledger      *trust.Ledger
	policyStore *policy.Store

	neighborRadius float64
}

// New builds a fully wired swarm from configuration. The signer verifies
// policy manifests on apply.
func New(cfg config.Config, signer *policy.Signer) *Swarm {
	return &Swarm{
		Engine:         geometry.NewEngine(cfg.GeometryConfig()),
		Bus:            oscillator.NewBus(cfg.OscillatorConfig()),
		Governor:       drift.NewGovernor(cfg.DriftConfig()),
		Kernel:         kernel.NewKernel(cfg.KernelConfig(), signer),
		neighborRadius: cfg.OscillatorConfig().CouplingRadius,
	}
}

// SetAuditSink attaches a SQLite decision sink. Nil detaches.
func (s *Swarm) SetAuditSink(store *audit.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditSink = store
}

// SetTrustLedger attaches a persistent trust ledger. When set, ledger
// scores are mirrored into every subsystem at the start of each tick.
func (s *Swarm) SetTrustLedger(l *trust.Ledger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = l
}

// SetPolicyStore attaches a SQLite policy-history store. Every
// successfully applied manifest is recorded. Nil detaches.
func (s *Swarm) SetPolicyStore(store *policy.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policyStore = store
}

// #endregion swarm

// #region registration

// AddAgent registers an agent in all four subsystems. One instance per
// subsystem; state lives until RemoveAgent.
func (s *Swarm) AddAgent(spec AgentSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if spec.ID == "" {
		return fmt.Errorf("agent spec missing ID")
	}

	s.Engine.Register(spec.ID, spec.Position)
	if spec.Goal != nil {
		s.Engine.SetGoal(spec.ID, *spec.Goal)
	}
	s.Bus.Register(spec.ID, spec.Frequency, spec.Phase)
	s.Bus.SetPosition(spec.ID, spec.Position)
	s.Governor.Register(spec.ID)
	s.Kernel.Register(spec.ID)

	if spec.Role != "" {
		s.Kernel.SetRole(spec.ID, spec.Role)
	}
	// Mirror the bus's derived mode immediately so the first tick's drift
	// step sees the frequency-derived mode, not the registration default.
	if st, ok := s.Bus.State(spec.ID); ok {
		s.Kernel.SetMode(spec.ID, st.Mode)
		s.Kernel.SetPhase(spec.ID, st.Phase)
	}
	s.setTrustLocked(spec.ID, spec.Trust)
	s.Kernel.SetEnergy(spec.ID, spec.Energy)
	s.Kernel.SetPosition(spec.ID, spec.Position)
	return nil
}

// RemoveAgent removes an agent from all four registries.
func (s *Swarm) RemoveAgent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Engine.Remove(id)
	s.Bus.Remove(id)
	s.Governor.Remove(id)
	s.Kernel.Remove(id)
}

// SetTrust mirrors one trust score into every subsystem.
func (s *Swarm) SetTrust(id string, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTrustLocked(id, score)
}

func (s *Swarm) setTrustLocked(id string, score float64) {
	s.Kernel.SetTrust(id, score)
	s.Engine.SetTrust(id, score)
	s.Bus.SetTrust(id, score)
}

// #endregion registration

// #region tick

// Tick advances the whole fleet by one step. Order within the tick:
//
//  1. mirror ledger trust scores (when attached) into all subsystems
//  2. drift step per agent from the kernel's frozen node state
//  3. oscillator step; derived modes and phases mirror into the kernel
//  4. geometry step; corrected positions mirror into kernel and bus
//  5. neighbor sets recomputed from corrected positions
//
// Inputs missing an agent default to zero risk and uncertainty. No
// operation blocks; callers simply stop invoking Tick to halt.
func (s *Swarm) Tick(inputs map[string]TickInput) TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := TickResult{
		Drift:  make(map[string]drift.Result),
		Forces: make(map[string]geometry.ForceBreakdown),
	}

	if s.ledger != nil {
		for _, id := range s.Kernel.IDs() {
			if score, err := s.ledger.Score(id); err == nil {
				s.setTrustLocked(id, score)
			}
		}
	}

	// Drift from the kernel's frozen node state.
	for _, id := range s.Kernel.IDs() {
		n, ok := s.Kernel.Node(id)
		if !ok {
			continue
		}
		in := inputs[id]
		res := s.Governor.Step(id, drift.Inputs{
			Mode:        n.Mode,
			Trust:       n.Trust,
			Energy:      n.Energy,
			Risk:        in.Risk,
			Uncertainty: in.Uncertainty,
		}, in.ExploreDir)
		result.Drift[id] = res
		s.Engine.SetDrift(id, res.Vector)
	}

	// Phase coupling, then motion.
	s.Bus.Step()
	result.Forces = s.Engine.Step()

	// Mirror authoritative state back into the kernel and bus.
	for _, a := range s.Engine.Agents() {
		s.Kernel.SetPosition(a.ID, a.Position)
		s.Bus.SetPosition(a.ID, a.Position)
	}
	for _, st := range s.Bus.States() {
		s.Kernel.SetPhase(st.ID, st.Phase)
		s.Kernel.SetMode(st.ID, st.Mode)
	}
	s.refreshNeighbors()

	return result
}

// refreshNeighbors rebuilds each node's bounded neighbor set from the
// corrected positions, using the coupling radius as adjacency range.
func (s *Swarm) refreshNeighbors() {
	agents := s.Engine.Agents()
	for _, a := range agents {
		var neighbors []string
		for _, b := range agents {
			if b.ID == a.ID {
				continue
			}
			if a.Position.Distance(b.Position) <= s.neighborRadius {
				neighbors = append(neighbors, b.ID)
			}
		}
		s.Kernel.SetNeighbors(a.ID, neighbors)
	}
}

// #endregion tick

// #region gate

// Evaluate runs the kernel's invariant gate for a proposed action and
// forwards the decision to the audit sink when one is attached. Sink
// write failures are logged and do not affect the decision.
func (s *Swarm) Evaluate(id, action string) kernel.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.Kernel.CheckInvariants(id, action)
	if s.auditSink != nil {
		if err := s.auditSink.Append(d); err != nil {
			log.Printf("audit sink append: %v", err)
		}
	}
	return d
}

// ApplyPolicy applies a manifest through the kernel's validation chain.
// Successful applies are recorded in the policy-history store when one
// is attached; record failures are logged, never surfaced as rejection.
func (s *Swarm) ApplyPolicy(m policy.Manifest) *policy.ValidationError {
	s.mu.Lock()
	defer s.mu.Unlock()
	if verr := s.Kernel.ApplyPolicy(m); verr != nil {
		return verr
	}
	if s.policyStore != nil {
		if err := s.policyStore.Record(m); err != nil {
			log.Printf("policy history record: %v", err)
		}
	}
	return nil
}

// #endregion gate

// #region telemetry

// Snapshot assembles the cross-subsystem telemetry view.
func (s *Swarm) Snapshot() Telemetry {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, psi := s.Bus.OrderParameter()
	return Telemetry{
		OrderParameter: r,
		MeanPhase:      psi,
		DominantMode:   s.Bus.DominantMode(),
		ClusterCount:   s.Bus.ClusterCount(),
		DriftEnergy:    s.Governor.SwarmEnergy(),
		AgentCount:     len(s.Kernel.IDs()),
	}
}

// #endregion telemetry
