package oscillator

import (
	"math"
	"sort"

	"github.com/kestrelrobotics/swarmgov/internal/geometry"
)

// #region bus
// Bus models each agent as a phase oscillator coupled only to spatially-
// and trust-qualified neighbors, giving the swarm a broadcast-free way to
// agree on behavioral mode.
type Bus struct {
	config    Config
	states    map[string]*State
	listeners []Listener
}

// NewBus creates a bus. Coupling above the hard cap is silently clamped.
func NewBus(config Config) *Bus {
	return &Bus{
		config: config.sanitize(),
		states: make(map[string]*State),
	}
}

// Config returns the effective (sanitized) configuration.
func (b *Bus) Config() Config {
	return b.config
}

// #endregion bus

// #region registry

// Register adds an oscillator with the given natural frequency and initial
// phase. Frequency is capped; phase is wrapped into [0, 2π).
func (b *Bus) Register(id string, freq, phase float64) {
	s := &State{
		ID:        id,
		Phase:     wrapPhase(phase),
		Frequency: b.capFrequency(freq),
		Trust:     1.0,
	}
	s.Mode = ModeForFrequency(s.Frequency)
	b.states[id] = s
}

// Remove deletes an oscillator.
func (b *Bus) Remove(id string) {
	delete(b.states, id)
}

// State returns a copy of one oscillator's state and whether it exists.
func (b *Bus) State(id string) (State, bool) {
	s, ok := b.states[id]
	if !ok {
		return State{}, false
	}
	return *s, true
}

// States returns a snapshot of all oscillators in ascending ID order.
func (b *Bus) States() []State {
	ids := make([]string, 0, len(b.states))
	for id := range b.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]State, 0, len(ids))
	for _, id := range ids {
		out = append(out, *b.states[id])
	}
	return out
}

// SetTrust updates an oscillator's trust, clamped to [0,1].
func (b *Bus) SetTrust(id string, trust float64) {
	if s, ok := b.states[id]; ok {
		if trust < 0 {
			trust = 0
		}
		if trust > 1 {
			trust = 1
		}
		s.Trust = trust
	}
}

// SetPosition mirrors an agent's position for coupling-radius checks.
func (b *Bus) SetPosition(id string, pos geometry.Vec3) {
	if s, ok := b.states[id]; ok {
		s.Position = pos
	}
}

// SetFrequency overrides an oscillator's natural frequency, capped.
func (b *Bus) SetFrequency(id string, freq float64) {
	if s, ok := b.states[id]; ok {
		s.Frequency = b.capFrequency(freq)
	}
}

// InjectMode forces an oscillator's frequency to the target band. This is
// the mechanism for intentional transitions and human-override broadcasts.
func (b *Bus) InjectMode(id string, m Mode) {
	b.SetFrequency(id, TargetFrequency(m))
}

// Subscribe registers a listener notified once per completed step.
func (b *Bus) Subscribe(l Listener) {
	b.listeners = append(b.listeners, l)
}

// #endregion registry

// #region step

// Step advances every oscillator by one timestep. The coupling term is a
// trust-weighted Kuramoto sum over qualified neighbors, evaluated on a
// frozen snapshot and applied atomically:
//
//	coupling_i = (K / Σ_j τ_j) · Σ_j τ_j · sin(θ_j − θ_i)
//
// Low-trust peers are down-weighted rather than excluded, so a single
// spoofed peer cannot dominate but honest-low-trust peers still
// contribute. Phase is renormalized to [0, 2π) after every update.
//
// Mode derives from the instantaneous frequency (phase velocity over
// 2π), not the natural frequency: coupling pulls phase-locked agents
// toward a common instantaneous frequency, so agents with natural
// frequencies in different bands can still agree on a mode.
func (b *Bus) Step() {
	frozen := b.States()

	type pending struct {
		phase    float64
		velocity float64
	}
	updates := make(map[string]pending, len(frozen))

	for _, s := range frozen {
		coupling := b.couplingFor(s, frozen)
		velocity := 2*math.Pi*s.Frequency + coupling
		updates[s.ID] = pending{
			phase:    wrapPhase(s.Phase + velocity*b.config.Dt),
			velocity: velocity,
		}
	}

	for id, u := range updates {
		s := b.states[id]
		s.Phase = u.phase
		s.PhaseVelocity = u.velocity
		s.Mode = ModeForFrequency(u.velocity / (2 * math.Pi))
	}

	b.notify()
}

// couplingFor computes the trust-weighted coupling term for one oscillator
// against the frozen snapshot. Empty neighbor or trust sets yield zero.
func (b *Bus) couplingFor(s State, frozen []State) float64 {
	var trustSum, weighted float64
	for _, n := range frozen {
		if n.ID == s.ID {
			continue
		}
		if n.Trust < b.config.MinTrust {
			continue
		}
		if s.Position.Distance(n.Position) > b.config.CouplingRadius {
			continue
		}
		trustSum += n.Trust
		weighted += n.Trust * math.Sin(n.Phase-s.Phase)
	}
	if trustSum == 0 {
		return 0
	}
	return b.config.Coupling / trustSum * weighted
}

func (b *Bus) notify() {
	if len(b.listeners) == 0 {
		return
	}
	snap := b.Snapshot()
	for _, l := range b.listeners {
		l(snap)
	}
}

// #endregion step

// #region helpers

func (b *Bus) capFrequency(freq float64) float64 {
	if freq < 0 {
		return 0
	}
	if freq > b.config.MaxFrequency {
		return b.config.MaxFrequency
	}
	return freq
}

// wrapPhase renormalizes a phase into [0, 2π).
func wrapPhase(theta float64) float64 {
	twoPi := 2 * math.Pi
	theta = math.Mod(theta, twoPi)
	if theta < 0 {
		theta += twoPi
	}
	return theta
}

// #endregion helpers
