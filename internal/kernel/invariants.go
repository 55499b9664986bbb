package kernel

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/kestrelrobotics/swarmgov/internal/policy"
)

// #region invariants

// CheckInvariants evaluates the fixed, ordered invariant set for a
// proposed action and appends the decision to the audit log.
//
// Invariant 1 (human override) is a full bypass: when engaged the action
// is allowed unconditionally and no further checks run — the single
// dominance rule in the system. Invariants 2-7 are each evaluated and all
// reported even after an earlier failure; the verdict is ALLOW iff every
// one passes. Unknown node IDs deny with a single failed check.
func (k *Kernel) CheckInvariants(id, action string) Decision {
	now := k.now().UTC()
	n, ok := k.nodes[id]
	if !ok {
		d := Decision{
			ID:         uuid.New().String(),
			Action:     action,
			Allowed:    false,
			Checks:     []Check{{Name: "node_registered", Passed: false, Detail: fmt.Sprintf("node %s not registered", id)}},
			Violations: []string{"node_registered"},
			Timestamp:  now,
		}
		k.audit.append(d)
		return d
	}

	var epoch uint64
	if k.active != nil {
		epoch = k.active.Epoch
	}

	if n.HumanOverride {
		d := Decision{
			ID:      uuid.New().String(),
			Action:  action,
			Allowed: true,
			Checks: []Check{{
				Name:   CheckHumanOverride,
				Passed: true,
				Detail: "human override engaged; all checks bypassed",
			}},
			Epoch:     epoch,
			Timestamp: now,
			Node:      k.snapshot(n),
		}
		k.audit.append(d)
		return d
	}

	checks := []Check{
		k.checkEnergy(n),
		k.checkTrust(n),
		k.checkRole(n),
		k.checkMode(n),
		k.checkHazard(n),
		k.checkPolicy(),
	}

	allowed := true
	var violations []string
	for _, c := range checks {
		if !c.Passed {
			allowed = false
			violations = append(violations, c.Name)
		}
	}

	d := Decision{
		ID:         uuid.New().String(),
		Action:     action,
		Allowed:    allowed,
		Checks:     checks,
		Violations: violations,
		Epoch:      epoch,
		Timestamp:  now,
		Node:       k.snapshot(n),
	}
	k.audit.append(d)
	return d
}

// #endregion invariants

// #region individual-checks

func (k *Kernel) checkEnergy(n *Node) Check {
	if k.active == nil {
		return Check{Name: CheckEnergyFloor, Passed: true, Detail: "no active policy; floor not enforced"}
	}
	floor := k.active.Params.EnergyFloor
	return Check{
		Name:   CheckEnergyFloor,
		Passed: n.Energy >= floor,
		Detail: fmt.Sprintf("energy %.3f, floor %.3f", n.Energy, floor),
	}
}

func (k *Kernel) checkTrust(n *Node) Check {
	if k.active == nil {
		return Check{Name: CheckMinTrust, Passed: true, Detail: "no active policy; minimum not enforced"}
	}
	min := k.active.Params.MinTrust
	return Check{
		Name:   CheckMinTrust,
		Passed: n.Trust >= min,
		Detail: fmt.Sprintf("trust %.3f, minimum %.3f", n.Trust, min),
	}
}

func (k *Kernel) checkRole(n *Node) Check {
	if k.active == nil || len(k.active.Params.AllowedRoles) == 0 {
		return Check{Name: CheckRoleAllowed, Passed: true, Detail: "no role restriction active"}
	}
	for _, r := range k.active.Params.AllowedRoles {
		if Role(r) == n.Role {
			return Check{Name: CheckRoleAllowed, Passed: true, Detail: fmt.Sprintf("role %s allowed", n.Role)}
		}
	}
	return Check{Name: CheckRoleAllowed, Passed: false, Detail: fmt.Sprintf("role %s not in allowed set", n.Role)}
}

func (k *Kernel) checkMode(n *Node) Check {
	if k.active == nil {
		return Check{Name: CheckModeSuppressed, Passed: true, Detail: "no active policy; no suppressed modes"}
	}
	for _, m := range k.active.Params.SuppressedModes {
		if string(n.Mode) == m {
			return Check{Name: CheckModeSuppressed, Passed: false, Detail: fmt.Sprintf("mode %s is suppressed", n.Mode)}
		}
	}
	return Check{Name: CheckModeSuppressed, Passed: true, Detail: fmt.Sprintf("mode %s not suppressed", n.Mode)}
}

func (k *Kernel) checkHazard(n *Node) Check {
	detail := "hazard flag clear"
	if n.Hazard {
		detail = "hazard flag set"
	}
	return Check{Name: CheckHazardFlag, Passed: !n.Hazard, Detail: detail}
}

func (k *Kernel) checkPolicy() Check {
	if k.active == nil {
		return Check{Name: CheckPolicyValid, Passed: false, Detail: "no policy has been applied"}
	}
	valid := policy.CurrentlyValid(*k.active, k.now(), k.config.PolicyGrace)
	detail := fmt.Sprintf("epoch %d valid", k.active.Epoch)
	if !valid {
		detail = fmt.Sprintf("epoch %d expired beyond grace", k.active.Epoch)
	}
	return Check{Name: CheckPolicyValid, Passed: valid, Detail: detail}
}

func (k *Kernel) snapshot(n *Node) Snapshot {
	return Snapshot{
		ID:            n.ID,
		Trust:         n.Trust,
		Role:          n.Role,
		Energy:        n.Energy,
		Hazard:        n.Hazard,
		Mode:          n.Mode,
		Position:      n.Position,
		HumanOverride: n.HumanOverride,
		NeighborCount: len(n.Neighbors),
	}
}

// #endregion individual-checks
