package swarm

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kestrelrobotics/swarmgov/internal/geometry"
	"github.com/kestrelrobotics/swarmgov/internal/kernel"
	"github.com/kestrelrobotics/swarmgov/internal/policy"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a scripted scenario run.
type Fixture struct {
	Description string            `json:"description"`
	Agents      []FixtureAgent    `json:"agents"`
	Zones       []FixtureZone     `json:"zones"`
	Policy      *policy.Manifest  `json:"policy,omitempty"` // pre-signed by ground control
	Ticks       []FixtureTick     `json:"ticks"`
	Expected    []FixtureExpected `json:"expected_decisions"`
}

// FixtureAgent mirrors AgentSpec with JSON tags.
type FixtureAgent struct {
	ID        string         `json:"id"`
	Position  geometry.Vec3  `json:"position"`
	Goal      *geometry.Vec3 `json:"goal,omitempty"`
	Frequency float64        `json:"frequency"`
	Phase     float64        `json:"phase"`
	Role      string         `json:"role"`
	Trust     float64        `json:"trust"`
	Energy    float64        `json:"energy"`
}

// FixtureZone is a JSON no-go zone.
type FixtureZone struct {
	Center geometry.Vec3 `json:"center"`
	Radius float64       `json:"radius"`
}

// FixtureTick holds per-agent inputs for one tick.
type FixtureTick struct {
	Inputs map[string]FixtureInput `json:"inputs"`
}

// FixtureInput mirrors TickInput with JSON tags.
type FixtureInput struct {
	Risk        float64        `json:"risk"`
	Uncertainty float64        `json:"uncertainty"`
	ExploreDir  *geometry.Vec3 `json:"explore_dir,omitempty"`
}

// FixtureExpected asserts the gate verdict for one agent after the run.
type FixtureExpected struct {
	Agent      string   `json:"agent"`
	Action     string   `json:"action"`
	Allowed    bool     `json:"allowed"`
	Violations []string `json:"violations,omitempty"`
}

// Outcome pairs an expectation with the observed decision.
type Outcome struct {
	Expected FixtureExpected
	Decision kernel.Decision
	Match    bool
}

// #endregion fixture-types

// #region load

// LoadFixture reads and parses a fixture file.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	return f, nil
}

// #endregion load

// #region run

// RunFixture seeds the swarm from a fixture, applies its policy, runs
// every scripted tick, then evaluates the expected decisions.
func (s *Swarm) RunFixture(f Fixture) ([]Outcome, error) {
	for _, fa := range f.Agents {
		err := s.AddAgent(AgentSpec{
			ID:        fa.ID,
			Position:  fa.Position,
			Goal:      fa.Goal,
			Frequency: fa.Frequency,
			Phase:     fa.Phase,
			Role:      kernel.Role(fa.Role),
			Trust:     fa.Trust,
			Energy:    fa.Energy,
		})
		if err != nil {
			return nil, fmt.Errorf("fixture agent %q: %w", fa.ID, err)
		}
	}
	for _, z := range f.Zones {
		s.Engine.AddZone(z.Center, z.Radius)
	}
	if f.Policy != nil {
		if verr := s.ApplyPolicy(*f.Policy); verr != nil {
			return nil, fmt.Errorf("fixture policy: %s", verr.Error())
		}
	}

	for _, tick := range f.Ticks {
		inputs := make(map[string]TickInput, len(tick.Inputs))
		for id, in := range tick.Inputs {
			inputs[id] = TickInput{Risk: in.Risk, Uncertainty: in.Uncertainty, ExploreDir: in.ExploreDir}
		}
		s.Tick(inputs)
	}

	outcomes := make([]Outcome, 0, len(f.Expected))
	for _, exp := range f.Expected {
		d := s.Evaluate(exp.Agent, exp.Action)
		outcomes = append(outcomes, Outcome{
			Expected: exp,
			Decision: d,
			Match:    matches(exp, d),
		})
	}
	return outcomes, nil
}

func matches(exp FixtureExpected, d kernel.Decision) bool {
	if exp.Allowed != d.Allowed {
		return false
	}
	if len(exp.Violations) == 0 {
		return true
	}
	if len(exp.Violations) != len(d.Violations) {
		return false
	}
	for i := range exp.Violations {
		if exp.Violations[i] != d.Violations[i] {
			return false
		}
	}
	return true
}

// #endregion run
