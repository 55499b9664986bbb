package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/kestrelrobotics/swarmgov/internal/audit"
	"github.com/kestrelrobotics/swarmgov/internal/config"
	"github.com/kestrelrobotics/swarmgov/internal/geometry"
	"github.com/kestrelrobotics/swarmgov/internal/kernel"
	"github.com/kestrelrobotics/swarmgov/internal/policy"
	"github.com/kestrelrobotics/swarmgov/internal/swarm"
)

// #region main

func main() {
	agents := flag.Int("agents", 8, "number of demo agents to seed")
	ticks := flag.Int("ticks", 100, "ticks to run")
	every := flag.Int("every", 10, "print telemetry every N ticks")
	fixturePath := flag.String("fixture", "", "run a scenario fixture instead of the demo fleet")
	policyPath := flag.String("policy", "", "signed policy manifest to apply")
	keyPath := flag.String("key", "", "signing key file (default from config)")
	auditPath := flag.String("audit-db", "", "persist decisions to this SQLite database")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *keyPath != "" {
		cfg.KeyFilePath = *keyPath
	}
	signer, err := policy.LoadSigner(cfg.KeyFilePath)
	if err != nil {
		log.Fatalf("load signing key: %v", err)
	}

	s := swarm.New(cfg, signer)

	if *auditPath == "" {
		*auditPath = cfg.AuditDBPath
	}
	if *auditPath != "" {
		sink, err := audit.Open(*auditPath)
		if err != nil {
			log.Fatalf("open audit db: %v", err)
		}
		defer sink.Close()
		s.SetAuditSink(sink)
		store, err := policy.NewStore(sink.DB())
		if err != nil {
			log.Fatalf("open policy history: %v", err)
		}
		s.SetPolicyStore(store)
	}

	if *fixturePath != "" {
		runFixture(s, *fixturePath)
		return
	}

	if *policyPath != "" {
		applyPolicyFile(s, *policyPath)
	}

	seedDemoFleet(s, *agents)
	fmt.Printf("swarmsim: %d agents, %d ticks\n", *agents, *ticks)

	for i := 1; i <= *ticks; i++ {
		s.Tick(nil)
		if i%*every == 0 || i == *ticks {
			printTelemetry(i, s.Snapshot())
		}
	}

	for _, id := range demoIDs(*agents) {
		d := s.Evaluate(id, "post_run_check")
		status := "ALLOW"
		if !d.Allowed {
			status = fmt.Sprintf("DENY %v", d.Violations)
		}
		fmt.Printf("  %-8s %s\n", id, status)
	}
}

// #endregion main

// #region fleet

// seedDemoFleet places agents on a circle with staggered phases so the
// oscillator bus has something to synchronize.
func seedDemoFleet(s *swarm.Swarm, n int) {
	for i, id := range demoIDs(n) {
		angle := 2 * math.Pi * float64(i) / float64(n)
		err := s.AddAgent(swarm.AgentSpec{
			ID:        id,
			Position:  geometry.Vec3{X: 20 * math.Cos(angle), Y: 20 * math.Sin(angle)},
			Frequency: 3.0,
			Phase:     angle,
			Role:      kernel.RoleWorker,
			Trust:     1.0,
			Energy:    1.0,
		})
		if err != nil {
			log.Fatalf("seed agent %s: %v", id, err)
		}
	}
}

func demoIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("unit-%02d", i)
	}
	return ids
}

// #endregion fleet

// #region output

func printTelemetry(tick int, t swarm.Telemetry) {
	fmt.Printf("tick %4d | r=%.3f | mode=%s | clusters=%d | drift_energy=%.4f\n",
		tick, t.OrderParameter, t.DominantMode, t.ClusterCount, t.DriftEnergy)
}

func applyPolicyFile(s *swarm.Swarm, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read policy: %v", err)
	}
	m, err := policy.Decode(data)
	if err != nil {
		log.Fatalf("decode policy: %v", err)
	}
	if verr := s.ApplyPolicy(m); verr != nil {
		log.Fatalf("apply policy: %s", verr.Error())
	}
	fmt.Printf("policy epoch %d (%s) active\n", m.Epoch, m.Version)
}

func runFixture(s *swarm.Swarm, path string) {
	f, err := swarm.LoadFixture(path)
	if err != nil {
		log.Fatalf("load fixture: %v", err)
	}
	fmt.Printf("fixture: %s\n", f.Description)

	outcomes, err := s.RunFixture(f)
	if err != nil {
		log.Fatalf("run fixture: %v", err)
	}
	failures := 0
	for _, o := range outcomes {
		status := "ok"
		if !o.Match {
			status = fmt.Sprintf("MISMATCH (got allowed=%v violations=%v)", o.Decision.Allowed, o.Decision.Violations)
			failures++
		}
		fmt.Printf("  %-10s %-16s %s\n", o.Expected.Agent, o.Expected.Action, status)
	}
	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d expectation(s) failed\n", failures)
		os.Exit(1)
	}
}

// #endregion output
