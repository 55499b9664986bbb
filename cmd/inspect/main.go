// inspect reads a swarmgov audit database and prints recent kernel
// decisions, violation counts and applied-policy history.
package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kestrelrobotics/swarmgov/internal/audit"
	"github.com/kestrelrobotics/swarmgov/internal/policy"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to audit database")
	node := flag.String("node", "", "show decisions for one node")
	last := flag.Int("last", 20, "show N most recent decisions")
	since := flag.Duration("since", 24*time.Hour, "violation-count window")
	policies := flag.Bool("policies", false, "list applied-policy history instead of decisions")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/audit.db [--node id] [--last N] [--policies] [--json]")
		os.Exit(2)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		fatalf("open db: %v", err)
	}
	defer db.Close()

	if *policies {
		if err := listPolicies(db, *last, *jsonOut); err != nil {
			fatalf("error: %v", err)
		}
		return
	}

	if *node == "" {
		fmt.Fprintln(os.Stderr, "--node required unless --policies is set")
		os.Exit(2)
	}
	if err := listDecisions(db, *node, *last, *since, *jsonOut); err != nil {
		fatalf("error: %v", err)
	}
}

// #endregion main

// #region decisions

func listDecisions(db *sql.DB, node string, last int, since time.Duration, jsonOut bool) error {
	store, err := audit.NewStore(db)
	if err != nil {
		return err
	}
	entries, err := store.Recent(node, last)
	if err != nil {
		return err
	}
	violations, err := store.ViolationCount(node, time.Now().Add(-since))
	if err != nil {
		return err
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"node":             node,
			"violation_count":  violations,
			"window":           since.String(),
			"recent_decisions": entries,
		})
	}

	fmt.Printf("node %s: %d violation(s) in the last %s\n\n", node, violations, since)
	fmt.Printf("%-38s %-16s %-7s %-8s %s\n", "DECISION", "ACTION", "EPOCH", "VERDICT", "VIOLATIONS")
	for _, e := range entries {
		verdict := "ALLOW"
		if !e.Allowed {
			verdict = "DENY"
		}
		fmt.Printf("%-38s %-16s %-7d %-8s %s\n",
			e.DecisionID, e.Action, e.Epoch, verdict, strings.Join(e.Violations, ","))
	}
	return nil
}

// #endregion decisions

// #region policies

func listPolicies(db *sql.DB, last int, jsonOut bool) error {
	store, err := policy.NewStore(db)
	if err != nil {
		return err
	}
	hist, err := store.History(last)
	if err != nil {
		return err
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(hist)
	}

	fmt.Printf("%-7s %-10s %-22s %-22s %s\n", "EPOCH", "VERSION", "ISSUED", "EXPIRES", "ROLES")
	for _, m := range hist {
		fmt.Printf("%-7d %-10s %-22s %-22s %s\n",
			m.Epoch, m.Version,
			m.IssuedAt.UTC().Format(time.RFC3339),
			m.ExpiresAt.UTC().Format(time.RFC3339),
			strings.Join(m.Params.AllowedRoles, ","))
	}
	return nil
}

// #endregion policies

// #region helpers

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// #endregion helpers
