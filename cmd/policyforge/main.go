// policyforge is the ground-control tool: it builds, signs and verifies
// policy manifests. Field units apply its output via the kernel's
// policy-apply operation.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kestrelrobotics/swarmgov/internal/policy"
)

// #region main

func main() {
	verify := flag.String("verify", "", "verify an existing manifest file and exit")
	keyPath := flag.String("key", "swarmgov.key", "signing key file (created if missing)")
	out := flag.String("out", "", "output path (default stdout)")

	epoch := flag.Uint64("epoch", 1, "policy epoch (must exceed the fleet's current epoch)")
	version := flag.String("version", "1.0.0", "semantic version")
	minSep := flag.Float64("min-separation", 1.0, "minimum pairwise separation")
	energyFloor := flag.Float64("energy-floor", 0.1, "minimum energy to act")
	minTrust := flag.Float64("min-trust", 0.2, "minimum trust to act")
	maxDrift := flag.Float64("max-drift", 0.5, "maximum drift magnitude")
	roles := flag.String("roles", "WORKER,SCOUT,SENTINEL,LEADER", "comma-separated allowed roles")
	suppressed := flag.String("suppressed-modes", "HAZARD", "comma-separated suppressed modes")
	ttl := flag.Duration("ttl", 24*time.Hour, "validity window from now")
	flag.Parse()

	signer, err := policy.LoadSigner(*keyPath)
	if err != nil {
		fatalf("load key: %v", err)
	}

	if *verify != "" {
		runVerify(signer, *verify)
		return
	}

	now := time.Now().UTC()
	m := policy.Manifest{
		Epoch:   *epoch,
		Version: *version,
		Params: policy.Params{
			MinSeparation:   *minSep,
			EnergyFloor:     *energyFloor,
			MinTrust:        *minTrust,
			MaxDrift:        *maxDrift,
			AllowedRoles:    splitList(*roles),
			SuppressedModes: splitList(*suppressed),
		},
		IssuedAt:  now,
		ExpiresAt: now.Add(*ttl),
	}

	signed, err := signer.Sign(m)
	if err != nil {
		fatalf("sign: %v", err)
	}
	data, err := policy.Encode(signed)
	if err != nil {
		fatalf("encode: %v", err)
	}

	if *out == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(*out, data, 0644); err != nil {
		fatalf("write manifest: %v", err)
	}
	fmt.Printf("wrote epoch %d manifest to %s\n", signed.Epoch, *out)
}

// #endregion main

// #region verify

func runVerify(signer *policy.Signer, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fatalf("read manifest: %v", err)
	}
	m, err := policy.Decode(data)
	if err != nil {
		fatalf("decode manifest: %v", err)
	}

	digest, err := policy.CanonicalDigest(m)
	if err != nil {
		fatalf("digest: %v", err)
	}
	fmt.Printf("epoch:     %d\n", m.Epoch)
	fmt.Printf("version:   %s\n", m.Version)
	fmt.Printf("digest:    %s\n", digest)
	fmt.Printf("expires:   %s\n", m.ExpiresAt.UTC().Format(time.RFC3339))

	if !signer.Verify(m) {
		fmt.Println("signature: INVALID")
		os.Exit(1)
	}
	fmt.Println("signature: ok")
	if verr := policy.Validate(m, signer, 0, time.Now()); verr != nil {
		fmt.Printf("status:    %s (%s)\n", verr.Reason, verr.Detail)
		os.Exit(1)
	}
	fmt.Println("status:    valid")
}

// #endregion verify

// #region helpers

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// #endregion helpers
