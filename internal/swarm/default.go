package swarm

import (
	"sync"

	"github.com/kestrelrobotics/swarmgov/internal/config"
	"github.com/kestrelrobotics/swarmgov/internal/policy"
)

// #region default
// The process-wide default swarm is an explicit lazily-constructed
// factory with optional injection, not a hidden global: one default,
// replaceable.
var (
	defaultMu    sync.Mutex
	defaultSwarm *Swarm
)

// Default returns the process-wide swarm, constructing it on first use
// from environment configuration. Construction errors fall back to the
// built-in defaults.
func Default() *Swarm {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultSwarm == nil {
		cfg, err := config.FromEnv()
		if err != nil {
			cfg = config.Default()
		}
		signer, err := policy.LoadSigner(cfg.KeyFilePath)
		if err != nil {
			signer = policy.NewSigner(nil)
		}
		defaultSwarm = New(cfg, signer)
	}
	return defaultSwarm
}

// SetDefault injects a replacement default swarm. Pass nil to force
// reconstruction on the next Default call.
func SetDefault(s *Swarm) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultSwarm = s
}

// #endregion default
