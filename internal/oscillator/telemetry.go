package oscillator

import "math"

// #region order-parameter

// OrderParameter computes the Kuramoto order parameter r·e^{iψ} as the
// mean of e^{i·phase} over all oscillators. r ∈ [0,1]; 1 is perfect sync.
// An empty bus returns (0, 0).
func (b *Bus) OrderParameter() (r, psi float64) {
	if len(b.states) == 0 {
		return 0, 0
	}
	var re, im float64
	for _, s := range b.states {
		re += math.Cos(s.Phase)
		im += math.Sin(s.Phase)
	}
	n := float64(len(b.states))
	re /= n
	im /= n
	return math.Hypot(re, im), math.Atan2(im, re)
}

// #endregion order-parameter

// #region dominant-mode

// DominantMode returns the mode held by the largest population. Ties
// resolve to the more conservative band (REGROUP < EXPLORE < COMMIT <
// HAZARD iteration order). Empty bus returns REGROUP.
func (b *Bus) DominantMode() Mode {
	counts := map[Mode]int{}
	for _, s := range b.states {
		counts[s.Mode]++
	}
	best := ModeRegroup
	bestCount := -1
	for _, m := range []Mode{ModeRegroup, ModeExplore, ModeCommit, ModeHazard} {
		if counts[m] > bestCount {
			best = m
			bestCount = counts[m]
		}
	}
	return best
}

// #endregion dominant-mode

// #region clustering

// clusterTolerance is the circular phase distance within which an agent
// joins an existing cluster seed.
const clusterTolerance = math.Pi / 4

// ClusterCount runs a greedy single-pass phase clustering: each oscillator
// joins the first cluster whose seed phase lies within π/4 circular
// distance, otherwise seeds a new cluster. Disconnected spatial subsets
// self-synchronize into separate clusters with no global agreement
// required; the count reveals partition tolerance.
func (b *Bus) ClusterCount() int {
	var seeds []float64
	for _, s := range b.States() {
		joined := false
		for _, seed := range seeds {
			if circularDistance(s.Phase, seed) <= clusterTolerance {
				joined = true
				break
			}
		}
		if !joined {
			seeds = append(seeds, s.Phase)
		}
	}
	return len(seeds)
}

// circularDistance returns the shortest angular distance between two
// phases on the unit circle.
func circularDistance(a, b float64) float64 {
	d := math.Abs(wrapPhase(a) - wrapPhase(b))
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

// #endregion clustering

// #region snapshot

// Snapshot assembles the plain-data telemetry view of the bus.
func (b *Bus) Snapshot() Snapshot {
	r, psi := b.OrderParameter()
	return Snapshot{
		States:         b.States(),
		OrderParameter: r,
		MeanPhase:      psi,
		DominantMode:   b.DominantMode(),
		ClusterCount:   b.ClusterCount(),
	}
}

// #endregion snapshot
