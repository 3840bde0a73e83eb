package mda

import "math"

// DefaultAlpha is the confidence parameter spec.md §4.6 calls "typical
// α = 0.05": the per-hop probability of missing a real next-hop
// interface that the stopping rule is willing to tolerate.
const DefaultAlpha = 0.05

// stoppingTable memoizes N(k, DefaultAlpha) for DefaultStoppingPoint;
// Saturated computes StoppingPoint directly and does not use it. Entries
// are computed lazily and never evicted.
var stoppingTable = map[int]int{}

// StoppingPoint returns N(k, alpha): the coupon-collector bound on how
// many distinct flows must be sent to a confluence with k known
// next-hop interfaces before the probability of a (k+1)th interface
// having gone unseen is at most alpha (spec.md §4.6 "Stopping rule").
//
// Derivation: treat the worst case as k+1 equally-likely branches (the
// k already observed, plus one hidden one). After n probes spread
// uniformly over k+1 branches, the probability every probe missed the
// hidden branch is (k/(k+1))^n; a union bound over the k+1 candidate
// "which one is hidden" hypotheses gives the requirement
//
//	(k/(k+1))^n <= alpha/(k+1)
//	n >= ln(alpha/(k+1)) / ln(k/(k+1))
//
// which reproduces the published stopping points (6, 11, 16, 21, 27, ...
// for alpha=0.05).
func StoppingPoint(k int, alpha float64) int {
	if k <= 0 {
		return 0
	}
	n := float64(k + 1)
	v := math.Log(alpha/n) / math.Log(float64(k)/n)
	return int(math.Ceil(v))
}

// DefaultStoppingPoint looks up N(k, DefaultAlpha), caching the result.
func DefaultStoppingPoint(k int) int {
	if v, ok := stoppingTable[k]; ok {
		return v
	}
	v := StoppingPoint(k, DefaultAlpha)
	stoppingTable[k] = v
	return v
}

// Saturated reports whether a confluence with k known interfaces is done
// being probed after `sent` flows, given `sinceNewInterface` flows have
// elapsed since the last newly-discovered interface (spec.md §4.6: "no
// new interface has appeared in the last N(k,α) − N(k−1,α) probes").
func Saturated(k, sent, sinceNewInterface int, alpha float64) bool {
	if k == 0 {
		// A single flow with no reply yet is not saturated; the first
		// probe must be sent before any stopping decision applies.
		return sent >= StoppingPoint(1, alpha)
	}
	nk := StoppingPoint(k, alpha)
	nkMinus1 := 0
	if k > 1 {
		nkMinus1 = StoppingPoint(k-1, alpha)
	}
	window := nk - nkMinus1
	return sent >= nk && sinceNewInterface >= window
}
