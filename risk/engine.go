package risk

import "time"

// Config defines a public type used by goAuthFlow APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// Weights overrides per-factor weights by name; omitted factors keep
	// their defaults. A zero weight removes the factor from scoring.
	Weights map[string]float64
}

// Assessment defines a public type used by goAuthFlow APIs.
//
// Assessment is the output of one risk evaluation. Factors maps factor name to
// its clamped [0,1] contribution. Degraded is set when the engine failed
// closed because no factor was available.
type Assessment struct {
	Score      float64
	Factors    map[string]float64
	ComputedAt time.Time
	Degraded   bool
}

// Engine defines a public type used by goAuthFlow APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	factors []Factor
}

// NewEngine describes the newengine operation and its observable behavior.
//
// NewEngine does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewEngine(cfg Config) *Engine {
	return &Engine{factors: defaultFactors(cfg.Weights)}
}

// NewEngineWithFactors builds an engine from an explicit factor set. Intended
// for deployments that feed custom signal sources.
func NewEngineWithFactors(factors []Factor) *Engine {
	return &Engine{factors: factors}
}

// Assess computes the weighted-average risk score for the context. Factors
// reporting unavailable are excluded from numerator and denominator alike.
// When every factor is unavailable the engine fails closed: score 1.0,
// Degraded set, so the caller lands in the strictest policy band.
func (e *Engine) Assess(ac *AuthContext) Assessment {
	out := Assessment{
		Factors:    make(map[string]float64, len(e.factors)),
		ComputedAt: time.Now().UTC(),
	}

	var weighted, totalWeight float64
	for _, f := range e.factors {
		w := f.Weight()
		if w <= 0 {
			continue
		}
		score, ok := f.Evaluate(ac)
		if !ok {
			continue
		}
		score = clamp01(score)
		out.Factors[f.Name()] = score
		weighted += score * w
		totalWeight += w
	}

	if totalWeight == 0 {
		out.Score = 1.0
		out.Degraded = true
		out.Factors = map[string]float64{factorDegradedMarker: 1}
		return out
	}

	out.Score = clamp01(weighted / totalWeight)
	return out
}

// Increased reports whether the score rose from prev to cur by at least delta.
// Used to force step-up re-evaluation mid-flow.
func Increased(prev, cur, delta float64) bool {
	if delta <= 0 {
		return false
	}
	return cur-prev >= delta
}
