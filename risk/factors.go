package risk

// Factor names used in Assessment.Factors and Config.Weights.
const (
	FactorDeviceTrust    = "device_trust"
	FactorLocation       = "location"
	FactorNetwork        = "network_reputation"
	FactorBehavior       = "behavioral_deviation"
	FactorTemporal       = "temporal_pattern"
	FactorSensitivity    = "resource_sensitivity"
	FactorHistory        = "history"
	FactorThreatIntel    = "threat_intel"
	factorDegradedMarker = "degraded"
)

// Factor defines a public type used by goAuthFlow APIs.
//
// Factor scores one risk dimension from the context. The second return value
// reports availability: false excludes the factor from the weighted average.
type Factor interface {
	Name() string
	Weight() float64
	Evaluate(ac *AuthContext) (float64, bool)
}

type factorFunc struct {
	name   string
	weight float64
	fn     func(ac *AuthContext) (float64, bool)
}

func (f factorFunc) Name() string    { return f.name }
func (f factorFunc) Weight() float64 { return f.weight }
func (f factorFunc) Evaluate(ac *AuthContext) (float64, bool) {
	if ac == nil {
		return 0, false
	}
	return f.fn(ac)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func defaultFactors(weights map[string]float64) []Factor {
	weight := func(name string, fallback float64) float64 {
		if w, ok := weights[name]; ok && w >= 0 {
			return w
		}
		return fallback
	}

	return []Factor{
		factorFunc{name: FactorDeviceTrust, weight: weight(FactorDeviceTrust, 0.20), fn: scoreDevice},
		factorFunc{name: FactorLocation, weight: weight(FactorLocation, 0.15), fn: scoreLocation},
		factorFunc{name: FactorNetwork, weight: weight(FactorNetwork, 0.15), fn: scoreNetwork},
		factorFunc{name: FactorBehavior, weight: weight(FactorBehavior, 0.10), fn: scoreBehavior},
		factorFunc{name: FactorTemporal, weight: weight(FactorTemporal, 0.10), fn: scoreTemporal},
		factorFunc{name: FactorSensitivity, weight: weight(FactorSensitivity, 0.10), fn: scoreSensitivity},
		factorFunc{name: FactorHistory, weight: weight(FactorHistory, 0.10), fn: scoreHistory},
		factorFunc{name: FactorThreatIntel, weight: weight(FactorThreatIntel, 0.10), fn: scoreThreatIntel},
	}
}

func scoreDevice(ac *AuthContext) (float64, bool) {
	d := ac.Device
	if d == nil {
		return 0, false
	}
	score := 1 - clamp01(d.TrustScore)
	if !d.Known {
		score += 0.25
	}
	if d.Changed {
		score += 0.25
	}
	return clamp01(score), true
}

func scoreLocation(ac *AuthContext) (float64, bool) {
	l := ac.Location
	if l == nil {
		return 0, false
	}
	score := clamp01(l.AnomalyScore)
	if l.NewCountry {
		score += 0.2
	}
	if l.ImpossibleTravel {
		// Physically impossible movement dominates the dimension.
		score = 1
	}
	return clamp01(score), true
}

func scoreNetwork(ac *AuthContext) (float64, bool) {
	n := ac.Network
	if n == nil {
		return 0, false
	}
	score := clamp01(n.ReputationScore)
	if n.Proxy {
		score += 0.15
	}
	if n.Tor {
		score += 0.35
	}
	return clamp01(score), true
}

func scoreBehavior(ac *AuthContext) (float64, bool) {
	b := ac.Behavior
	if b == nil {
		return 0, false
	}
	return clamp01(b.DeviationScore), true
}

func scoreTemporal(ac *AuthContext) (float64, bool) {
	t := ac.Temporal
	if t == nil {
		return 0, false
	}
	score := clamp01(t.AnomalyScore)
	if t.OffHours {
		score += 0.2
	}
	return clamp01(score), true
}

func scoreSensitivity(ac *AuthContext) (float64, bool) {
	if ac.ResourceSensitivity < 0 {
		return 0, false
	}
	s := ac.ResourceSensitivity
	if s > 4 {
		s = 4
	}
	return float64(s) / 4, true
}

func scoreHistory(ac *AuthContext) (float64, bool) {
	h := ac.History
	if h == nil {
		return 0, false
	}
	score := float64(h.RecentFailures) * 0.15
	if h.DaysSinceLastAuth > 90 {
		score += 0.25
	} else if h.DaysSinceLastAuth > 30 {
		score += 0.1
	}
	return clamp01(score), true
}

func scoreThreatIntel(ac *AuthContext) (float64, bool) {
	t := ac.ThreatIntel
	if t == nil {
		return 0, false
	}
	score := clamp01(t.Score)
	if t.KnownCompromised {
		score = 1
	}
	return score, true
}
