package stepup

import (
	"github.com/MrEthical07/goAuthFlow/policy"
	"github.com/MrEthical07/goAuthFlow/registry"
	"github.com/MrEthical07/goAuthFlow/risk"
)

// Candidate defines a public type used by goAuthFlow APIs.
//
// Candidate pairs a live descriptor with the provider's answer to
// SupportsStepUp(achieved, target), precomputed by the orchestrator so Decide
// stays pure.
type Candidate struct {
	registry.Descriptor
	CanStepUp bool
}

// Input defines a public type used by goAuthFlow APIs.
//
// Input carries everything Decide needs: the session's progress, the current
// policy decision, the latest two risk scores, and the non-denylisted
// candidates in deterministic order (assurance desc, id asc).
type Input struct {
	AchievedAssurance int
	TargetAssurance   int

	AttemptedProviderIDs []string
	UsedCategories       []registry.Category

	RiskScore          float64
	PreviousRiskScore  float64
	RiskDeltaThreshold float64

	Policy     policy.Decision
	Candidates []Candidate

	// PreferCategoryDiversity prefers a category not yet used in this
	// session among equal-assurance candidates (defense in depth).
	PreferCategoryDiversity bool
}

// Outcome defines a public type used by goAuthFlow APIs.
//
// Outcome instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Outcome struct {
	Complete            bool
	NextProviderID      string
	NextProviderVersion string
	ForcedByRisk        bool
	// Interim marks a below-requirement first factor selected to establish
	// identity before a step-up-only provider can run.
	Interim bool
	// Unsatisfiable means more assurance is required but no usable provider
	// remains. The orchestrator surfaces it as DENY.
	Unsatisfiable bool
}

// Decide evaluates whether the session may complete or must step up.
//
// The decision is fail-safe in both directions: missing assurance with no
// remaining provider is Unsatisfiable (never silently complete), while a
// risk-forced step-up with no remaining provider completes only when the
// target assurance was already met.
func Decide(in Input) Outcome {
	forced := risk.Increased(in.PreviousRiskScore, in.RiskScore, in.RiskDeltaThreshold)
	if !forced && in.Policy.StepUpThreshold > 0 && in.RiskScore >= in.Policy.StepUpThreshold {
		forced = true
	}

	met := in.AchievedAssurance >= in.TargetAssurance
	if met && !forced {
		return Outcome{Complete: true}
	}

	if len(in.Policy.AllowedMethodIDs) == 0 {
		if met {
			return Outcome{Complete: true, ForcedByRisk: forced}
		}
		return Outcome{Unsatisfiable: true}
	}

	if next, ok := selectSatisfying(in); ok {
		return Outcome{
			NextProviderID:      next.ID,
			NextProviderVersion: next.Version,
			ForcedByRisk:        forced && met,
		}
	}

	// No requirement-satisfying provider can run from the current assurance.
	// Before the first factor, an interim lower-level provider may establish
	// identity so a step-up-only provider becomes reachable.
	if len(in.AttemptedProviderIDs) == 0 {
		if next, ok := selectInterim(in); ok {
			return Outcome{
				NextProviderID:      next.ID,
				NextProviderVersion: next.Version,
				Interim:             true,
			}
		}
	}

	if met {
		// Every usable provider was consumed; the forced step-up has nothing
		// left to ask for. Complete at the achieved level.
		return Outcome{Complete: true, ForcedByRisk: forced}
	}
	return Outcome{Unsatisfiable: true}
}

// selectSatisfying picks the best unattempted candidate that meets the policy
// requirement and can run from the current assurance level.
func selectSatisfying(in Input) (registry.Descriptor, bool) {
	allowed := idSet(in.Policy.AllowedMethodIDs)
	attempted := idSet(in.AttemptedProviderIDs)
	used := categorySet(in.UsedCategories)

	var (
		best      registry.Descriptor
		bestFound bool
		bestFresh bool
	)
	// Candidates arrive sorted assurance desc, id asc; the first eligible hit
	// wins unless diversity promotes a fresh category at the same level.
	for _, c := range in.Candidates {
		if _, ok := allowed[c.ID]; !ok {
			continue
		}
		if _, ok := attempted[c.ID]; ok {
			continue
		}
		if !c.CanStepUp {
			continue
		}
		if len(in.AttemptedProviderIDs) > 0 && !c.Capabilities.SupportsStepUp {
			continue
		}
		_, seen := used[c.Category]
		fresh := !seen

		if !bestFound {
			best, bestFound, bestFresh = c.Descriptor, true, fresh
			continue
		}
		if in.PreferCategoryDiversity && fresh && !bestFresh && c.AssuranceLevel == best.AssuranceLevel {
			best, bestFresh = c.Descriptor, true
		}
	}
	return best, bestFound
}

// selectInterim picks the highest-assurance candidate below the requirement
// that can start cold. Ordering determinism comes from the candidate slice.
func selectInterim(in Input) (registry.Descriptor, bool) {
	for _, c := range in.Candidates {
		if c.AssuranceLevel >= in.Policy.RequiredAssurance {
			continue
		}
		if !c.CanStepUp {
			continue
		}
		return c.Descriptor, true
	}
	return registry.Descriptor{}, false
}

func idSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func categorySet(cats []registry.Category) map[registry.Category]struct{} {
	m := make(map[registry.Category]struct{}, len(cats))
	for _, c := range cats {
		m[c] = struct{}{}
	}
	return m
}
