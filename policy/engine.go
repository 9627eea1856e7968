package policy

import (
	"context"

	"github.com/MrEthical07/goAuthFlow/registry"
)

// Band defines a public type used by goAuthFlow APIs.
//
// Band instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Band int

const (
	// BandMinimal is an exported constant or variable used by the authentication orchestration engine.
	BandMinimal Band = iota
	// BandLow is an exported constant or variable used by the authentication orchestration engine.
	BandLow
	// BandMedium is an exported constant or variable used by the authentication orchestration engine.
	BandMedium
	// BandHigh is an exported constant or variable used by the authentication orchestration engine.
	BandHigh
	// BandCritical is an exported constant or variable used by the authentication orchestration engine.
	BandCritical
)

// String describes the string operation and its observable behavior.
func (b Band) String() string {
	switch b {
	case BandMinimal:
		return "MINIMAL"
	case BandLow:
		return "LOW"
	case BandMedium:
		return "MEDIUM"
	case BandHigh:
		return "HIGH"
	case BandCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Sensitivity defines a public type used by goAuthFlow APIs.
//
// Sensitivity is the resource sensitivity tier (0 public .. 4 restricted).
// Tier N demands assurance level N (minimum 1); sensitivity can only raise the
// requirement derived from risk, never lower it.
type Sensitivity int

func (s Sensitivity) requiredAssurance() int {
	if s <= 1 {
		return 1
	}
	if s > 4 {
		return 4
	}
	return int(s)
}

// TenantPolicy defines a public type used by goAuthFlow APIs.
//
// TenantPolicy instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TenantPolicy struct {
	TenantID        string
	DeniedMethodIDs []string
	// MinAssurance floors the requirement for every request of the tenant.
	MinAssurance int
	// StepUpThreshold forces step-up above this risk score even when the
	// achieved assurance nominally suffices. Zero means use the engine
	// default.
	StepUpThreshold float64
	// RequireApprovalAt marks the band from which decisions carry the
	// requires-approval flag. Approval is a policy property, not a band
	// property.
	RequireApprovalAt Band
	// BandAssurance optionally overrides the band -> assurance mapping;
	// zero entries keep the engine default.
	BandAssurance [5]int
}

// Store defines a public type used by goAuthFlow APIs.
//
// Store is the external tenant policy source. A nil policy with nil error is
// treated as a miss and resolved against the default policy.
type Store interface {
	GetTenantPolicy(ctx context.Context, tenantID string) (*TenantPolicy, error)
}

// Decision defines a public type used by goAuthFlow APIs.
//
// Decision is the resolved policy for one (tenant, sensitivity, risk) tuple.
type Decision struct {
	Band              Band
	RequiredAssurance int
	AllowedMethodIDs  []string
	DeniedMethodIDs   []string
	StepUpThreshold   float64
	RequiresApproval  bool
	// Fallback is set when the tenant policy could not be fetched and the
	// conservative default was applied.
	Fallback bool
}

// Config defines a public type used by goAuthFlow APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// BandThresholds are the upper bounds of MINIMAL, LOW, MEDIUM, and HIGH.
	// Scores at or above the last threshold are CRITICAL.
	BandThresholds [4]float64
	// BandAssurance maps band index to minimum required assurance level.
	BandAssurance [5]int
	// DefaultStepUpThreshold applies when the tenant policy leaves the
	// threshold unset.
	DefaultStepUpThreshold float64
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
func DefaultConfig() Config {
	return Config{
		BandThresholds:         [4]float64{0.2, 0.4, 0.6, 0.8},
		BandAssurance:          [5]int{1, 1, 2, 3, 4},
		DefaultStepUpThreshold: 0.6,
	}
}

// Engine defines a public type used by goAuthFlow APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	store Store
	cfg   Config
}

// NewEngine describes the newengine operation and its observable behavior.
//
// NewEngine does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewEngine(store Store, cfg Config) *Engine {
	if cfg.BandThresholds == ([4]float64{}) {
		cfg = DefaultConfig()
	}
	return &Engine{store: store, cfg: cfg}
}

// BandFor maps a risk score to its band using the configured thresholds.
func (e *Engine) BandFor(score float64) Band {
	t := e.cfg.BandThresholds
	switch {
	case score < t[0]:
		return BandMinimal
	case score < t[1]:
		return BandLow
	case score < t[2]:
		return BandMedium
	case score < t[3]:
		return BandHigh
	default:
		return BandCritical
	}
}

// Resolve computes the policy decision for one request. candidates is the
// live provider catalog in deterministic order (assurance desc, id asc);
// order is preserved in AllowedMethodIDs.
//
// Resolve never fails open: a store miss or error yields the conservative
// default policy with Decision.Fallback set. An empty AllowedMethodIDs is a
// valid decision (the orchestrator treats it as DENY), not an engine fault.
func (e *Engine) Resolve(
	ctx context.Context,
	tenantID string,
	sensitivity Sensitivity,
	riskScore float64,
	candidates []registry.Descriptor,
) Decision {
	tp, fallback := e.tenantPolicy(ctx, tenantID)

	band := e.BandFor(riskScore)

	required := e.bandAssurance(tp, band)
	if byResource := sensitivity.requiredAssurance(); byResource > required {
		// Sensitivity only ever raises the requirement.
		required = byResource
	}
	if tp.MinAssurance > required {
		required = tp.MinAssurance
	}
	if required > 4 {
		required = 4
	}

	threshold := tp.StepUpThreshold
	if threshold <= 0 {
		threshold = e.cfg.DefaultStepUpThreshold
	}

	denied := make(map[string]struct{}, len(tp.DeniedMethodIDs))
	for _, id := range tp.DeniedMethodIDs {
		denied[id] = struct{}{}
	}

	allowed := make([]string, 0, len(candidates))
	for _, d := range candidates {
		if d.AssuranceLevel < required {
			continue
		}
		if _, ok := denied[d.ID]; ok {
			continue
		}
		allowed = append(allowed, d.ID)
	}

	// RequireApprovalAt zero means unset: approval then applies from CRITICAL.
	requiresApproval := band == BandCritical
	if tp.RequireApprovalAt > 0 {
		requiresApproval = band >= tp.RequireApprovalAt
	}

	return Decision{
		Band:              band,
		RequiredAssurance: required,
		AllowedMethodIDs:  allowed,
		DeniedMethodIDs:   append([]string(nil), tp.DeniedMethodIDs...),
		StepUpThreshold:   threshold,
		RequiresApproval:  requiresApproval,
		Fallback:          fallback,
	}
}

func (e *Engine) tenantPolicy(ctx context.Context, tenantID string) (TenantPolicy, bool) {
	if e.store == nil {
		return e.defaultPolicy(tenantID), true
	}
	tp, err := e.store.GetTenantPolicy(ctx, tenantID)
	if err != nil || tp == nil {
		return e.defaultPolicy(tenantID), true
	}
	return *tp, false
}

func (e *Engine) defaultPolicy(tenantID string) TenantPolicy {
	return TenantPolicy{
		TenantID:        tenantID,
		StepUpThreshold: e.cfg.DefaultStepUpThreshold,
	}
}

func (e *Engine) bandAssurance(tp TenantPolicy, band Band) int {
	if tp.BandAssurance[band] > 0 {
		return tp.BandAssurance[band]
	}
	if e.cfg.BandAssurance[band] > 0 {
		return e.cfg.BandAssurance[band]
	}
	return DefaultConfig().BandAssurance[band]
}
