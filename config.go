package goAuthFlow

import (
	"errors"
	"time"
)

// Config defines a public type used by goAuthFlow APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Orchestrator  OrchestratorConfig
	Challenge     ChallengeConfig
	Risk          RiskConfig
	Policy        PolicyConfig
	StepUp        StepUpConfig
	Session       SessionConfig
	RateLimit     RateLimitConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
	DecisionToken DecisionTokenConfig
	Security      SecurityConfig
}

/*
====================================
ORCHESTRATOR CONFIG
====================================
*/

// OrchestratorConfig defines a public type used by goAuthFlow APIs.
//
// OrchestratorConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type OrchestratorConfig struct {
	// SessionTTL bounds the whole flow. A session that has not reached a
	// terminal state by then is swept to EXPIRED.
	SessionTTL time.Duration
	// MaxSteps caps the number of challenges per session. Sessions that need
	// more fail with PROVIDER_EXHAUSTED.
	MaxSteps int
	// ProviderRetryLimit is the number of retries after a transient provider
	// error before the session fails.
	ProviderRetryLimit int
	// ProviderRetryBackoff is the fixed sleep between provider retries.
	ProviderRetryBackoff time.Duration
	// PreferCategoryDiversity makes step-up selection prefer providers of a
	// category not yet used in the session, at equal assurance.
	PreferCategoryDiversity bool
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ChallengeConfig defines a public type used by goAuthFlow APIs.
//
// ChallengeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ChallengeConfig struct {
	TTL         time.Duration
	MaxAttempts int
}

/*
====================================
RISK CONFIG
====================================
*/

// RiskConfig defines a public type used by goAuthFlow APIs.
//
// RiskConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RiskConfig struct {
	// Weights overrides per-factor weights by name. A zero weight removes
	// the factor from scoring.
	Weights map[string]float64
}

/*
====================================
POLICY CONFIG
====================================
*/

// PolicyConfig defines a public type used by goAuthFlow APIs.
//
// PolicyConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PolicyConfig struct {
	// BandThresholds are the upper bounds of MINIMAL, LOW, MEDIUM, and HIGH.
	BandThresholds [4]float64
	// BandAssurance maps band index to minimum required assurance level.
	BandAssurance [5]int
	// DefaultStepUpThreshold applies when tenant policy leaves it unset.
	DefaultStepUpThreshold float64
}

/*
====================================
STEP-UP CONFIG
====================================
*/

// StepUpConfig defines a public type used by goAuthFlow APIs.
//
// StepUpConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StepUpConfig struct {
	// RiskDeltaThreshold is the mid-flow risk increase that forces a step-up
	// re-evaluation even when the assurance target is already met.
	RiskDeltaThreshold float64
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by goAuthFlow APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix string
	// RetentionTTL keeps terminal sessions readable for introspection before
	// Redis drops them.
	RetentionTTL time.Duration
	// SweepInterval is the background sweeper tick.
	SweepInterval time.Duration
	// SweepBatch caps sessions handled per sweep tick.
	SweepBatch int
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines a public type used by goAuthFlow APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	EnableStartThrottle  bool
	EnableIPThrottle     bool
	EnableSubmitThrottle bool
	MaxStartAttempts     int
	StartWindow          time.Duration
	MaxSubmitAttempts    int
	SubmitWindow         time.Duration
}

// AuditConfig defines a public type used by goAuthFlow APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goAuthFlow APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DECISION TOKEN CONFIG
====================================
*/

// DecisionTokenConfig defines a public type used by goAuthFlow APIs.
//
// DecisionTokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type DecisionTokenConfig struct {
	Enabled       bool
	TTL           time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig defines a public type used by goAuthFlow APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	ProductionMode bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration the builder starts from.
// Callers tweak the returned value and pass it to [Builder.WithConfig].
//
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Orchestrator: OrchestratorConfig{
			SessionTTL:              10 * time.Minute,
			MaxSteps:                4,
			ProviderRetryLimit:      2,
			ProviderRetryBackoff:    50 * time.Millisecond,
			PreferCategoryDiversity: true,
		},
		Challenge: ChallengeConfig{
			TTL:         3 * time.Minute,
			MaxAttempts: 3,
		},
		Policy: PolicyConfig{
			BandThresholds:         [4]float64{0.2, 0.4, 0.6, 0.8},
			BandAssurance:          [5]int{1, 1, 2, 3, 4},
			DefaultStepUpThreshold: 0.6,
		},
		StepUp: StepUpConfig{
			RiskDeltaThreshold: 0.2,
		},
		Session: SessionConfig{
			RedisPrefix:   "afl",
			RetentionTTL:  15 * time.Minute,
			SweepInterval: 30 * time.Second,
			SweepBatch:    256,
		},
		RateLimit: RateLimitConfig{
			EnableStartThrottle:  true,
			EnableIPThrottle:     false,
			EnableSubmitThrottle: true,
			MaxStartAttempts:     10,
			StartWindow:          15 * time.Minute,
			MaxSubmitAttempts:    20,
			SubmitWindow:         time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		DecisionToken: DecisionTokenConfig{
			Enabled:       false,
			TTL:           5 * time.Minute,
			SigningMethod: "ed25519",
		},
		Security: SecurityConfig{
			ProductionMode: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.DecisionToken.PrivateKey = cloneBytes(cfg.DecisionToken.PrivateKey)
	out.DecisionToken.PublicKey = cloneBytes(cfg.DecisionToken.PublicKey)
	if len(cfg.Risk.Weights) > 0 {
		out.Risk.Weights = make(map[string]float64, len(cfg.Risk.Weights))
		for k, v := range cfg.Risk.Weights {
			out.Risk.Weights[k] = v
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Orchestrator
	if c.Orchestrator.SessionTTL <= 0 {
		return errors.New("Orchestrator SessionTTL must be > 0")
	}
	if c.Orchestrator.MaxSteps <= 0 {
		return errors.New("Orchestrator MaxSteps must be > 0")
	}
	if c.Orchestrator.ProviderRetryLimit < 0 {
		return errors.New("Orchestrator ProviderRetryLimit must be >= 0")
	}
	if c.Orchestrator.ProviderRetryBackoff < 0 {
		return errors.New("Orchestrator ProviderRetryBackoff must be >= 0")
	}

	// Challenge
	if c.Challenge.TTL <= 0 {
		return errors.New("Challenge TTL must be > 0")
	}
	if c.Challenge.TTL > c.Orchestrator.SessionTTL {
		return errors.New("Challenge TTL must not exceed Orchestrator SessionTTL")
	}
	if c.Challenge.MaxAttempts <= 0 {
		return errors.New("Challenge MaxAttempts must be > 0")
	}

	// Risk
	for name, w := range c.Risk.Weights {
		if w < 0 {
			return errors.New("Risk weight for " + name + " must be >= 0")
		}
	}

	// Policy
	prev := 0.0
	for _, t := range c.Policy.BandThresholds {
		if t <= prev || t > 1 {
			return errors.New("Policy BandThresholds must be strictly increasing within (0,1]")
		}
		prev = t
	}
	for _, a := range c.Policy.BandAssurance {
		if a < 0 || a > 4 {
			return errors.New("Policy BandAssurance levels must be within [0,4]")
		}
	}
	if c.Policy.DefaultStepUpThreshold <= 0 || c.Policy.DefaultStepUpThreshold > 1 {
		return errors.New("Policy DefaultStepUpThreshold must be within (0,1]")
	}

	// StepUp
	if c.StepUp.RiskDeltaThreshold < 0 || c.StepUp.RiskDeltaThreshold > 1 {
		return errors.New("StepUp RiskDeltaThreshold must be within [0,1]")
	}

	// Session
	if c.Session.RetentionTTL <= 0 {
		return errors.New("Session RetentionTTL must be > 0")
	}
	if c.Session.SweepInterval <= 0 {
		return errors.New("Session SweepInterval must be > 0")
	}
	if c.Session.SweepBatch <= 0 {
		return errors.New("Session SweepBatch must be > 0")
	}

	// Rate limit
	if c.RateLimit.EnableStartThrottle {
		if c.RateLimit.MaxStartAttempts <= 0 {
			return errors.New("RateLimit MaxStartAttempts must be > 0 when start throttle is enabled")
		}
		if c.RateLimit.StartWindow <= 0 {
			return errors.New("RateLimit StartWindow must be > 0 when start throttle is enabled")
		}
	}
	if c.RateLimit.EnableSubmitThrottle {
		if c.RateLimit.MaxSubmitAttempts <= 0 {
			return errors.New("RateLimit MaxSubmitAttempts must be > 0 when submit throttle is enabled")
		}
		if c.RateLimit.SubmitWindow <= 0 {
			return errors.New("RateLimit SubmitWindow must be > 0 when submit throttle is enabled")
		}
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	// Decision tokens
	if c.DecisionToken.Enabled {
		if c.DecisionToken.TTL <= 0 {
			return errors.New("DecisionToken TTL must be > 0")
		}
		switch c.DecisionToken.SigningMethod {
		case "ed25519":
			if len(c.DecisionToken.PrivateKey) == 0 {
				return errors.New("ed25519 requires PrivateKey")
			}
			if len(c.DecisionToken.PublicKey) == 0 {
				return errors.New("ed25519 requires PublicKey")
			}
		case "hs256":
			if len(c.DecisionToken.PrivateKey) == 0 {
				return errors.New("hs256 requires PrivateKey")
			}
		default:
			return errors.New("unsupported DecisionToken signing method")
		}
	}

	if c.Security.ProductionMode {
		if !c.RateLimit.EnableStartThrottle {
			return errors.New("ProductionMode requires start throttle")
		}
		if !c.RateLimit.EnableSubmitThrottle {
			return errors.New("ProductionMode requires submit throttle")
		}
		if c.Orchestrator.SessionTTL > 30*time.Minute {
			return errors.New("ProductionMode requires Orchestrator SessionTTL <= 30m")
		}
		if c.Challenge.MaxAttempts > 5 {
			return errors.New("ProductionMode requires Challenge MaxAttempts <= 5")
		}
		if c.DecisionToken.Enabled &&
			c.DecisionToken.SigningMethod == "hs256" &&
			len(c.DecisionToken.PrivateKey) < 32 {
			return errors.New("ProductionMode requires hs256 key length >= 256 bits")
		}
	}

	return nil
}
