package goAuthFlow

import (
	"errors"

	"github.com/MrEthical07/goAuthFlow/internal/rate"
	"github.com/MrEthical07/goAuthFlow/jwt"
	"github.com/MrEthical07/goAuthFlow/policy"
	"github.com/MrEthical07/goAuthFlow/registry"
	"github.com/MrEthical07/goAuthFlow/risk"
	"github.com/MrEthical07/goAuthFlow/session"
	goredis "github.com/redis/go-redis/v9"
)

// Builder defines a public type used by goAuthFlow APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  goredis.UniversalClient

	contextProvider ContextProvider
	policyStore     policy.Store
	riskFactors     []risk.Factor
	auditSink       AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client goredis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithContextProvider describes the withcontextprovider operation and its observable behavior.
//
// WithContextProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithContextProvider(cp ContextProvider) *Builder {
	b.contextProvider = cp
	return b
}

// WithPolicyStore describes the withpolicystore operation and its observable behavior.
//
// WithPolicyStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithPolicyStore(store policy.Store) *Builder {
	b.policyStore = store
	return b
}

// WithRiskFactors replaces the built-in risk factor set. Intended for
// deployments that feed custom signal sources.
func (b *Builder) WithRiskFactors(factors []risk.Factor) *Builder {
	b.riskFactors = factors
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Orchestrator, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.contextProvider == nil {
		return nil, errors.New("context provider required")
	}

	// -------- SESSION STORE --------
	store := session.NewStore(
		b.redis,
		cfg.Session.RedisPrefix,
		cfg.Session.RetentionTTL,
	)

	// -------- RISK ENGINE --------
	var riskEngine *risk.Engine
	if len(b.riskFactors) > 0 {
		riskEngine = risk.NewEngineWithFactors(b.riskFactors)
	} else {
		riskEngine = risk.NewEngine(risk.Config{Weights: cfg.Risk.Weights})
	}

	// -------- POLICY ENGINE --------
	policyEngine := policy.NewEngine(b.policyStore, policy.Config{
		BandThresholds:         cfg.Policy.BandThresholds,
		BandAssurance:          cfg.Policy.BandAssurance,
		DefaultStepUpThreshold: cfg.Policy.DefaultStepUpThreshold,
	})

	o := &Orchestrator{
		config:          cloneConfig(cfg),
		registry:        registry.New(),
		riskEngine:      riskEngine,
		policyEngine:    policyEngine,
		contextProvider: b.contextProvider,
		sessionStore:    store,
	}

	o.rateLimiter = rate.New(b.redis, rate.Config{
		EnableStartThrottle:  cfg.RateLimit.EnableStartThrottle,
		EnableIPThrottle:     cfg.RateLimit.EnableIPThrottle,
		EnableSubmitThrottle: cfg.RateLimit.EnableSubmitThrottle,
		MaxStartAttempts:     cfg.RateLimit.MaxStartAttempts,
		StartWindow:          cfg.RateLimit.StartWindow,
		MaxSubmitAttempts:    cfg.RateLimit.MaxSubmitAttempts,
		SubmitWindow:         cfg.RateLimit.SubmitWindow,
	})
	o.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	o.metrics = NewMetrics(cfg.Metrics)

	if cfg.DecisionToken.Enabled {
		jm, err := jwt.NewManager(jwt.Config{
			DecisionTTL:   cfg.DecisionToken.TTL,
			SigningMethod: jwt.SigningMethod(cfg.DecisionToken.SigningMethod),
			PrivateKey:    cloneBytes(cfg.DecisionToken.PrivateKey),
			PublicKey:     cloneBytes(cfg.DecisionToken.PublicKey),
			Issuer:        cfg.DecisionToken.Issuer,
			Audience:      cfg.DecisionToken.Audience,
		})
		if err != nil {
			return nil, err
		}
		o.jwtManager = jm
	}

	b.built = true

	return o, nil
}
