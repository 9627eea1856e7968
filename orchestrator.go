package goAuthFlow

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthFlow/internal/rate"
	"github.com/MrEthical07/goAuthFlow/jwt"
	"github.com/MrEthical07/goAuthFlow/policy"
	"github.com/MrEthical07/goAuthFlow/registry"
	"github.com/MrEthical07/goAuthFlow/risk"
	"github.com/MrEthical07/goAuthFlow/session"
)

// Orchestrator defines a public type used by goAuthFlow APIs.
//
// Orchestrator instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Orchestrator struct {
	config          Config
	registry        *registry.Registry
	riskEngine      *risk.Engine
	policyEngine    *policy.Engine
	contextProvider ContextProvider
	sessionStore    *session.Store
	rateLimiter     *rate.Limiter
	audit           *auditDispatcher
	metrics         *Metrics
	jwtManager      *jwt.Manager

	sweepDone  chan struct{}
	sweepWG    sync.WaitGroup
	sweepStart sync.Once
	closeOnce  sync.Once
}

// Registry returns the provider registry so integrations can register and
// unregister method plugins at runtime.
func (o *Orchestrator) Registry() *registry.Registry {
	if o == nil {
		return nil
	}
	return o.registry
}

// Close describes the close operation and its observable behavior.
//
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (o *Orchestrator) Close() {
	if o == nil {
		return
	}
	o.closeOnce.Do(func() {
		if o.sweepDone != nil {
			close(o.sweepDone)
			o.sweepWG.Wait()
		}
	})
	if o.audit != nil {
		o.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (o *Orchestrator) AuditDropped() uint64 {
	if o == nil || o.audit == nil {
		return 0
	}
	return o.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (o *Orchestrator) MetricsSnapshot() MetricsSnapshot {
	if o == nil || o.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return o.metrics.Snapshot()
}

func (o *Orchestrator) metricInc(id MetricID) {
	if o == nil || o.metrics == nil {
		return
	}
	o.metrics.Inc(id)
}

// GetSession returns the introspection view of a session, terminal or not.
//
// GetSession may return an error when input validation, dependency calls, or security checks fail.
// GetSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (o *Orchestrator) GetSession(ctx context.Context, sessionID string) (*SessionStatus, error) {
	if o == nil || o.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	if sessionID == "" {
		return nil, ErrValidation
	}

	sess, err := o.sessionStore.Get(ctx, sessionID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	status := &SessionStatus{
		SessionID:         sess.SessionID,
		TenantID:          sess.TenantID,
		PrincipalID:       sess.PrincipalID,
		State:             string(sess.State),
		RiskScore:         sess.RiskScore,
		RiskBand:          sess.Policy.Band,
		RequiredAssurance: sess.RequiredAssurance,
		AchievedAssurance: sess.AchievedAssurance,
		StepCount:         len(sess.Steps),
		FailureReason:     sess.FailureReason,
		CreatedAt:         time.Unix(sess.CreatedAt, 0).UTC(),
		ExpiresAt:         time.Unix(sess.ExpiresAt, 0).UTC(),
	}
	if sess.Challenge != nil {
		status.ActiveProviderID = sess.Challenge.ProviderID
	}
	return status, nil
}
