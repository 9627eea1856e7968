package goAuthFlow

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAuthFlow/internal"
	"github.com/MrEthical07/goAuthFlow/internal/rate"
	"github.com/MrEthical07/goAuthFlow/session"
	"github.com/MrEthical07/goAuthFlow/stepup"
)

// StartSession runs the front half of the flow for one authentication
// attempt: context gathering, risk evaluation, policy resolution, and the
// first challenge. The returned result either carries a pending challenge
// (STEP_UP) or a terminal DENY.
//
// StartSession may return an error when input validation, dependency calls, or security checks fail.
// StartSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (o *Orchestrator) StartSession(ctx context.Context, req StartRequest) (*StartResult, error) {
	if o == nil || o.sessionStore == nil || o.contextProvider == nil {
		return nil, ErrEngineNotReady
	}
	if req.TenantID == "" || req.PrincipalID == "" || req.RequestID == "" {
		return nil, ErrValidation
	}

	ip := clientIPFromContext(ctx)
	if o.rateLimiter != nil {
		if err := o.rateLimiter.CheckStart(ctx, req.TenantID, req.PrincipalID, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				o.metricInc(MetricStartRateLimited)
				o.emitRateLimit(ctx, "start", nil, func() map[string]string {
					return map[string]string{
						"tenant_id":    req.TenantID,
						"principal_id": req.PrincipalID,
					}
				})
				return nil, ErrStartRateLimited
			}
			return nil, err
		}
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &session.Session{
		SessionID:           sid.String(),
		TenantID:            req.TenantID,
		PrincipalID:         req.PrincipalID,
		RequestID:           req.RequestID,
		State:               session.StateInit,
		ResourceSensitivity: req.ResourceSensitivity,
		CreatedAt:           now.Unix(),
		UpdatedAt:           now.Unix(),
		ExpiresAt:           now.Add(o.config.Orchestrator.SessionTTL).Unix(),
	}

	sess.State = session.StateContextGather
	sess.State = session.StateRiskEval
	o.evaluateRisk(ctx, sess, true)

	sess.State = session.StatePolicyResolve
	o.resolvePolicy(ctx, sess)

	sess.State = session.StateStepUpCheck
	outcome := stepup.Decide(o.stepUpInput(sess))

	if outcome.Unsatisfiable {
		sess.State = session.StateFailed
		sess.FailureReason = FailurePolicyUnsatisfiable
		if err := o.sessionStore.Create(ctx, sess); err != nil {
			return nil, mapStoreError(err)
		}

		o.metricInc(MetricPolicyUnsatisfiable)
		o.metricInc(MetricSessionDenied)
		o.emitAudit(ctx, auditEventSessionDenied, false, sess, ErrPolicyUnsatisfiable, nil)

		return &StartResult{
			SessionID:         sess.SessionID,
			Decision:          DecisionDeny,
			RequiredAssurance: sess.RequiredAssurance,
			RiskScore:         sess.RiskScore,
			RiskBand:          sess.Policy.Band,
			RequiresApproval:  sess.Policy.RequiresApproval,
			FailureReason:     FailurePolicyUnsatisfiable,
		}, nil
	}

	challenge, err := o.issueChallenge(ctx, sess, outcome.NextProviderID, outcome.NextProviderVersion, outcome.Interim)
	if err != nil {
		sess.State = session.StateFailed
		sess.FailureReason = FailureProviderExhausted
		sess.Challenge = nil
		if createErr := o.sessionStore.Create(ctx, sess); createErr != nil {
			return nil, mapStoreError(createErr)
		}

		o.metricInc(MetricSessionDenied)
		o.emitAudit(ctx, auditEventSessionFailed, false, sess, err, func() map[string]string {
			return map[string]string{
				"provider_id": outcome.NextProviderID,
			}
		})

		return &StartResult{
			SessionID:         sess.SessionID,
			Decision:          DecisionDeny,
			RequiredAssurance: sess.RequiredAssurance,
			RiskScore:         sess.RiskScore,
			RiskBand:          sess.Policy.Band,
			FailureReason:     FailureProviderExhausted,
		}, nil
	}

	sess.State = session.StateChallengeIssued
	if err := o.sessionStore.Create(ctx, sess); err != nil {
		return nil, mapStoreError(err)
	}

	o.metricInc(MetricSessionStarted)
	o.emitAudit(ctx, auditEventSessionStarted, true, sess, nil, nil)
	o.emitAudit(ctx, auditEventChallengeIssued, true, sess, nil, func() map[string]string {
		return map[string]string{
			"challenge_id": challenge.ChallengeID,
			"interim":      boolLabel(outcome.Interim),
		}
	})

	return &StartResult{
		SessionID:         sess.SessionID,
		Decision:          DecisionStepUp,
		Challenge:         challenge,
		RequiredAssurance: sess.RequiredAssurance,
		RiskScore:         sess.RiskScore,
		RiskBand:          sess.Policy.Band,
		RequiresApproval:  sess.Policy.RequiresApproval,
	}, nil
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
