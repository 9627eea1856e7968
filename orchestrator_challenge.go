package goAuthFlow

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/goAuthFlow/internal"
	"github.com/MrEthical07/goAuthFlow/policy"
	"github.com/MrEthical07/goAuthFlow/registry"
	"github.com/MrEthical07/goAuthFlow/session"
	"github.com/MrEthical07/goAuthFlow/stepup"
)

// evaluateRisk gathers context and refreshes the session's risk fields.
// Context loss keeps the previous score on re-evaluation; on the first
// evaluation the engine fails closed to 1.0.
func (o *Orchestrator) evaluateRisk(ctx context.Context, sess *session.Session, initial bool) {
	sess.PreviousRiskScore = sess.RiskScore

	ac, err := o.contextProvider.GetContext(ctx, sess.RequestID)
	if err != nil && !initial {
		// Context provider failure mid-flow: hold the last known score
		// rather than forcing a spurious fail-closed step-up.
		return
	}
	if err != nil {
		ac = nil
	}
	if ac != nil {
		// The request, not the signal source, knows the target resource tier.
		ac.ResourceSensitivity = sess.ResourceSensitivity
	}

	assessment := o.riskEngine.Assess(ac)
	sess.RiskScore = assessment.Score
	sess.RiskDegraded = assessment.Degraded
	sess.RiskFactors = assessment.Factors
	sess.RiskHistory = append(sess.RiskHistory, session.RiskSample{
		Score:    assessment.Score,
		Degraded: assessment.Degraded,
		At:       assessment.ComputedAt.Unix(),
	})
	if initial {
		sess.PreviousRiskScore = assessment.Score
	}

	if assessment.Degraded {
		o.metricInc(MetricRiskFailClosed)
		o.emitAudit(ctx, auditEventRiskDegraded, false, sess, nil, nil)
	}
}

// resolvePolicy re-resolves the tenant policy against the current risk score
// and freezes the result into the session. The required assurance is
// monotonic: a mid-flow re-resolution can raise it, never lower it.
func (o *Orchestrator) resolvePolicy(ctx context.Context, sess *session.Session) {
	candidates := o.registry.Query(registry.Filter{})

	decision := o.policyEngine.Resolve(
		ctx,
		sess.TenantID,
		policy.Sensitivity(sess.ResourceSensitivity),
		sess.RiskScore,
		candidates,
	)

	if decision.RequiredAssurance > sess.RequiredAssurance {
		sess.RequiredAssurance = decision.RequiredAssurance
	}
	sess.Policy = session.PolicySnapshot{
		Band:             decision.Band.String(),
		AllowedMethodIDs: decision.AllowedMethodIDs,
		DeniedMethodIDs:  decision.DeniedMethodIDs,
		StepUpThreshold:  decision.StepUpThreshold,
		RequiresApproval: decision.RequiresApproval,
		Fallback:         decision.Fallback,
	}

	if decision.Fallback {
		o.metricInc(MetricPolicyFallback)
		o.emitAudit(ctx, auditEventPolicyFallback, false, sess, nil, nil)
	}
}

// stepUpInput assembles the pure decision input from the session and the
// live registry snapshot.
func (o *Orchestrator) stepUpInput(sess *session.Session) stepup.Input {
	denied := make(map[string]struct{}, len(sess.Policy.DeniedMethodIDs))
	for _, id := range sess.Policy.DeniedMethodIDs {
		denied[id] = struct{}{}
	}

	descs := o.registry.Query(registry.Filter{})
	candidates := make([]stepup.Candidate, 0, len(descs))
	for _, d := range descs {
		if _, ok := denied[d.ID]; ok {
			continue
		}
		_, provider, ok := o.registry.Resolve(d.ID, d.Version)
		if !ok || provider == nil {
			continue
		}
		candidates = append(candidates, stepup.Candidate{
			Descriptor: d,
			CanStepUp:  provider.SupportsStepUp(sess.AchievedAssurance, sess.RequiredAssurance),
		})
	}

	used := make([]registry.Category, 0, len(sess.Steps))
	for _, c := range sess.UsedCategories() {
		used = append(used, registry.Category(c))
	}

	return stepup.Input{
		AchievedAssurance:    sess.AchievedAssurance,
		TargetAssurance:      sess.RequiredAssurance,
		AttemptedProviderIDs: sess.AttemptedProviderIDs(),
		UsedCategories:       used,
		RiskScore:            sess.RiskScore,
		PreviousRiskScore:    sess.PreviousRiskScore,
		RiskDeltaThreshold:   o.config.StepUp.RiskDeltaThreshold,
		Policy: policy.Decision{
			AllowedMethodIDs:  sess.Policy.AllowedMethodIDs,
			DeniedMethodIDs:   sess.Policy.DeniedMethodIDs,
			RequiredAssurance: sess.RequiredAssurance,
			StepUpThreshold:   sess.Policy.StepUpThreshold,
		},
		Candidates:              candidates,
		PreferCategoryDiversity: o.config.Orchestrator.PreferCategoryDiversity,
	}
}

// issueChallenge asks the provider to start authentication and records the
// resulting challenge on the session. The provider's advisory expiry is
// bounded by the configured challenge TTL.
func (o *Orchestrator) issueChallenge(
	ctx context.Context,
	sess *session.Session,
	providerID, providerVersion string,
	interim bool,
) (*ChallengeInfo, error) {
	desc, provider, ok := o.registry.Resolve(providerID, providerVersion)
	if !ok || provider == nil {
		return nil, ErrProviderNotRegistered
	}

	issued, err := o.startWithRetry(ctx, provider, registry.AuthRequest{
		SessionID:   sess.SessionID,
		TenantID:    sess.TenantID,
		PrincipalID: sess.PrincipalID,
		RequestID:   sess.RequestID,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.Add(o.config.Challenge.TTL)
	if !issued.ExpiresAt.IsZero() && issued.ExpiresAt.Before(expiresAt) {
		expiresAt = issued.ExpiresAt
	}

	sess.Challenge = &session.Challenge{
		ChallengeID:     internal.NewChallengeID(),
		ProviderID:      desc.ID,
		ProviderVersion: desc.Version,
		OpaquePayload:   issued.OpaquePayload,
		IssuedAt:        now.Unix(),
		ExpiresAt:       expiresAt.Unix(),
		MaxAttempts:     o.config.Challenge.MaxAttempts,
		Interim:         interim,
	}

	o.metricInc(MetricChallengeIssued)

	return &ChallengeInfo{
		ChallengeID:     sess.Challenge.ChallengeID,
		ProviderID:      desc.ID,
		ProviderVersion: desc.Version,
		Payload:         issued.OpaquePayload,
		ExpiresAt:       expiresAt,
		AttemptsLeft:    o.config.Challenge.MaxAttempts,
	}, nil
}

func (o *Orchestrator) startWithRetry(
	ctx context.Context,
	provider registry.Provider,
	req registry.AuthRequest,
) (registry.IssuedChallenge, error) {
	var lastErr error
	for attempt := 0; attempt <= o.config.Orchestrator.ProviderRetryLimit; attempt++ {
		if attempt > 0 {
			o.metricInc(MetricProviderRetry)
			if err := sleepCtx(ctx, o.config.Orchestrator.ProviderRetryBackoff); err != nil {
				return registry.IssuedChallenge{}, err
			}
		}
		issued, err := provider.StartAuthentication(ctx, req)
		if err == nil {
			return issued, nil
		}
		lastErr = err
	}
	o.metricInc(MetricProviderExhausted)
	return registry.IssuedChallenge{}, wrapProviderErr(lastErr)
}

func (o *Orchestrator) validateWithRetry(
	ctx context.Context,
	provider registry.Provider,
	in registry.ValidationInput,
) (registry.ValidationResult, error) {
	var lastErr error
	for attempt := 0; attempt <= o.config.Orchestrator.ProviderRetryLimit; attempt++ {
		if attempt > 0 {
			o.metricInc(MetricProviderRetry)
			if err := sleepCtx(ctx, o.config.Orchestrator.ProviderRetryBackoff); err != nil {
				return registry.ValidationResult{}, err
			}
		}
		result, err := provider.ValidateResponse(ctx, in)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	o.metricInc(MetricProviderExhausted)
	return registry.ValidationResult{}, wrapProviderErr(lastErr)
}

// failSession moves the session to FAILED with the given reason and persists
// it. Persist errors are returned after the in-memory state is final so the
// caller can still report the outcome.
func (o *Orchestrator) failSession(
	ctx context.Context,
	sess *session.Session,
	reason string,
) error {
	sess.FailureReason = reason
	sess.Challenge = nil
	return o.sessionStore.Transition(ctx, sess, session.StateFailed)
}

func (o *Orchestrator) decisionTokenFor(ctx context.Context, sess *session.Session) string {
	if o.jwtManager == nil {
		return ""
	}

	methods := make([]string, 0, len(sess.Steps))
	for _, s := range sess.Steps {
		methods = append(methods, s.ProviderID)
	}

	token, err := o.jwtManager.CreateDecision(
		sess.PrincipalID,
		sess.TenantID,
		sess.SessionID,
		sess.AchievedAssurance,
		methods,
		sess.RiskScore,
	)
	if err != nil {
		o.emitAudit(ctx, auditEventDecisionTokenIssued, false, sess, err, nil)
		return ""
	}

	o.metricInc(MetricDecisionTokenIssued)
	return token
}

func wrapProviderErr(err error) error {
	if err == nil {
		return ErrProviderUnavailable
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
