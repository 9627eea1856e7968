package goAuthFlow

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/goAuthFlow/internal/rate"
	"github.com/MrEthical07/goAuthFlow/registry"
	"github.com/MrEthical07/goAuthFlow/session"
	"github.com/MrEthical07/goAuthFlow/stepup"
)

// SubmitResponse validates a principal's answer to the active challenge and
// advances the session: ALLOW when the assurance target is met, STEP_UP with
// the next challenge when more factors are needed, DENY on a terminal
// failure.
//
// Submitting against a session another writer already finished returns the
// terminal outcome with a nil error; a lost write race on an active session
// returns ErrConcurrencyConflict and leaves the session untouched.
//
// SubmitResponse may return an error when input validation, dependency calls, or security checks fail.
// SubmitResponse does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (o *Orchestrator) SubmitResponse(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if o == nil || o.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	if req.SessionID == "" || req.ChallengeID == "" {
		return nil, ErrValidation
	}

	start := time.Now()
	defer func() {
		if o.metrics != nil {
			o.metrics.Observe(MetricSubmitLatency, time.Since(start))
		}
	}()

	if o.rateLimiter != nil {
		if err := o.rateLimiter.CheckSubmit(ctx, req.SessionID); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				o.metricInc(MetricSubmitRateLimited)
				o.emitRateLimit(ctx, "submit", nil, func() map[string]string {
					return map[string]string{
						"session_id": req.SessionID,
					}
				})
				return nil, ErrSubmitRateLimited
			}
			return nil, err
		}
	}

	sess, err := o.sessionStore.Get(ctx, req.SessionID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	if sess.State.IsTerminal() {
		return terminalResult(sess), nil
	}
	if sess.Challenge == nil {
		return nil, ErrValidation
	}
	if sess.Challenge.ChallengeID != req.ChallengeID {
		return nil, ErrChallengeMismatch
	}

	now := time.Now()
	if now.Unix() > sess.Challenge.ExpiresAt {
		o.metricInc(MetricChallengeExpired)
		o.emitAudit(ctx, auditEventChallengeExpired, false, sess, ErrChallengeExpired, nil)
		return nil, ErrChallengeExpired
	}

	desc, provider, ok := o.registry.Resolve(sess.Challenge.ProviderID, sess.Challenge.ProviderVersion)
	if !ok || provider == nil {
		return nil, ErrProviderNotRegistered
	}

	result, err := o.validateWithRetry(ctx, provider, registry.ValidationInput{
		SessionID:     sess.SessionID,
		ChallengeID:   sess.Challenge.ChallengeID,
		Response:      req.Response,
		OpaquePayload: sess.Challenge.OpaquePayload,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return o.denySession(ctx, sess, FailureProviderExhausted, err)
	}

	if !result.Valid {
		return o.rejectResponse(ctx, sess, result.Reason)
	}

	return o.acceptResponse(ctx, sess, desc, result, now)
}

// rejectResponse burns one attempt. The session fails only when the budget is
// exhausted; until then it stays open for another try at the same challenge.
func (o *Orchestrator) rejectResponse(
	ctx context.Context,
	sess *session.Session,
	reason string,
) (*SubmitResult, error) {
	sess.Challenge.Attempts++

	o.metricInc(MetricResponseRejected)
	o.emitAudit(ctx, auditEventResponseRejected, false, sess, ErrResponseRejected, func() map[string]string {
		m := map[string]string{
			"attempts": strconv.Itoa(sess.Challenge.Attempts),
		}
		if reason != "" {
			m["reason"] = reason
		}
		return m
	})

	if sess.Challenge.Attempts >= sess.Challenge.MaxAttempts {
		return o.denySession(ctx, sess, FailureResponseRejected, ErrResponseRejected)
	}

	if sess.State == session.StateChallengeIssued {
		if err := o.sessionStore.Transition(ctx, sess, session.StateResponsePending); err != nil {
			return o.handleWriteError(ctx, sess.SessionID, err)
		}
	} else {
		sess.UpdatedAt = time.Now().Unix()
		if err := o.sessionStore.CompareAndSwap(ctx, sess); err != nil {
			return o.handleWriteError(ctx, sess.SessionID, err)
		}
	}

	return nil, ErrResponseRejected
}

// acceptResponse records the validated factor, re-evaluates risk and policy,
// and either completes the session or issues the next challenge.
func (o *Orchestrator) acceptResponse(
	ctx context.Context,
	sess *session.Session,
	desc registry.Descriptor,
	result registry.ValidationResult,
	now time.Time,
) (*SubmitResult, error) {
	sess.Steps = append(sess.Steps, session.Step{
		ProviderID:      desc.ID,
		ProviderVersion: desc.Version,
		Category:        string(desc.Category),
		AssuranceLevel:  desc.AssuranceLevel,
		ValidatedAt:     now.Unix(),
	})
	sess.Challenge = nil
	if result.PrincipalID != "" {
		sess.PrincipalID = result.PrincipalID
	}
	// Achieved assurance is monotonic across the whole session.
	if desc.AssuranceLevel > sess.AchievedAssurance {
		sess.AchievedAssurance = desc.AssuranceLevel
	}

	sess.State = session.StateResponseValidated
	o.metricInc(MetricResponseAccepted)
	o.emitAudit(ctx, auditEventResponseAccepted, true, sess, nil, func() map[string]string {
		return map[string]string{
			"provider_id": desc.ID,
			"category":    string(desc.Category),
		}
	})

	sess.State = session.StateStepUpCheck
	o.evaluateRisk(ctx, sess, false)
	o.resolvePolicy(ctx, sess)

	outcome := stepup.Decide(o.stepUpInput(sess))

	switch {
	case outcome.Complete:
		return o.completeSession(ctx, sess)
	case outcome.Unsatisfiable:
		o.metricInc(MetricPolicyUnsatisfiable)
		return o.denySession(ctx, sess, FailurePolicyUnsatisfiable, ErrPolicyUnsatisfiable)
	}

	if len(sess.Steps) >= o.config.Orchestrator.MaxSteps {
		return o.denySession(ctx, sess, FailureProviderExhausted, ErrProviderUnavailable)
	}

	challenge, err := o.issueChallenge(ctx, sess, outcome.NextProviderID, outcome.NextProviderVersion, outcome.Interim)
	if err != nil {
		return o.denySession(ctx, sess, FailureProviderExhausted, err)
	}

	o.metricInc(MetricStepUpRequired)
	o.emitAudit(ctx, auditEventStepUpRequired, true, sess, nil, func() map[string]string {
		return map[string]string{
			"forced_by_risk": boolLabel(outcome.ForcedByRisk),
			"provider_id":    outcome.NextProviderID,
		}
	})

	if err := o.sessionStore.Transition(ctx, sess, session.StateChallengeIssued); err != nil {
		return o.handleWriteError(ctx, sess.SessionID, err)
	}

	o.emitAudit(ctx, auditEventChallengeIssued, true, sess, nil, func() map[string]string {
		return map[string]string{
			"challenge_id": challenge.ChallengeID,
		}
	})

	return &SubmitResult{
		Decision:          DecisionStepUp,
		AchievedAssurance: sess.AchievedAssurance,
		RequiredAssurance: sess.RequiredAssurance,
		NextChallenge:     challenge,
		RiskScore:         sess.RiskScore,
	}, nil
}

func (o *Orchestrator) completeSession(ctx context.Context, sess *session.Session) (*SubmitResult, error) {
	token := o.decisionTokenFor(ctx, sess)

	if err := o.sessionStore.Transition(ctx, sess, session.StateComplete); err != nil {
		return o.handleWriteError(ctx, sess.SessionID, err)
	}

	o.metricInc(MetricSessionCompleted)
	o.emitAudit(ctx, auditEventSessionCompleted, true, sess, nil, nil)

	if o.rateLimiter != nil {
		// Best effort: a stale counter only shortens the next window.
		_ = o.rateLimiter.ResetStart(ctx, sess.TenantID, sess.PrincipalID, clientIPFromContext(ctx))
	}

	return &SubmitResult{
		Decision:          DecisionAllow,
		AchievedAssurance: sess.AchievedAssurance,
		RequiredAssurance: sess.RequiredAssurance,
		DecisionToken:     token,
		RiskScore:         sess.RiskScore,
	}, nil
}

// denySession fails the session terminally and reports DENY with a nil
// error: the call itself succeeded, the authentication did not.
func (o *Orchestrator) denySession(
	ctx context.Context,
	sess *session.Session,
	reason string,
	cause error,
) (*SubmitResult, error) {
	if err := o.failSession(ctx, sess, reason); err != nil {
		return o.handleWriteError(ctx, sess.SessionID, err)
	}

	o.metricInc(MetricSessionFailed)
	o.emitAudit(ctx, auditEventSessionFailed, false, sess, cause, func() map[string]string {
		return map[string]string{
			"failure_reason": reason,
		}
	})

	return &SubmitResult{
		Decision:          DecisionDeny,
		AchievedAssurance: sess.AchievedAssurance,
		RequiredAssurance: sess.RequiredAssurance,
		RiskScore:         sess.RiskScore,
		FailureReason:     reason,
	}, nil
}

// handleWriteError resolves a failed session write. A version conflict means
// another writer advanced the session; if that writer already finished it,
// the terminal outcome is authoritative and returned as-is.
func (o *Orchestrator) handleWriteError(ctx context.Context, sessionID string, err error) (*SubmitResult, error) {
	if !errors.Is(err, session.ErrVersionConflict) {
		return nil, mapStoreError(err)
	}

	o.metricInc(MetricConcurrencyConflict)

	current, getErr := o.sessionStore.Get(ctx, sessionID)
	if getErr != nil {
		return nil, mapStoreError(getErr)
	}

	o.emitAudit(ctx, auditEventConcurrencyConflict, false, current, ErrConcurrencyConflict, nil)

	if current.State.IsTerminal() {
		return terminalResult(current), nil
	}
	return nil, ErrConcurrencyConflict
}

func terminalResult(sess *session.Session) *SubmitResult {
	res := &SubmitResult{
		AchievedAssurance: sess.AchievedAssurance,
		RequiredAssurance: sess.RequiredAssurance,
		RiskScore:         sess.RiskScore,
		FailureReason:     sess.FailureReason,
	}

	switch sess.State {
	case session.StateComplete:
		res.Decision = DecisionAllow
	case session.StateCancelled:
		res.Decision = DecisionDeny
		if res.FailureReason == "" {
			res.FailureReason = FailureCancelled
		}
	case session.StateExpired:
		res.Decision = DecisionDeny
		if res.FailureReason == "" {
			res.FailureReason = FailureExpired
		}
	default:
		res.Decision = DecisionDeny
	}
	return res
}
