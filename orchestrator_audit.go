package goAuthFlow

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAuthFlow/internal"
	"github.com/MrEthical07/goAuthFlow/registry"
	"github.com/MrEthical07/goAuthFlow/session"
)

const (
	auditEventSessionStarted      = "session_started"
	auditEventSessionDenied       = "session_denied"
	auditEventSessionCompleted    = "session_completed"
	auditEventSessionFailed       = "session_failed"
	auditEventSessionCancelled    = "session_cancelled"
	auditEventSessionExpired      = "session_expired"
	auditEventChallengeIssued     = "challenge_issued"
	auditEventChallengeExpired    = "challenge_expired"
	auditEventResponseAccepted    = "response_accepted"
	auditEventResponseRejected    = "response_rejected"
	auditEventStepUpRequired      = "step_up_required"
	auditEventPolicyFallback      = "policy_fallback"
	auditEventRiskDegraded        = "risk_degraded"
	auditEventRateLimitTriggered  = "rate_limit_triggered"
	auditEventConcurrencyConflict = "concurrency_conflict"
	auditEventDecisionTokenIssued = "decision_token_issued"
	auditEventAuditOverflow       = "audit_overflow"
)

// AuditErrorCode defines a public type used by goAuthFlow APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrValidation          AuditErrorCode = "invalid_request"
	auditErrSessionNotFound     AuditErrorCode = "session_not_found"
	auditErrSessionTerminal     AuditErrorCode = "session_terminal"
	auditErrChallengeExpired    AuditErrorCode = "challenge_expired"
	auditErrChallengeMismatch   AuditErrorCode = "challenge_mismatch"
	auditErrResponseRejected    AuditErrorCode = "response_rejected"
	auditErrPolicyUnsatisfiable AuditErrorCode = "policy_unsatisfiable"
	auditErrProviderUnavailable AuditErrorCode = "provider_unavailable"
	auditErrRateLimited         AuditErrorCode = "rate_limited"
	auditErrConcurrency         AuditErrorCode = "concurrency_conflict"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (o *Orchestrator) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	sess *session.Session,
	err error,
	metadataBuilder func() map[string]string,
) {
	if o == nil || o.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventID:   internal.NewEventID(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if sess != nil {
		event.SessionID = sess.SessionID
		event.TenantID = sess.TenantID
		event.PrincipalID = sess.PrincipalID
		event.State = string(sess.State)
		event.RiskScore = sess.RiskScore
		event.Assurance = sess.AchievedAssurance
		if sess.Challenge != nil {
			event.ProviderID = sess.Challenge.ProviderID
		}
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	o.audit.Emit(ctx, event)
}

func (o *Orchestrator) emitRateLimit(
	ctx context.Context,
	scope string,
	sess *session.Session,
	metadataBuilder func() map[string]string,
) {
	o.emitAudit(ctx, auditEventRateLimitTriggered, false, sess, nil, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrSessionTerminal):
		return auditErrSessionTerminal
	case errors.Is(err, ErrChallengeExpired):
		return auditErrChallengeExpired
	case errors.Is(err, ErrChallengeMismatch):
		return auditErrChallengeMismatch
	case errors.Is(err, ErrResponseRejected):
		return auditErrResponseRejected
	case errors.Is(err, ErrPolicyUnsatisfiable):
		return auditErrPolicyUnsatisfiable
	case errors.Is(err, ErrProviderUnavailable),
		errors.Is(err, ErrProviderNotRegistered),
		errors.Is(err, registry.ErrNotRegistered),
		errors.Is(err, session.ErrRedisUnavailable):
		return auditErrProviderUnavailable
	case errors.Is(err, ErrStartRateLimited),
		errors.Is(err, ErrSubmitRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrConcurrencyConflict):
		return auditErrConcurrency
	default:
		return auditErrInternal
	}
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return ErrSessionNotFound
	case errors.Is(err, session.ErrVersionConflict):
		return ErrConcurrencyConflict
	default:
		return err
	}
}
