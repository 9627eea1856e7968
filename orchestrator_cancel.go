package goAuthFlow

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAuthFlow/session"
)

// CancelSession aborts an in-flight session. The session moves to CANCELLED
// and any outstanding provider challenge is cancelled best effort; cancelling
// a terminal session returns ErrSessionTerminal.
//
// CancelSession may return an error when input validation, dependency calls, or security checks fail.
// CancelSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (o *Orchestrator) CancelSession(ctx context.Context, sessionID string) error {
	if o == nil || o.sessionStore == nil {
		return ErrEngineNotReady
	}
	if sessionID == "" {
		return ErrValidation
	}

	sess, err := o.sessionStore.Get(ctx, sessionID)
	if err != nil {
		return mapStoreError(err)
	}

	if sess.State.IsTerminal() {
		return ErrSessionTerminal
	}

	if sess.Challenge != nil {
		if _, provider, ok := o.registry.Resolve(sess.Challenge.ProviderID, sess.Challenge.ProviderVersion); ok && provider != nil {
			// Best effort: the session terminates regardless of provider cleanup.
			_ = provider.CancelAuthentication(ctx, sessionID)
		}
	}

	sess.FailureReason = FailureCancelled
	sess.Challenge = nil
	if err := o.sessionStore.Transition(ctx, sess, session.StateCancelled); err != nil {
		if errors.Is(err, session.ErrVersionConflict) {
			o.metricInc(MetricConcurrencyConflict)
			current, getErr := o.sessionStore.Get(ctx, sessionID)
			if getErr == nil && current.State.IsTerminal() {
				// Another writer finished the session first; the cancel
				// request is moot rather than failed.
				return ErrSessionTerminal
			}
			return ErrConcurrencyConflict
		}
		return mapStoreError(err)
	}

	o.metricInc(MetricSessionCancelled)
	o.emitAudit(ctx, auditEventSessionCancelled, true, sess, nil, nil)

	return nil
}
