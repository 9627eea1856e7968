package goAuthFlow

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAuthFlow/session"
)

// StartSweeper launches the background expiry loop. Idempotent; the loop
// stops when Close is called. Callers that prefer to drive expiry themselves
// can skip this and call SweepExpired on their own schedule.
//
// StartSweeper does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (o *Orchestrator) StartSweeper() {
	if o == nil || o.sessionStore == nil {
		return
	}
	o.sweepStart.Do(func() {
		o.sweepDone = make(chan struct{})
		o.sweepWG.Add(1)
		go o.sweepLoop()
	})
}

func (o *Orchestrator) sweepLoop() {
	defer o.sweepWG.Done()

	ticker := time.NewTicker(o.config.Session.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.sweepDone:
			return
		case <-ticker.C:
			_, _ = o.SweepExpired(context.Background())
		}
	}
}

// SweepExpired moves sessions past their deadline to EXPIRED and returns how
// many were expired in this pass. Sessions that lose the version race to a
// concurrent submit are skipped; the next pass or the submit itself settles
// them.
//
// SweepExpired may return an error when input validation, dependency calls, or security checks fail.
// SweepExpired does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (o *Orchestrator) SweepExpired(ctx context.Context) (int, error) {
	if o == nil || o.sessionStore == nil {
		return 0, ErrEngineNotReady
	}

	now := time.Now()
	ids, err := o.sessionStore.DueSessions(ctx, now, int64(o.config.Session.SweepBatch))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		sess, err := o.sessionStore.Get(ctx, id)
		if err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				// Session TTL beat the index entry; drop the stale member.
				_ = o.sessionStore.DropDue(ctx, id)
				continue
			}
			return expired, err
		}

		if sess.State.IsTerminal() {
			_ = o.sessionStore.DropDue(ctx, id)
			continue
		}
		if sess.ExpiresAt > now.Unix() {
			continue
		}

		if sess.Challenge != nil {
			// Best effort: let the provider tear down delivery state.
			if _, provider, ok := o.registry.Resolve(sess.Challenge.ProviderID, sess.Challenge.ProviderVersion); ok && provider != nil {
				_ = provider.CancelAuthentication(ctx, sess.SessionID)
			}
		}

		sess.FailureReason = FailureExpired
		sess.Challenge = nil
		if err := o.sessionStore.Transition(ctx, sess, session.StateExpired); err != nil {
			if errors.Is(err, session.ErrVersionConflict) {
				continue
			}
			return expired, err
		}

		expired++
		o.metricInc(MetricSessionExpired)
		o.emitAudit(ctx, auditEventSessionExpired, false, sess, nil, nil)
	}

	return expired, nil
}
