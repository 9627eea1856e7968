package goAuthFlow

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthFlow/jwt"
	"github.com/MrEthical07/goAuthFlow/registry"
	"github.com/MrEthical07/goAuthFlow/risk"
	"github.com/MrEthical07/goAuthFlow/session"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, goredis.UniversalClient) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis failed: %v", err)
	}

	client := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	return mr, client
}

// switchableContextProvider lets a test flip the risk picture mid-flow.
type switchableContextProvider struct {
	mu  sync.Mutex
	ac  *risk.AuthContext
	err error
}

func (p *switchableContextProvider) GetContext(_ context.Context, requestID string) (*risk.AuthContext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	ac := *p.ac
	ac.RequestID = requestID
	return &ac, nil
}

func (p *switchableContextProvider) Set(ac *risk.AuthContext, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ac, p.err = ac, err
}

func lowRiskContext() *risk.AuthContext {
	return &risk.AuthContext{
		Device:   &risk.DeviceSignals{TrustScore: 0.9, Known: true},
		Location: &risk.LocationSignals{AnomalyScore: 0.1},
		Network:  &risk.NetworkSignals{ReputationScore: 0.05},
	}
}

func elevatedRiskContext() *risk.AuthContext {
	return &risk.AuthContext{
		Device:   &risk.DeviceSignals{TrustScore: 0.3, Known: true},
		Location: &risk.LocationSignals{AnomalyScore: 0.6},
		Network:  &risk.NetworkSignals{ReputationScore: 0.45, Proxy: true},
	}
}

// testProvider is a scriptable registry.Provider.
type testProvider struct {
	level       int
	startErr    error
	validate    func(in registry.ValidationInput) (registry.ValidationResult, error)
	canStepUp   func(current, target int) bool
	mu          sync.Mutex
	cancelled   bool
	cancelledID string
	startCalls  int
	validations int
}

func (p *testProvider) StartAuthentication(_ context.Context, req registry.AuthRequest) (registry.IssuedChallenge, error) {
	p.mu.Lock()
	p.startCalls++
	p.mu.Unlock()
	if p.startErr != nil {
		return registry.IssuedChallenge{}, p.startErr
	}
	return registry.IssuedChallenge{OpaquePayload: []byte("payload:" + req.SessionID)}, nil
}

func (p *testProvider) ValidateResponse(_ context.Context, in registry.ValidationInput) (registry.ValidationResult, error) {
	p.mu.Lock()
	p.validations++
	p.mu.Unlock()
	if p.validate != nil {
		return p.validate(in)
	}
	return registry.ValidationResult{Valid: true}, nil
}

func (p *testProvider) CancelAuthentication(_ context.Context, sessionID string) error {
	p.mu.Lock()
	p.cancelled = true
	p.cancelledID = sessionID
	p.mu.Unlock()
	return nil
}

func (p *testProvider) AssuranceLevel() int { return p.level }

func (p *testProvider) SupportsStepUp(current, target int) bool {
	if p.canStepUp != nil {
		return p.canStepUp(current, target)
	}
	return true
}

func (p *testProvider) wasCancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled
}

func (p *testProvider) cancelledSession() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelledID
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RateLimit.EnableStartThrottle = false
	cfg.RateLimit.EnableSubmitThrottle = false
	cfg.Metrics.Enabled = true
	return cfg
}

func buildTestOrchestrator(t *testing.T, cfg Config, cp ContextProvider) (*Orchestrator, func()) {
	t.Helper()

	mr, client := newTestRedis(t)

	o, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithContextProvider(cp).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return o, func() {
		o.Close()
		_ = client.Close()
		mr.Close()
	}
}

func register(t *testing.T, o *Orchestrator, id string, level int, category registry.Category, p *testProvider) {
	t.Helper()
	if err := o.Registry().Register(registry.Descriptor{
		ID:             id,
		Version:        "v1",
		Category:       category,
		AssuranceLevel: level,
		Capabilities:   registry.Capabilities{SupportsStepUp: true},
	}, p); err != nil {
		t.Fatalf("register %s failed: %v", id, err)
	}
}

func startRequest() StartRequest {
	return StartRequest{
		TenantID:    "t1",
		PrincipalID: "u1",
		RequestID:   "r1",
	}
}

func TestSingleFactorFlowCompletes(t *testing.T) {
	cp := &switchableContextProvider{ac: lowRiskContext()}
	o, done := buildTestOrchestrator(t, testConfig(), cp)
	defer done()

	password := &testProvider{level: 1}
	register(t, o, "password", 1, registry.CategoryKnowledge, password)

	ctx := context.Background()
	res, err := o.StartSession(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if res.Decision != DecisionStepUp || res.Challenge == nil {
		t.Fatalf("expected pending challenge, got %+v", res)
	}
	if res.Challenge.ProviderID != "password" {
		t.Fatalf("expected password challenge, got %s", res.Challenge.ProviderID)
	}
	if res.RequiredAssurance != 1 {
		t.Fatalf("expected required assurance 1, got %d", res.RequiredAssurance)
	}

	sub, err := o.SubmitResponse(ctx, SubmitRequest{
		SessionID:   res.SessionID,
		ChallengeID: res.Challenge.ChallengeID,
		Response:    []byte("hunter2"),
	})
	if err != nil {
		t.Fatalf("SubmitResponse failed: %v", err)
	}
	if sub.Decision != DecisionAllow {
		t.Fatalf("expected ALLOW, got %+v", sub)
	}
	if sub.AchievedAssurance != 1 {
		t.Fatalf("expected achieved assurance 1, got %d", sub.AchievedAssurance)
	}

	status, err := o.GetSession(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if status.State != string(session.StateComplete) {
		t.Fatalf("expected COMPLETE, got %s", status.State)
	}
	if status.StepCount != 1 {
		t.Fatalf("expected 1 step, got %d", status.StepCount)
	}

	snap := o.MetricsSnapshot()
	if snap.Counters[MetricSessionCompleted] != 1 {
		t.Fatalf("expected 1 completed session, got %d", snap.Counters[MetricSessionCompleted])
	}
}

func TestHighSensitivityUsesInterimFirstFactor(t *testing.T) {
	cp := &switchableContextProvider{ac: lowRiskContext()}
	o, done := buildTestOrchestrator(t, testConfig(), cp)
	defer done()

	// push can only run after a first factor established identity.
	password := &testProvider{level: 1}
	push := &testProvider{
		level:     3,
		canStepUp: func(current, target int) bool { return current >= 1 },
	}
	register(t, o, "password", 1, registry.CategoryKnowledge, password)
	register(t, o, "push", 3, registry.CategoryPossession, push)

	ctx := context.Background()
	req := startRequest()
	req.ResourceSensitivity = 3

	res, err := o.StartSession(ctx, req)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if res.RequiredAssurance != 3 {
		t.Fatalf("expected required assurance 3, got %d", res.RequiredAssurance)
	}
	if res.Challenge.ProviderID != "password" {
		t.Fatalf("expected interim password factor first, got %s", res.Challenge.ProviderID)
	}

	sub, err := o.SubmitResponse(ctx, SubmitRequest{
		SessionID:   res.SessionID,
		ChallengeID: res.Challenge.ChallengeID,
		Response:    []byte("hunter2"),
	})
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if sub.Decision != DecisionStepUp || sub.NextChallenge == nil {
		t.Fatalf("expected step-up to push, got %+v", sub)
	}
	if sub.NextChallenge.ProviderID != "push" {
		t.Fatalf("expected push challenge, got %s", sub.NextChallenge.ProviderID)
	}
	if sub.AchievedAssurance != 1 {
		t.Fatalf("expected achieved assurance 1 after interim factor, got %d", sub.AchievedAssurance)
	}

	final, err := o.SubmitResponse(ctx, SubmitRequest{
		SessionID:   res.SessionID,
		ChallengeID: sub.NextChallenge.ChallengeID,
		Response:    []byte("approved"),
	})
	if err != nil {
		t.Fatalf("second submit failed: %v", err)
	}
	if final.Decision != DecisionAllow {
		t.Fatalf("expected ALLOW, got %+v", final)
	}
	if final.AchievedAssurance != 3 {
		t.Fatalf("expected achieved assurance 3, got %d", final.AchievedAssurance)
	}
}

func TestMidFlowRiskIncreaseForcesSecondFactor(t *testing.T) {
	cp := &switchableContextProvider{ac: lowRiskContext()}
	o, done := buildTestOrchestrator(t, testConfig(), cp)
	defer done()

	password := &testProvider{level: 1}
	totp := &testProvider{level: 2}
	register(t, o, "password", 1, registry.CategoryKnowledge, password)
	register(t, o, "totp", 2, registry.CategoryPossession, totp)

	ctx := context.Background()
	res, err := o.StartSession(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if res.RequiredAssurance != 1 {
		t.Fatalf("expected required assurance 1 at low risk, got %d", res.RequiredAssurance)
	}
	first := res.Challenge

	// The environment degrades between challenge and response.
	cp.Set(elevatedRiskContext(), nil)

	sub, err := o.SubmitResponse(ctx, SubmitRequest{
		SessionID:   res.SessionID,
		ChallengeID: first.ChallengeID,
		Response:    []byte("hunter2"),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if sub.Decision != DecisionStepUp || sub.NextChallenge == nil {
		t.Fatalf("expected forced step-up after risk jump, got %+v", sub)
	}
	if sub.RequiredAssurance <= 1 {
		t.Fatalf("expected requirement to rise with risk, got %d", sub.RequiredAssurance)
	}

	final, err := o.SubmitResponse(ctx, SubmitRequest{
		SessionID:   res.SessionID,
		ChallengeID: sub.NextChallenge.ChallengeID,
		Response:    []byte("123456"),
	})
	if err != nil {
		t.Fatalf("second submit failed: %v", err)
	}
	if final.Decision != DecisionAllow {
		t.Fatalf("expected ALLOW after second factor, got %+v", final)
	}
}

func TestExpiredChallengeRejectedWithoutMutation(t *testing.T) {
	cfg := testConfig()
	cfg.Challenge.TTL = 50 * time.Millisecond

	cp := &switchableContextProvider{ac: lowRiskContext()}
	o, done := buildTestOrchestrator(t, cfg, cp)
	defer done()

	register(t, o, "password", 1, registry.CategoryKnowledge, &testProvider{level: 1})

	ctx := context.Background()
	res, err := o.StartSession(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	_, err = o.SubmitResponse(ctx, SubmitRequest{
		SessionID:   res.SessionID,
		ChallengeID: res.Challenge.ChallengeID,
		Response:    []byte("late"),
	})
	if !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("expected ErrChallengeExpired, got %v", err)
	}

	// The session itself is untouched; only the challenge aged out.
	status, err := o.GetSession(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if status.State != string(session.StateChallengeIssued) {
		t.Fatalf("expected CHALLENGE_ISSUED, got %s", status.State)
	}
}

func TestChallengeMismatchRejected(t *testing.T) {
	cp := &switchableContextProvider{ac: lowRiskContext()}
	o, done := buildTestOrchestrator(t, testConfig(), cp)
	defer done()

	register(t, o, "password", 1, registry.CategoryKnowledge, &testProvider{level: 1})

	ctx := context.Background()
	res, err := o.StartSession(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	_, err = o.SubmitResponse(ctx, SubmitRequest{
		SessionID:   res.SessionID,
		ChallengeID: "not-the-challenge",
		Response:    []byte("x"),
	})
	if !errors.Is(err, ErrChallengeMismatch) {
		t.Fatalf("expected ErrChallengeMismatch, got %v", err)
	}
}

func TestAttemptBudgetExhaustionFailsSession(t *testing.T) {
	cfg := testConfig()
	cfg.Challenge.MaxAttempts = 2

	cp := &switchableContextProvider{ac: lowRiskContext()}
	o, done := buildTestOrchestrator(t, cfg, cp)
	defer done()

	register(t, o, "password", 1, registry.CategoryKnowledge, &testProvider{
		level: 1,
		validate: func(registry.ValidationInput) (registry.ValidationResult, error) {
			return registry.ValidationResult{Valid: false, Reason: "bad password"}, nil
		},
	})

	ctx := context.Background()
	res, err := o.StartSession(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	req := SubmitRequest{
		SessionID:   res.SessionID,
		ChallengeID: res.Challenge.ChallengeID,
		Response:    []byte("wrong"),
	}

	if _, err := o.SubmitResponse(ctx, req); !errors.Is(err, ErrResponseRejected) {
		t.Fatalf("expected ErrResponseRejected on first attempt, got %v", err)
	}

	sub, err := o.SubmitResponse(ctx, req)
	if err != nil {
		t.Fatalf("final attempt must report the outcome, got error %v", err)
	}
	if sub.Decision != DecisionDeny || sub.FailureReason != FailureResponseRejected {
		t.Fatalf("expected DENY RESPONSE_REJECTED, got %+v", sub)
	}

	status, err := o.GetSession(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if status.State != string(session.StateFailed) {
		t.Fatalf("expected FAILED, got %s", status.State)
	}
}

func TestStartDeniedWhenNoMethodSatisfiesPolicy(t *testing.T) {
	cp := &switchableContextProvider{ac: lowRiskContext()}
	o, done := buildTestOrchestrator(t, testConfig(), cp)
	defer done()

	// No providers registered at all.
	ctx := context.Background()
	res, err := o.StartSession(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if res.Decision != DecisionDeny || res.FailureReason != FailurePolicyUnsatisfiable {
		t.Fatalf("expected DENY POLICY_UNSATISFIABLE, got %+v", res)
	}

	status, err := o.GetSession(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if status.State != string(session.StateFailed) {
		t.Fatalf("expected FAILED, got %s", status.State)
	}
}

func TestStartDeniedWhenProviderUnavailable(t *testing.T) {
	cp := &switchableContextProvider{ac: lowRiskContext()}
	o, done := buildTestOrchestrator(t, testConfig(), cp)
	defer done()

	broken := &testProvider{level: 1, startErr: errors.New("backend down")}
	register(t, o, "password", 1, registry.CategoryKnowledge, broken)

	ctx := context.Background()
	res, err := o.StartSession(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if res.Decision != DecisionDeny || res.FailureReason != FailureProviderExhausted {
		t.Fatalf("expected DENY PROVIDER_EXHAUSTED, got %+v", res)
	}

	// Initial call plus the retry budget.
	if broken.startCalls != 3 {
		t.Fatalf("expected 3 start attempts, got %d", broken.startCalls)
	}
}

func TestCancelThenSubmitReturnsTerminalResult(t *testing.T) {
	cp := &switchableContextProvider{ac: lowRiskContext()}
	o, done := buildTestOrchestrator(t, testConfig(), cp)
	defer done()

	password := &testProvider{level: 1}
	register(t, o, "password", 1, registry.CategoryKnowledge, password)

	ctx := context.Background()
	res, err := o.StartSession(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	if err := o.CancelSession(ctx, res.SessionID); err != nil {
		t.Fatalf("CancelSession failed: %v", err)
	}
	if !password.wasCancelled() {
		t.Fatal("expected provider CancelAuthentication to be called")
	}
	if got := password.cancelledSession(); got != res.SessionID {
		t.Fatalf("provider cancelled with %q, want session id %q", got, res.SessionID)
	}
	if err := o.CancelSession(ctx, res.SessionID); !errors.Is(err, ErrSessionTerminal) {
		t.Fatalf("expected ErrSessionTerminal on repeat cancel, got %v", err)
	}

	sub, err := o.SubmitResponse(ctx, SubmitRequest{
		SessionID:   res.SessionID,
		ChallengeID: res.Challenge.ChallengeID,
		Response:    []byte("too late"),
	})
	if err != nil {
		t.Fatalf("submit against terminal session must not error, got %v", err)
	}
	if sub.Decision != DecisionDeny || sub.FailureReason != FailureCancelled {
		t.Fatalf("expected DENY CANCELLED, got %+v", sub)
	}
}

func TestConcurrentWriterConflictSurfaced(t *testing.T) {
	cp := &switchableContextProvider{ac: lowRiskContext()}
	o, done := buildTestOrchestrator(t, testConfig(), cp)
	defer done()

	ctx := context.Background()

	var sessionID string
	racer := &testProvider{level: 1}
	racer.validate = func(registry.ValidationInput) (registry.ValidationResult, error) {
		// Another writer cancels the session while validation is in flight.
		if err := o.CancelSession(ctx, sessionID); err != nil {
			t.Errorf("racing cancel failed: %v", err)
		}
		return registry.ValidationResult{Valid: true}, nil
	}
	register(t, o, "password", 1, registry.CategoryKnowledge, racer)

	res, err := o.StartSession(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	sessionID = res.SessionID

	sub, err := o.SubmitResponse(ctx, SubmitRequest{
		SessionID:   res.SessionID,
		ChallengeID: res.Challenge.ChallengeID,
		Response:    []byte("hunter2"),
	})
	if err != nil {
		t.Fatalf("submit against concurrently finished session must report its outcome, got %v", err)
	}
	if sub.Decision != DecisionDeny || sub.FailureReason != FailureCancelled {
		t.Fatalf("expected the racing writer's terminal outcome, got %+v", sub)
	}

	snap := o.MetricsSnapshot()
	if snap.Counters[MetricConcurrencyConflict] == 0 {
		t.Fatal("expected a concurrency conflict to be recorded")
	}
}

func TestSweepExpiresOverdueSessions(t *testing.T) {
	cfg := testConfig()
	cfg.Orchestrator.SessionTTL = time.Second
	cfg.Challenge.TTL = time.Second

	cp := &switchableContextProvider{ac: lowRiskContext()}
	o, done := buildTestOrchestrator(t, cfg, cp)
	defer done()

	password := &testProvider{level: 1}
	register(t, o, "password", 1, registry.CategoryKnowledge, password)

	ctx := context.Background()
	res, err := o.StartSession(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	// Not due yet.
	n, err := o.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected nothing due, expired %d", n)
	}

	time.Sleep(1100 * time.Millisecond)

	n, err = o.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired session, got %d", n)
	}

	// The outstanding challenge is released under the session's id, the key
	// providers track in-flight state by.
	if !password.wasCancelled() {
		t.Fatal("expected the sweeper to cancel the outstanding challenge")
	}
	if got := password.cancelledSession(); got != res.SessionID {
		t.Fatalf("provider cancelled with %q, want session id %q", got, res.SessionID)
	}

	status, err := o.GetSession(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if status.State != string(session.StateExpired) {
		t.Fatalf("expected EXPIRED, got %s", status.State)
	}
	if status.FailureReason != FailureExpired {
		t.Fatalf("expected EXPIRED failure reason, got %s", status.FailureReason)
	}

	// A second sweep finds the terminal session and only prunes the index.
	n, err = o.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected idempotent sweep, expired %d", n)
	}
}

func TestStartRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.EnableStartThrottle = true
	cfg.RateLimit.MaxStartAttempts = 1
	cfg.RateLimit.StartWindow = time.Minute

	cp := &switchableContextProvider{ac: lowRiskContext()}
	o, done := buildTestOrchestrator(t, cfg, cp)
	defer done()

	register(t, o, "password", 1, registry.CategoryKnowledge, &testProvider{level: 1})

	ctx := context.Background()
	if _, err := o.StartSession(ctx, startRequest()); err != nil {
		t.Fatalf("first start failed: %v", err)
	}

	req := startRequest()
	req.RequestID = "r2"
	if _, err := o.StartSession(ctx, req); !errors.Is(err, ErrStartRateLimited) {
		t.Fatalf("expected ErrStartRateLimited, got %v", err)
	}
}

func TestDegradedRiskFailsClosed(t *testing.T) {
	cp := &switchableContextProvider{}
	cp.Set(nil, errors.New("signal source down"))

	o, done := buildTestOrchestrator(t, testConfig(), cp)
	defer done()

	register(t, o, "password", 1, registry.CategoryKnowledge, &testProvider{level: 1})
	register(t, o, "webauthn", 4, registry.CategoryPossession, &testProvider{level: 4})

	ctx := context.Background()
	res, err := o.StartSession(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	// Fail-closed risk 1.0 lands in CRITICAL: level 4 required.
	if res.RiskScore != 1.0 {
		t.Fatalf("expected fail-closed risk 1.0, got %v", res.RiskScore)
	}
	if res.RequiredAssurance != 4 {
		t.Fatalf("expected required assurance 4, got %d", res.RequiredAssurance)
	}
	if res.Challenge == nil || res.Challenge.ProviderID != "webauthn" {
		t.Fatalf("expected webauthn challenge, got %+v", res.Challenge)
	}

	snap := o.MetricsSnapshot()
	if snap.Counters[MetricRiskFailClosed] != 1 {
		t.Fatalf("expected fail-closed metric, got %d", snap.Counters[MetricRiskFailClosed])
	}
}

func TestDecisionTokenIssuedOnAllow(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}

	cfg := testConfig()
	cfg.DecisionToken.Enabled = true
	cfg.DecisionToken.PrivateKey = priv
	cfg.DecisionToken.PublicKey = pub
	cfg.DecisionToken.Issuer = "goauthflow-test"

	cp := &switchableContextProvider{ac: lowRiskContext()}
	o, done := buildTestOrchestrator(t, cfg, cp)
	defer done()

	register(t, o, "password", 1, registry.CategoryKnowledge, &testProvider{level: 1})

	ctx := context.Background()
	res, err := o.StartSession(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	sub, err := o.SubmitResponse(ctx, SubmitRequest{
		SessionID:   res.SessionID,
		ChallengeID: res.Challenge.ChallengeID,
		Response:    []byte("hunter2"),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if sub.Decision != DecisionAllow || sub.DecisionToken == "" {
		t.Fatalf("expected ALLOW with token, got %+v", sub)
	}

	verifier, err := jwt.NewManager(jwt.Config{
		DecisionTTL:   5 * time.Minute,
		SigningMethod: jwt.MethodEd25519,
		PublicKey:     pub,
		Issuer:        "goauthflow-test",
	})
	if err != nil {
		t.Fatalf("verifier failed: %v", err)
	}
	claims, err := verifier.ParseDecision(sub.DecisionToken)
	if err != nil {
		t.Fatalf("ParseDecision failed: %v", err)
	}
	if claims.SID != res.SessionID || claims.AAL != 1 {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if len(claims.AMR) != 1 || claims.AMR[0] != "password" {
		t.Fatalf("expected amr [password], got %v", claims.AMR)
	}
}

func TestUnregisteredProviderStillValidatesInFlightChallenge(t *testing.T) {
	cp := &switchableContextProvider{ac: lowRiskContext()}
	o, done := buildTestOrchestrator(t, testConfig(), cp)
	defer done()

	register(t, o, "password", 1, registry.CategoryKnowledge, &testProvider{level: 1})

	ctx := context.Background()
	res, err := o.StartSession(ctx, startRequest())
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	// Administrative unregister must not strand the in-flight session.
	if err := o.Registry().Unregister("password", "v1"); err != nil {
		t.Fatalf("unregister failed: %v", err)
	}

	sub, err := o.SubmitResponse(ctx, SubmitRequest{
		SessionID:   res.SessionID,
		ChallengeID: res.Challenge.ChallengeID,
		Response:    []byte("hunter2"),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if sub.Decision != DecisionAllow {
		t.Fatalf("expected ALLOW, got %+v", sub)
	}
}

func TestSubmitValidationErrors(t *testing.T) {
	cp := &switchableContextProvider{ac: lowRiskContext()}
	o, done := buildTestOrchestrator(t, testConfig(), cp)
	defer done()

	ctx := context.Background()
	if _, err := o.SubmitResponse(ctx, SubmitRequest{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := o.SubmitResponse(ctx, SubmitRequest{SessionID: "ghost", ChallengeID: "c"}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := o.StartSession(ctx, StartRequest{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := o.CancelSession(ctx, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
