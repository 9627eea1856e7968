package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goAuthFlow "github.com/MrEthical07/goAuthFlow"
	"github.com/MrEthical07/goAuthFlow/registry"
	"github.com/MrEthical07/goAuthFlow/risk"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type staticContextProvider struct{}

func (staticContextProvider) GetContext(_ context.Context, requestID string) (*risk.AuthContext, error) {
	return &risk.AuthContext{
		RequestID: requestID,
		Device:    &risk.DeviceSignals{TrustScore: 0.9, Known: true},
		Location:  &risk.LocationSignals{AnomalyScore: 0.1},
		Network:   &risk.NetworkSignals{ReputationScore: 0.05},
	}, nil
}

type otpProvider struct {
	level int
}

func (p otpProvider) StartAuthentication(_ context.Context, req registry.AuthRequest) (registry.IssuedChallenge, error) {
	return registry.IssuedChallenge{OpaquePayload: []byte(req.SessionID)}, nil
}

func (p otpProvider) ValidateResponse(_ context.Context, in registry.ValidationInput) (registry.ValidationResult, error) {
	return registry.ValidationResult{Valid: true, PrincipalID: "loadtest"}, nil
}

func (p otpProvider) CancelAuthentication(context.Context, string) error { return nil }
func (p otpProvider) AssuranceLevel() int                                { return p.level }
func (p otpProvider) SupportsStepUp(current, target int) bool            { return true }

func main() {
	var (
		flows       = flag.Int("flows", 50000, "number of full authentication flows to drive")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		reads       = flag.Int("reads", 100000, "session status reads in the read phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *flows <= 0 || *concurrency <= 0 || *reads <= 0 {
		fmt.Fprintln(os.Stderr, "flows, concurrency, and reads must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goAuthFlow.DefaultConfig()
	cfg.RateLimit.EnableStartThrottle = false
	cfg.RateLimit.EnableSubmitThrottle = false

	orchestrator, err := goAuthFlow.New().
		WithConfig(cfg).
		WithRedis(client).
		WithContextProvider(staticContextProvider{}).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer orchestrator.Close()

	if err := orchestrator.Registry().Register(registry.Descriptor{
		ID:             "totp",
		Version:        "v1",
		Category:       registry.CategoryPossession,
		AssuranceLevel: 2,
		Capabilities:   registry.Capabilities{SupportsStepUp: true},
	}, otpProvider{level: 2}); err != nil {
		fmt.Fprintf(os.Stderr, "register failed: %v\n", err)
		os.Exit(1)
	}

	sessionIDs := make([]string, 0, *flows)
	var sidMu sync.Mutex

	flowStats := runFlowPhase(ctx, orchestrator, *flows, *concurrency, func(sid string) {
		sidMu.Lock()
		sessionIDs = append(sessionIDs, sid)
		sidMu.Unlock()
	})
	readStats := runReadPhase(ctx, orchestrator, sessionIDs, *reads, *concurrency)

	fmt.Println("---- results ----")
	printStats("flow", flowStats)
	printStats("read", readStats)

	snap := orchestrator.MetricsSnapshot()
	fmt.Printf("completed=%d failed=%d conflicts=%d\n",
		snap.Counters[goAuthFlow.MetricSessionCompleted],
		snap.Counters[goAuthFlow.MetricSessionFailed],
		snap.Counters[goAuthFlow.MetricConcurrencyConflict],
	)
}

func runFlowPhase(
	ctx context.Context,
	orchestrator *goAuthFlow.Orchestrator,
	flows, concurrency int,
	recordSID func(string),
) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, flows)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= flows {
					return
				}

				t0 := time.Now()
				ok := driveFlow(ctx, orchestrator, i, recordSID)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func driveFlow(ctx context.Context, orchestrator *goAuthFlow.Orchestrator, i int, recordSID func(string)) bool {
	res, err := orchestrator.StartSession(ctx, goAuthFlow.StartRequest{
		TenantID:    "t1",
		PrincipalID: fmt.Sprintf("user-%d", i),
		RequestID:   fmt.Sprintf("req-%d", i),
	})
	if err != nil || res.Decision != goAuthFlow.DecisionStepUp {
		return false
	}
	recordSID(res.SessionID)

	challenge := res.Challenge
	for step := 0; step < 8; step++ {
		sub, err := orchestrator.SubmitResponse(ctx, goAuthFlow.SubmitRequest{
			SessionID:   res.SessionID,
			ChallengeID: challenge.ChallengeID,
			Response:    []byte("123456"),
		})
		if err != nil {
			return false
		}
		switch sub.Decision {
		case goAuthFlow.DecisionAllow:
			return true
		case goAuthFlow.DecisionStepUp:
			challenge = sub.NextChallenge
		default:
			return false
		}
	}
	return false
}

func runReadPhase(
	ctx context.Context,
	orchestrator *goAuthFlow.Orchestrator,
	sessionIDs []string,
	reads, concurrency int,
) phaseStats {
	if len(sessionIDs) == 0 {
		return phaseStats{}
	}

	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, reads)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= reads {
					return
				}
				sid := sessionIDs[r.Intn(len(sessionIDs))]
				t0 := time.Now()
				_, err := orchestrator.GetSession(ctx, sid)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
