package internaldefs

import (
	goAuthFlow "github.com/MrEthical07/goAuthFlow"
)

// CounterDef defines a public type used by goAuthFlow APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goAuthFlow.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goAuthFlow APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goAuthFlow.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication orchestration engine.
var CounterDefs = []CounterDef{
	{ID: goAuthFlow.MetricSessionStarted, Name: "goauthflow_session_started_total", Help: "Authentication sessions started."},
	{ID: goAuthFlow.MetricSessionDenied, Name: "goauthflow_session_denied_total", Help: "Sessions denied at start."},
	{ID: goAuthFlow.MetricSessionCompleted, Name: "goauthflow_session_completed_total", Help: "Sessions completed with ALLOW."},
	{ID: goAuthFlow.MetricSessionFailed, Name: "goauthflow_session_failed_total", Help: "Sessions terminated with FAILED."},
	{ID: goAuthFlow.MetricSessionCancelled, Name: "goauthflow_session_cancelled_total", Help: "Sessions cancelled by the caller."},
	{ID: goAuthFlow.MetricSessionExpired, Name: "goauthflow_session_expired_total", Help: "Sessions expired by the sweeper."},
	{ID: goAuthFlow.MetricChallengeIssued, Name: "goauthflow_challenge_issued_total", Help: "Challenges issued to principals."},
	{ID: goAuthFlow.MetricChallengeExpired, Name: "goauthflow_challenge_expired_total", Help: "Responses submitted past the challenge deadline."},
	{ID: goAuthFlow.MetricResponseAccepted, Name: "goauthflow_response_accepted_total", Help: "Challenge responses accepted by providers."},
	{ID: goAuthFlow.MetricResponseRejected, Name: "goauthflow_response_rejected_total", Help: "Challenge responses rejected by providers."},
	{ID: goAuthFlow.MetricStepUpRequired, Name: "goauthflow_step_up_required_total", Help: "Step-up challenges required after a validated factor."},
	{ID: goAuthFlow.MetricPolicyUnsatisfiable, Name: "goauthflow_policy_unsatisfiable_total", Help: "Sessions with no registered method able to satisfy policy."},
	{ID: goAuthFlow.MetricPolicyFallback, Name: "goauthflow_policy_fallback_total", Help: "Policy resolutions served by the conservative fallback."},
	{ID: goAuthFlow.MetricRiskFailClosed, Name: "goauthflow_risk_fail_closed_total", Help: "Risk evaluations that failed closed to the maximum score."},
	{ID: goAuthFlow.MetricProviderRetry, Name: "goauthflow_provider_retry_total", Help: "Provider call retries after transient errors."},
	{ID: goAuthFlow.MetricProviderExhausted, Name: "goauthflow_provider_exhausted_total", Help: "Provider calls that exhausted the retry budget."},
	{ID: goAuthFlow.MetricConcurrencyConflict, Name: "goauthflow_concurrency_conflict_total", Help: "Session writes lost to a concurrent version bump."},
	{ID: goAuthFlow.MetricStartRateLimited, Name: "goauthflow_start_rate_limited_total", Help: "Rate-limited session start attempts."},
	{ID: goAuthFlow.MetricSubmitRateLimited, Name: "goauthflow_submit_rate_limited_total", Help: "Rate-limited response submissions."},
	{ID: goAuthFlow.MetricDecisionTokenIssued, Name: "goauthflow_decision_token_issued_total", Help: "Signed decision tokens issued."},
}

// HistogramDefs is an exported constant or variable used by the authentication orchestration engine.
var HistogramDefs = []HistogramDef{
	{ID: goAuthFlow.MetricSubmitLatency, Name: "goauthflow_submit_latency_seconds", Help: "Submit latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the authentication orchestration engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the authentication orchestration engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
