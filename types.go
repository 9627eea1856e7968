package goAuthFlow

import (
	"context"
	"time"

	"github.com/MrEthical07/goAuthFlow/registry"
	"github.com/MrEthical07/goAuthFlow/risk"
)

// DecisionType defines a public type used by goAuthFlow APIs.
//
// DecisionType instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type DecisionType string

const (
	// DecisionAllow is an exported constant or variable used by the authentication orchestration engine.
	DecisionAllow DecisionType = "ALLOW"
	// DecisionDeny is an exported constant or variable used by the authentication orchestration engine.
	DecisionDeny DecisionType = "DENY"
	// DecisionStepUp is an exported constant or variable used by the authentication orchestration engine.
	DecisionStepUp DecisionType = "STEP_UP"
)

// Terminal failure reasons surfaced in results and audit events.
const (
	// FailurePolicyUnsatisfiable is an exported constant or variable used by the authentication orchestration engine.
	FailurePolicyUnsatisfiable = "POLICY_UNSATISFIABLE"
	// FailureProviderExhausted is an exported constant or variable used by the authentication orchestration engine.
	FailureProviderExhausted = "PROVIDER_EXHAUSTED"
	// FailureResponseRejected is an exported constant or variable used by the authentication orchestration engine.
	FailureResponseRejected = "RESPONSE_REJECTED"
	// FailureCancelled is an exported constant or variable used by the authentication orchestration engine.
	FailureCancelled = "CANCELLED"
	// FailureExpired is an exported constant or variable used by the authentication orchestration engine.
	FailureExpired = "EXPIRED"
)

// ProviderPlugin is the interface authentication method plugins implement.
// It is defined in the registry package; the alias keeps integrations to a
// single import.
type ProviderPlugin = registry.Provider

// ContextProvider defines a public type used by goAuthFlow APIs.
//
// ContextProvider supplies the environmental signals for one request. A nil
// context or an error degrades risk scoring rather than failing the flow;
// total signal loss fails closed to the highest risk band.
type ContextProvider interface {
	GetContext(ctx context.Context, requestID string) (*risk.AuthContext, error)
}

// StartRequest defines a public type used by goAuthFlow APIs.
//
// StartRequest instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StartRequest struct {
	TenantID    string
	PrincipalID string
	RequestID   string
	// ResourceSensitivity is the target resource tier (0 public .. 4
	// restricted). Negative means unknown and scores as unavailable.
	ResourceSensitivity int
}

// ChallengeInfo defines a public type used by goAuthFlow APIs.
//
// ChallengeInfo is the caller-visible view of an issued challenge. Payload is
// the provider's opaque material (QR data, WebAuthn options, delivery hints).
type ChallengeInfo struct {
	ChallengeID     string
	ProviderID      string
	ProviderVersion string
	Payload         []byte
	ExpiresAt       time.Time
	AttemptsLeft    int
}

// StartResult defines a public type used by goAuthFlow APIs.
//
// StartResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StartResult struct {
	SessionID         string
	Decision          DecisionType
	Challenge         *ChallengeInfo
	RequiredAssurance int
	RiskScore         float64
	RiskBand          string
	RequiresApproval  bool
	FailureReason     string
}

// SubmitRequest defines a public type used by goAuthFlow APIs.
//
// SubmitRequest instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SubmitRequest struct {
	SessionID   string
	ChallengeID string
	Response    []byte
}

// SubmitResult defines a public type used by goAuthFlow APIs.
//
// SubmitResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SubmitResult struct {
	Decision          DecisionType
	AchievedAssurance int
	RequiredAssurance int
	NextChallenge     *ChallengeInfo
	DecisionToken     string
	RiskScore         float64
	FailureReason     string
}

// SessionStatus defines a public type used by goAuthFlow APIs.
//
// SessionStatus is the introspection view of a session returned by
// GetSession. It never exposes challenge payloads or provider state.
type SessionStatus struct {
	SessionID         string
	TenantID          string
	PrincipalID       string
	State             string
	RiskScore         float64
	RiskBand          string
	RequiredAssurance int
	AchievedAssurance int
	StepCount         int
	ActiveProviderID  string
	FailureReason     string
	CreatedAt         time.Time
	ExpiresAt         time.Time
}
