package session

// State defines a public type used by goAuthFlow APIs.
//
// State is one node of the session state machine. Transitions are validated
// through [CanTransition]; the store never persists an illegal transition.
type State string

const (
	// StateInit is an exported constant or variable used by the authentication orchestration engine.
	StateInit State = "INIT"
	// StateContextGather is an exported constant or variable used by the authentication orchestration engine.
	StateContextGather State = "CONTEXT_GATHER"
	// StateRiskEval is an exported constant or variable used by the authentication orchestration engine.
	StateRiskEval State = "RISK_EVAL"
	// StatePolicyResolve is an exported constant or variable used by the authentication orchestration engine.
	StatePolicyResolve State = "POLICY_RESOLVE"
	// StateChallengeIssued is an exported constant or variable used by the authentication orchestration engine.
	StateChallengeIssued State = "CHALLENGE_ISSUED"
	// StateResponsePending is an exported constant or variable used by the authentication orchestration engine.
	StateResponsePending State = "RESPONSE_PENDING"
	// StateResponseValidated is an exported constant or variable used by the authentication orchestration engine.
	StateResponseValidated State = "RESPONSE_VALIDATED"
	// StateStepUpCheck is an exported constant or variable used by the authentication orchestration engine.
	StateStepUpCheck State = "STEP_UP_CHECK"
	// StateComplete is an exported constant or variable used by the authentication orchestration engine.
	StateComplete State = "COMPLETE"
	// StateFailed is an exported constant or variable used by the authentication orchestration engine.
	StateFailed State = "FAILED"
	// StateCancelled is an exported constant or variable used by the authentication orchestration engine.
	StateCancelled State = "CANCELLED"
	// StateExpired is an exported constant or variable used by the authentication orchestration engine.
	StateExpired State = "EXPIRED"
)

// transitions is the closed forward-edge table. Terminal states have no
// outgoing edges; FAILED, CANCELLED, and EXPIRED are additionally reachable
// from every non-terminal state (handled in CanTransition).
var transitions = map[State][]State{
	StateInit:              {StateContextGather},
	StateContextGather:     {StateRiskEval},
	StateRiskEval:          {StatePolicyResolve},
	StatePolicyResolve:     {StateChallengeIssued},
	StateChallengeIssued:   {StateResponsePending},
	StateResponsePending:   {StateResponseValidated},
	StateResponseValidated: {StateStepUpCheck},
	StateStepUpCheck:       {StateChallengeIssued, StateComplete},
}

// IsTerminal reports whether the state accepts no further transitions.
func (s State) IsTerminal() bool {
	switch s {
	case StateComplete, StateFailed, StateCancelled, StateExpired:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal edge of the session
// state machine. Any non-terminal state may move to FAILED, CANCELLED, or
// EXPIRED; terminal states accept nothing.
func CanTransition(from, to State) bool {
	if from.IsTerminal() {
		return false
	}
	switch to {
	case StateFailed, StateCancelled, StateExpired:
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Challenge defines a public type used by goAuthFlow APIs.
//
// Challenge is the single active challenge of a session. OpaquePayload is
// provider-owned state echoed back on validation; the orchestrator never
// interprets it.
type Challenge struct {
	ChallengeID     string `json:"cid"`
	ProviderID      string `json:"pid"`
	ProviderVersion string `json:"pv"`
	OpaquePayload   []byte `json:"op,omitempty"`
	IssuedAt        int64  `json:"iat"`
	ExpiresAt       int64  `json:"exp"`
	Attempts        int    `json:"att"`
	MaxAttempts     int    `json:"max"`
	// Interim marks a below-requirement identity-establishing factor.
	Interim bool `json:"int,omitempty"`
}

// Step defines a public type used by goAuthFlow APIs.
//
// Step records one successfully validated factor.
type Step struct {
	ProviderID      string `json:"pid"`
	ProviderVersion string `json:"pv"`
	Category        string `json:"cat"`
	AssuranceLevel  int    `json:"aal"`
	ValidatedAt     int64  `json:"at"`
}

// RiskSample defines a public type used by goAuthFlow APIs.
//
// RiskSample is one point of the session's risk score history.
type RiskSample struct {
	Score    float64 `json:"s"`
	Degraded bool    `json:"deg,omitempty"`
	At       int64   `json:"at"`
}

// PolicySnapshot defines a public type used by goAuthFlow APIs.
//
// PolicySnapshot freezes the resolved policy inside the session so replays of
// the same session never flip-flop between policy versions mid-flow. Only a
// step-up re-evaluation refreshes it.
type PolicySnapshot struct {
	Band             string   `json:"band"`
	AllowedMethodIDs []string `json:"allow,omitempty"`
	DeniedMethodIDs  []string `json:"deny,omitempty"`
	StepUpThreshold  float64  `json:"sut"`
	RequiresApproval bool     `json:"appr,omitempty"`
	Fallback         bool     `json:"fb,omitempty"`
}

// Session defines a public type used by goAuthFlow APIs.
//
// Session is the full orchestration record persisted between calls. Version
// mirrors the Redis-side counter and drives optimistic concurrency: callers
// read, mutate, and CompareAndSwap; a conflict means another writer advanced
// the session first.
type Session struct {
	SessionID   string `json:"sid"`
	TenantID    string `json:"tid"`
	PrincipalID string `json:"sub,omitempty"`
	RequestID   string `json:"rid"`

	State   State `json:"st"`
	Version int64 `json:"-"`

	ResourceSensitivity int `json:"sens"`

	RiskScore         float64            `json:"risk"`
	PreviousRiskScore float64            `json:"prisk"`
	RiskDegraded      bool               `json:"rdeg,omitempty"`
	RiskFactors       map[string]float64 `json:"rf,omitempty"`
	RiskHistory       []RiskSample       `json:"rh,omitempty"`

	RequiredAssurance int `json:"req"`
	AchievedAssurance int `json:"ach"`

	Policy PolicySnapshot `json:"pol"`

	Challenge *Challenge `json:"ch,omitempty"`
	Steps     []Step     `json:"steps,omitempty"`

	FailureReason string `json:"fail,omitempty"`

	CreatedAt int64 `json:"cat"`
	UpdatedAt int64 `json:"uat"`
	ExpiresAt int64 `json:"exp"`
}

// AttemptedProviderIDs lists every provider already used in this session,
// validated steps first, then the in-flight challenge.
func (s *Session) AttemptedProviderIDs() []string {
	ids := make([]string, 0, len(s.Steps)+1)
	for _, st := range s.Steps {
		ids = append(ids, st.ProviderID)
	}
	if s.Challenge != nil {
		ids = append(ids, s.Challenge.ProviderID)
	}
	return ids
}

// UsedCategories lists the categories of every validated step in order.
func (s *Session) UsedCategories() []string {
	cats := make([]string, 0, len(s.Steps))
	for _, st := range s.Steps {
		cats = append(cats, st.Category)
	}
	return cats
}
