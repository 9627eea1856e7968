package goAuthFlow

import "errors"

var (
	// ErrValidation is an exported constant or variable used by the authentication orchestration engine.
	ErrValidation = errors.New("invalid request")
	// ErrSessionNotFound is an exported constant or variable used by the authentication orchestration engine.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionTerminal is an exported constant or variable used by the authentication orchestration engine.
	ErrSessionTerminal = errors.New("session already terminal")
	// ErrChallengeExpired is an exported constant or variable used by the authentication orchestration engine.
	ErrChallengeExpired = errors.New("challenge expired")
	// ErrChallengeMismatch is an exported constant or variable used by the authentication orchestration engine.
	ErrChallengeMismatch = errors.New("challenge id mismatch")
	// ErrResponseRejected is an exported constant or variable used by the authentication orchestration engine.
	ErrResponseRejected = errors.New("challenge response rejected")
	// ErrPolicyUnsatisfiable is an exported constant or variable used by the authentication orchestration engine.
	ErrPolicyUnsatisfiable = errors.New("no provider satisfies policy")
	// ErrProviderUnavailable is an exported constant or variable used by the authentication orchestration engine.
	ErrProviderUnavailable = errors.New("provider backend unavailable")
	// ErrProviderNotRegistered is an exported constant or variable used by the authentication orchestration engine.
	ErrProviderNotRegistered = errors.New("provider not registered")
	// ErrConcurrencyConflict is an exported constant or variable used by the authentication orchestration engine.
	ErrConcurrencyConflict = errors.New("concurrent session update conflict")
	// ErrStartRateLimited is an exported constant or variable used by the authentication orchestration engine.
	ErrStartRateLimited = errors.New("session start rate limited")
	// ErrSubmitRateLimited is an exported constant or variable used by the authentication orchestration engine.
	ErrSubmitRateLimited = errors.New("response submit rate limited")
	// ErrDecisionTokenDisabled is an exported constant or variable used by the authentication orchestration engine.
	ErrDecisionTokenDisabled = errors.New("decision tokens disabled")
	// ErrEngineNotReady is an exported constant or variable used by the authentication orchestration engine.
	ErrEngineNotReady = errors.New("orchestrator not initialized")
)
