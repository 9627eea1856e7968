// Package goAuthFlow provides a policy-driven authentication orchestration engine:
// given an inbound authentication request it scores risk, resolves the required
// assurance level, drives the principal through one or more provider challenges,
// re-evaluates risk between rounds, and issues a final allow/deny/step-up decision.
//
// The package is designed for concurrent server workloads: Orchestrator methods are
// safe to call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goAuthFlow is the public surface. It exposes [Orchestrator], [Builder], [Config],
// and value types (StartResult, SubmitResult, MetricsSnapshot, SessionStatus, etc.).
// Concrete authentication methods, persistent identity storage, transport layers,
// and audit persistence are external collaborators consumed through the
// [ProviderPlugin], [ContextProvider], [policy.Store], and [AuditSink] interfaces.
//
// # What this package must NOT do
//
//   - Implement any cryptographic authentication protocol (providers do that).
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Perform I/O outside of Orchestrator methods (construction via Builder is
//     allocation-only until Build).
//
// # Concurrency contract
//
// Each authentication session is driven strictly sequentially: a new challenge is
// never issued before the previous one resolves. Session records are guarded by an
// optimistic version check; the expiry sweeper and in-flight responses race safely
// through the same compare-and-swap path.
package goAuthFlow
