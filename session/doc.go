// Package session provides Redis-backed persistence for authentication
// orchestration sessions, including the session state machine and optimistic
// concurrency control.
//
// # Storage layout
//
// Each session is a Redis hash with two fields: "data" (the JSON-encoded
// [Session]) and "ver" (a monotonically increasing integer). Every write goes
// through a Lua compare-and-swap on "ver", so concurrent writers cannot lose
// updates. A sorted-set index keyed by expiry time feeds the background
// sweeper.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations), the [Session] model, and
// the state transition table. It does NOT evaluate risk, resolve policy, or
// talk to providers. Those responsibilities belong to the orchestrator.
//
// # What this package must NOT do
//
//   - Import goAuthFlow, registry, risk, policy, or stepup (no upward imports).
//   - Decide authentication outcomes.
//   - Store provider secrets in [Session] fields.
package session
