// Package rate provides internal primitives used to build Redis-backed rate
// limit keys, errors, and limiter behavior for authentication orchestration.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - afs: — session start per tenant+principal
//   - afi: — session start per-IP
//   - afr: — response submit per-session
//
// # What this package must NOT do
//
//   - Implement policy decisions (those live in the policy package).
//   - Be imported outside the goAuthFlow module.
package rate
