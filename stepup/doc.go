// Package stepup decides, after each validated factor, whether a session is
// complete or which provider must issue the next challenge.
//
// Decide is a pure function of its input: no hidden state, no I/O. That keeps
// the orchestrator's core loop testable in isolation.
package stepup
