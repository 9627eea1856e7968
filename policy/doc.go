// Package policy resolves the assurance requirements for an authentication
// attempt: it maps a risk score to a risk band, merges the band-derived and
// resource-sensitivity-derived requirements (stricter always wins), applies
// tenant method denylists, and returns the allowed provider set.
//
// Tenant policies come from an external Store. A missing or failing store
// falls back to a conservative built-in default: the engine fails safe, never
// open.
package policy
