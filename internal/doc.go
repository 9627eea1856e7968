// Package internal contains helper utilities that are intentionally private to
// goAuthFlow, including secure identifier generation.
//
// # Sub-packages
//
//   - rate — Redis-backed fixed-window rate limit primitives
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAuthFlow API.
//   - Be imported by any package outside the goAuthFlow module.
package internal
