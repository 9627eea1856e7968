// Package jwt issues and verifies signed decision tokens that attest a
// completed authentication session: who authenticated, at what assurance
// level, and with which methods.
package jwt
