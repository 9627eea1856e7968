// Package registry maintains the in-memory catalog of authentication provider
// descriptors and their plugin implementations.
//
// The catalog is read through immutable copy-on-write snapshots swapped
// atomically on every administrative write: readers never block writers and
// never observe a partially updated catalog. Unregistered providers are
// tombstoned rather than removed so in-flight sessions can still resolve them
// for response validation.
package registry
