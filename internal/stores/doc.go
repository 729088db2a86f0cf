// Package stores provides the Redis-backed record store for password-reset
// requests.
//
// # Design
//
// Each request is a versioned, binary-encoded record keyed by request id,
// with a per-user index of live (pending or verified) requests. Mutations use
// WATCH/MULTI optimistic transactions with retry on contention, so the
// attempt counter cannot be under-counted by concurrent submissions and the
// attempt ceiling cannot be bypassed. Code-hash comparisons are
// constant-time.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for reset records.
// It does NOT generate codes or tokens, deliver anything, or make
// authentication decisions — those responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import cineauth or any sibling internal package.
//   - Log or store plaintext one-time codes.
//   - Use non-constant-time comparisons for code matching.
package stores
