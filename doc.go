// Package cineauth provides the authentication and session core for a movie
// discovery platform: JWT bearer tokens, Redis-backed multi-device sessions,
// one-time-code password resets, and IP rate limiting with temporary blocks.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// cineauth is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (MetricsSnapshot, SessionSummary, LoginResult, etc.). All internal coordination — session
// encoding, reset state transitions, rate counters, audit dispatch — lives under internal/
// and the session, jwt, and password sub-packages.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Store or log plaintext passwords or one-time codes anywhere.
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build).
//   - Import any sub-package that re-imports cineauth (no import cycles).
//
// # Performance contract
//
// Validate is the hot path. It performs exactly one Redis round-trip to confirm the
// session row is still active; signature verification happens in-process. Login,
// Refresh, and the password reset operations are allowed a small constant number of
// Redis round-trips per call.
package cineauth
