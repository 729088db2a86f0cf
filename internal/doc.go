// Package internal contains helper utilities that are intentionally private to
// cineauth: secure random generation for refresh secrets and one-time codes.
//
// # Sub-packages
//
//   - rate — Redis-backed request rate limiting and IP blocking
//   - stores — password-reset request persistence and state transitions
//
// # What this package must NOT do
//
//   - Export types that appear in the public cineauth API.
//   - Be imported by any package outside the cineauth module.
package internal
