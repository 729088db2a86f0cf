// Package session provides Redis-backed login-session persistence and compact
// binary session encoding.
//
// # Lifecycle
//
// A [Session] is the durable record of one authenticated login event on one
// device. Records are never deleted: status moves from active to terminated
// (explicit logout) or expired (refresh window passed), and the record stays
// behind as an audit trail. Expiry is applied lazily on [Store.Validate]; no
// background sweep is required for correctness.
//
// # Binary encoding
//
// Sessions are stored as a compact versioned binary blob. The encoder is
// append-only: new versions add fields but never reinterpret old ones.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model.
// It does NOT interpret tokens or enforce authentication policy — those
// responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import cineauth or jwt (no upward imports).
//   - Store plaintext refresh secrets in [Session] fields.
package session
