// Package rate implements fixed-window request admission with IP blacklisting.
//
// # Design
//
// Counters are per IP and path class, advanced by a Lua script so the
// increment and the window TTL are set atomically — two concurrent first
// requests cannot race into a counter with no expiry. Breaching a ceiling
// writes a per-IP block key; while the block key lives, every admission for
// that IP is rejected regardless of class.
//
// # What this package must NOT do
//
//   - Classify request paths. Callers decide the class per route.
//   - Import cineauth or any sibling internal package.
//   - Distinguish users. Admission is keyed by source IP only.
package rate
