// Package password implements credential hashing and verification with
// Argon2id defaults.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The [Hasher] supports transparent parameter upgrades: if a stored hash was
// produced with weaker parameters, [Hasher.NeedsUpgrade] returns true so the
// caller can re-hash on the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Import any other cineauth package.
//   - Log plaintext passwords.
package password
