// Package credential persists the per-user record behind a session line: the
// signing key pair, the one refresh token that is currently valid, and every
// refresh token that has already been rotated away.
//
// # Storage
//
// Refresh tokens are stored as SHA-256 digests only ([HashRefreshToken]).
// [Store] keeps each credential in two Redis keys that share a hash tag, so
// the rotation script and the pipelined reads stay on one cluster slot.
// [PostgresStore] keeps one row per user.
//
// # Rotation
//
// Rotate is a single compare-and-swap on (userID, current refresh digest).
// Exactly one of any number of concurrent callers presenting the same token
// wins; the others observe [ErrRotationConflict] and nothing is written for
// them.
//
// # What this package must NOT do
//
//   - Decide whether a conflict revokes the session. The caller owns that policy.
//   - Sign or verify tokens.
//   - Import goSession or jwt.
package credential
