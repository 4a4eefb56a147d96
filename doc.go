// Package goSession issues per-user RSA signing keys, mints short-lived
// access tokens and long-lived refresh tokens, verifies incoming tokens and
// rotates refresh tokens with reuse detection.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Engine], [Builder], [Config],
// the error taxonomy and the collaborator interfaces [UserDirectory],
// [CredentialStore], [PasswordHasher] and [CredentialSink]. Flow orchestration,
// rate limiting and audit dispatch live under internal/.
//
// # Session lifecycle
//
// SignUp and Login generate a new key pair and replace the user's credential.
// Refresh keeps the key pair and swaps the refresh token through a single
// compare-and-swap in the [CredentialStore]. Presenting a token that was
// already rotated away, or losing a rotation race, deletes the credential
// before the error is returned. Logout deletes the credential.
//
// # What this package must NOT do
//
//   - Log or persist a plaintext refresh token, private key or password.
//   - Read-modify-write a credential outside the store's atomic operations.
//   - Import a sub-package that re-imports goSession.
package goSession
