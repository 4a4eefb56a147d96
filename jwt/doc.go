// Package jwt signs and verifies the RS256 bearer tokens issued for a user
// session. Every user has a private key of their own, so keys are passed per
// call instead of being held by the [Codec].
//
// # Token classes
//
// [ClassAccess] tokens are short lived and authorize individual requests.
// [ClassRefresh] tokens are long lived and only ever exchanged for a new pair.
// The class travels in the "typ" claim so one class cannot stand in for the
// other.
//
// # Verification outcomes
//
// [Codec.Verify] reports exactly one of [ErrTokenExpired], [ErrInvalidSignature]
// or [ErrMalformedToken] on failure. The signature is checked before any time
// based claim, so a forged token never reports as expired.
//
// [Codec.Peek] decodes without verifying anything and must only be used to find
// which public key to verify with.
package jwt
