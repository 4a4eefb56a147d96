// Package keypair generates the per-user RSA signing key pairs that back every
// issued token.
//
// # Encoding
//
// Private keys are PKCS#8 "PRIVATE KEY" PEM blocks and public keys are PKIX
// "PUBLIC KEY" PEM blocks, which is what the token codec and both credential
// stores persist and parse.
//
// # What this package must NOT do
//
//   - Persist keys or perform any I/O beyond reading the random source.
//   - Import goSession, jwt, or credential.
package keypair
