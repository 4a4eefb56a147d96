// Package directory is a Redis-backed goSession.UserDirectory.
//
// Users are stored as JSON under <prefix>:user:<id>. A second key,
// <prefix>:email:<email>, maps a normalized email to its id and is written
// with SETNX, so two concurrent sign-ups for the same email cannot both
// succeed.
package directory
