// Package flows holds the orchestration for each session operation as plain
// functions over explicit dependency structs.
//
// # Architecture boundaries
//
// Each Run* function returns a result carrying a failure kind instead of a
// public error. The Engine maps kinds to goSession errors, metrics and audit
// events, so this package never decides what a caller sees.
//
// # What this package must NOT do
//
//   - Import goSession.
//   - Emit metrics or audit events.
//   - Swallow a store error. Every failure is returned with its cause.
package flows
