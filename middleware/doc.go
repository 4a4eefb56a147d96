// Package middleware adapts goSession.Engine to net/http.
//
// # Handlers
//
//   - [Authenticate] reads the access and refresh credentials from cookies or
//     headers, runs Engine.Authenticate and stores the result on the request
//     context. Rotated credentials are written back as cookies.
//   - [Authorize] rejects requests whose result holds none of the given roles.
//   - [WriteError] turns an Engine error into a JSON body for API paths or a
//     login redirect for interactive paths.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Set a credential cookie without HttpOnly.
package middleware
