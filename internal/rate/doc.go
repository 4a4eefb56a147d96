// Package rate implements the Redis fixed-window counters behind login
// throttling and refresh throttling.
//
// # Window semantics
//
// INCR, plus EXPIRE on the first hit of a window. Keys under the configured prefix:
//   - <prefix>:login:<email>     failed logins per normalized email
//   - <prefix>:login-ip:<ip>     failed logins per client IP
//   - <prefix>:refresh:<userID>  refresh attempts per user
//
// # What this package must NOT do
//
//   - Decide what a limited caller sees. The Engine maps ErrRateLimited.
//   - Be imported outside the goSession module.
package rate
