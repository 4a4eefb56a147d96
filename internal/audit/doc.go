// Package audit relays security events off the request path.
//
// # Components
//
//   - [Sink] receives events (channel, JSON lines, zap, no-op).
//   - [Dispatcher] buffers events and forwards them from one goroutine, either
//     dropping or blocking when the buffer is full.
//   - [Event] is the record itself.
//
// # What this package must NOT do
//
//   - Decide which events exist. The Engine owns that.
//   - Import goSession or any sibling internal package.
package audit
