// Package audit relays security events to a sink off the request path.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, no-op, or caller supplied).
//   - [Dispatcher]: buffered async relay that either drops or blocks when full.
//   - [Event]: one record with timestamp, type, subject, client IP and outcome.
//
// # What this package must NOT do
//
//   - Decide which events to emit (the Engine does).
//   - Carry tokens, passwords, hashes or secret material in any field.
//   - Import tokengate or sibling internal packages.
package audit
