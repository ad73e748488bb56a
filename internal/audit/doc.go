// Package audit relays client session events to a sink without blocking the
// request path.
//
// # Components
//
//   - [Sink] consumes events (channel, JSON lines, no-op).
//   - [Dispatcher] is a buffered asynchronous relay that either drops or
//     blocks when the buffer is full. Types listed in Config.Keep are never
//     dropped for a full buffer; the client keeps logout and session_expired.
//   - [Event] is one session-relevant occurrence: login, refresh, expiry,
//     permission notice.
//
// # What this package must NOT do
//
//   - Decide which events to emit; the client does that.
//   - Import hrdesk or any sibling internal package.
package audit
