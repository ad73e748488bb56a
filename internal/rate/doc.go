// Package rate provides fixed-window Redis counters that throttle failed
// logins and refresh calls in the development backend.
//
// # Window semantics
//
// INCR + conditional EXPIRE on first hit. Key suffixes under the prefix:
//   - login:<employee>  failed logins per employee
//   - login-ip:<ip>     failed logins per client address
//   - refresh:<token>   refresh calls per refresh token
//
// # What this package must NOT do
//
//   - Decide HTTP responses (the backend maps ErrRateLimited to 429).
//   - Be imported by the client SDK.
package rate
