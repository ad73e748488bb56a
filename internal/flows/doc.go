// Package flows contains pure-function orchestrators for the client's session
// transitions: login, refresh, and logout.
//
// Each flow function accepts a typed dependency struct and returns a result
// describing what happened. Flows decide ordering (persist before apply,
// clear local state even when the backend call fails); the client supplies the
// backend calls, the session store, and the token slot.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import hrdesk (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency functions.
package flows
