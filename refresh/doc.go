// Package refresh coordinates access-token refresh calls.
//
// # Modes
//
// In [Shared] mode (the default) concurrent callers that need a refresh at the
// same time join a single in-flight call and all receive its outcome. In
// [PerRequest] mode every caller performs its own call; this mirrors older
// clients that refreshed once per rejected request.
//
// # Architecture boundaries
//
// This package knows nothing about HTTP or the session store. The caller
// supplies a [Func] that performs the refresh and decides what to do with the
// result.
//
// # What this package must NOT do
//
//   - Import hrdesk or session.
//   - Retry a failed refresh.
package refresh
