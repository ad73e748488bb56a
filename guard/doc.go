// Package guard gates protected views on the session store.
//
// # Decisions
//
//   - [Suspend]: the store has not been initialized yet; render nothing.
//   - [Redirect]: the store is initialized and nobody is logged in.
//   - [Render]: a session is active.
//
// [Guard.Decide] is the whole policy. [Guard.Middleware] translates it into
// HTTP for net/http shells and [Guard.RequireCapability] adds a claims-based
// check on top.
//
// # What this package must NOT do
//
//   - Mutate the session store.
//   - Issue backend requests or trigger a refresh.
package guard
