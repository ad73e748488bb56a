// Package session owns the client's authentication state.
//
// # Single source of truth
//
// A [Store] holds exactly one [Snapshot]: the logged-in flag, the access token,
// the claims decoded from it, and whether the state has been determined yet.
// There is no package-level store; each client owns one and hands it to the
// components that need it (HTTP client, route guard, bootstrapper), so every
// writer is visible at its call site.
//
// Mutations are synchronous: once SetSession or ClearSession returns, every
// reader and every subscriber has seen the new state.
//
// # Persistence
//
// Only the raw access token is persisted directly, through a [TokenSlot] under
// the fixed key [AccessTokenKey]. A [Mirror] can additionally write the whole
// snapshot, CBOR-encoded, under [MirrorKey]. Claims are always re-derived from
// the token; they are never trusted from storage.
//
// # What this package must NOT do
//
//   - Talk to the backend (refresh and login live in the client).
//   - Surface token decode failures to callers; a bad token is simply "no session".
package session
