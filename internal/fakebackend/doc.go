// Package fakebackend is an in-memory stand-in for the task/HR backend.
//
// It signs real HS256 access tokens, keeps the refresh token in an HttpOnly
// cookie, and serves the task, user and lookup endpoints the client uses.
// Hooks let tests expire access tokens, fail refreshes, forbid paths and
// slow the refresh endpoint down. `hrdesk dev-backend` serves it locally.
package fakebackend
