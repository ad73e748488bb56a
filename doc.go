// Package hrdesk is the client side of the HR desk web application: it logs
// an employee in, attaches the bearer token to every API call, refreshes the
// token transparently when the backend answers 401, and ends the session when
// the refresh itself fails.
//
// Build a [Client] with [New] and [Builder.Build]. The client is safe for
// concurrent use. Concurrent requests that hit an expired token share one
// refresh call (see package refresh) and each is replayed once with the new
// token.
//
// The session (login flag, access token, decoded claims) lives in a
// session.Store and is mirrored to a persist.KV so that a later process can
// pick it up through [Client.Bootstrap]. Page-level gating on top of the
// session is in package guard; capability checks derived from the claims are
// in package permission.
//
// Session-level outcomes reach the application through [Listener]:
// a failed refresh reports [ErrSessionExpired], a 403 reports the
// permission-denied notice. Both are also returned as errors from the call
// that triggered them.
package hrdesk
