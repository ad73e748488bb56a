// Package permission derives what the logged-in employee may do from the
// claims carried by the access token.
//
// Capabilities are bits in a [Mask64], named through a [Registry]. The
// derivation mirrors the backend's rules so the shell can hide actions the
// backend would reject with 403; the backend remains the authority.
//
// # What this package must NOT do
//
//   - Access the network or storage.
//   - Import hrdesk or session.
package permission
