// Package jwt reads claims out of access tokens issued by the HR backend.
//
// # Trust model
//
// The [Codec] is a claims reader, not a security boundary. It parses the payload
// segment of a compact JWS and never verifies the signature: the backend is the
// only party holding the signing key, and it re-validates every token it receives.
// Adding client-side verification would need a trust root the client does not have.
//
// # Architecture boundaries
//
// This package owns token parsing and the [Claims] shape. It does NOT hold session
// state, talk to the network, or persist tokens.
//
// # What this package must NOT do
//
//   - Import hrdesk, session, or persist (no upward imports).
//   - Treat a successful Decode as proof of authenticity.
package jwt
