// Package persist provides durable key/value slots for client-side session data.
//
// The HR client persists exactly two things: the raw access token under a fixed
// key, and (optionally) an encoded mirror of the whole session under its own
// namespace. Both go through the [KV] interface so a deployment can pick where
// they live:
//
//   - [Memory] — process-local, for tests and ephemeral shells.
//   - [File] — one 0600 file per key under a directory (the CLI default).
//   - [Redis] — shared slot for several shells on different hosts.
//   - [SQLite] — single-file database, useful when the directory is synced.
//   - [Postgres] — shared slot backed by an existing database.
//
// # Architecture boundaries
//
// This package stores opaque bytes. It does NOT decode tokens, know about
// session semantics, or encrypt anything; token encryption is out of scope.
package persist
