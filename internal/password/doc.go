// Package password hashes and verifies the development backend's account
// passwords with Argon2id.
//
// # Output format
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher.NeedsRehash] reports hashes produced with weaker parameters than
// the hasher's, so callers can re-hash after the next successful login.
//
// # What this package must NOT do
//
//   - Store passwords or apply the registration policy (special characters,
//     confirmation). Only the byte-length bounds are checked here.
//   - Log plaintext passwords.
package password
