// Package password implements salted one-way password hashing for credential verification.
//
// Every scheme is keyed by a per-principal salt that is stored next to the hash, so
// verification is always hash(salt, password) compared in constant time against the stored
// value.
//
// # Schemes
//
//   - [Argon2] (default, "argon2id") stores a PHC string:
//     $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//   - [SHA256] ("sha256") stores hex(sha256(salt || password)) for account stores migrated
//     from deployments that predate Argon2id.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. It does not load principals, enforce
// account status, or decide what message a caller sees.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other passport package.
//   - Log plaintext passwords, salts, or hashes.
package password
