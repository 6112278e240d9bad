// Package session keeps the registry of active sessions.
//
// A [Registry] owns the lifecycle rules: it assigns identifiers, resolves the client
// location, and re-validates expiry on every read. Records live in a [Store]; the package
// ships [MemoryStore] for single-process deployments and [RedisStore] for shared ones.
//
// # Binary encoding
//
// Redis records use a compact versioned binary layout ([Encode], [Decode]). New versions
// append fields and never reinterpret old ones.
//
// This package does not parse tokens or evaluate permissions.
package session
