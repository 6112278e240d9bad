// Package permission answers which roles a user holds and which permissions those roles
// grant.
//
// Permission names are assigned bit positions by a [Registry]; a [RoleManager] stores one
// [Mask] per role, and effective permissions are the union of role masks. An [Aggregator]
// reads through a [Directory] and normalizes results to sorted, de-duplicated, non-nil
// slices.
//
// The in-memory types here do no I/O. SQL-backed directories live in the store package.
package permission
