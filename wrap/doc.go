// Package wrap provides the outer transport layer of a session token.
//
// A [Wrapper] turns an inner signed token into an opaque string and back. The default
// [Sealer] is deterministic authenticated encryption: the same inner token always wraps to
// the same outer token, and Unwrap accepts only the canonical encoding, so unwrap followed
// by wrap reproduces the input byte for byte.
package wrap
