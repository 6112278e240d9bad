// Package jwt signs and verifies the inner session token with a process-wide HMAC secret.
//
// Verification never needs storage: a token is accepted when its HMAC signature, algorithm,
// issuer and expiry check out against the immutable [Config] the [Manager] was built with.
// Wrapping the signed token for transport is a separate transform (package wrap).
package jwt
