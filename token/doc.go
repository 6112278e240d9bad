// Package token issues and validates session tokens.
//
// An [Issuer] composes two independent transforms: the inner token is signed by
// jwt.Manager and the outer token is produced by a wrap.Wrapper. Validate runs them in
// reverse and checks expiry against the issuer's clock.
package token
