package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/passport"
)

// Authenticator is the part of passport.Engine used by Guard.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*passport.Identity, error)
}

// RejectFunc writes the response for a rejected request.
type RejectFunc func(w http.ResponseWriter, r *http.Request, status int, err error)

type identityContextKey struct{}

type tokenContextKey struct{}

// IdentityFromContext returns the identity stored by Guard.
func IdentityFromContext(ctx context.Context) (*passport.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*passport.Identity)
	return id, ok
}

// TokenFromContext returns the raw token accepted by Guard.
func TokenFromContext(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(tokenContextKey{}).(string)
	return tok, ok
}

// Guard authenticates every request. A nil reject writes a plain 401.
func Guard(auth Authenticator, reject RejectFunc) func(http.Handler) http.Handler {
	if reject == nil {
		reject = plainReject
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				reject(w, r, http.StatusUnauthorized, passport.ErrEngineNotReady)
				return
			}

			token, ok := TokenFromHeader(r.Header.Get("Authorization"))
			if !ok {
				reject(w, r, http.StatusUnauthorized, passport.ErrTokenInvalid)
				return
			}

			id, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				reject(w, r, http.StatusUnauthorized, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, id)
			ctx = context.WithValue(ctx, tokenContextKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromHeader extracts a token from an Authorization header value.
func TokenFromHeader(value string) (string, bool) {
	const bearer = "Bearer "
	value = strings.TrimSpace(value)
	if len(value) >= len(bearer) && strings.EqualFold(value[:len(bearer)], bearer) {
		value = strings.TrimSpace(value[len(bearer):])
	}
	if value == "" {
		return "", false
	}
	return value, true
}

func plainReject(w http.ResponseWriter, _ *http.Request, status int, _ error) {
	http.Error(w, http.StatusText(status), status)
}
