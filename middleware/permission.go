package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/MrEthical07/passport"
)

// ErrPermissionDenied is passed to the RejectFunc when the user lacks the permission.
var ErrPermissionDenied = errors.New("permission denied")

// Authorizer is the part of passport.Engine used by RequirePermission.
type Authorizer interface {
	Authorization(ctx context.Context, username string) (passport.AuthorizationView, error)
}

// RequirePermission allows the request only when the identity stored by Guard holds perm.
func RequirePermission(authz Authorizer, perm string, reject RejectFunc) func(http.Handler) http.Handler {
	if reject == nil {
		reject = plainReject
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok || authz == nil {
				reject(w, r, http.StatusUnauthorized, passport.ErrSessionNotFound)
				return
			}

			view, err := authz.Authorization(r.Context(), id.Username)
			if err != nil {
				reject(w, r, http.StatusInternalServerError, err)
				return
			}
			if !slices.Contains(view.Permissions, perm) {
				reject(w, r, http.StatusForbidden, ErrPermissionDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
