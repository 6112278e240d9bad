package flows

import (
	"context"
	"time"
)

// AuthenticatedSession is what a successful token check yields.
type AuthenticatedSession struct {
	Username  string
	SessionID string
	IP        string
	Location  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AuthenticateDeps captures token-check dependencies.
type AuthenticateDeps struct {
	// Validate checks the token itself and returns its username.
	Validate func(string) (string, error)
	// LookupToken returns the live session registered for the token.
	LookupToken func(context.Context, string) (AuthenticatedSession, error)

	SessionMismatch error
}

// RunAuthenticate validates token and requires a live session bound to the same user.
func RunAuthenticate(ctx context.Context, token string, deps AuthenticateDeps) (AuthenticatedSession, error) {
	username, err := deps.Validate(token)
	if err != nil {
		return AuthenticatedSession{}, err
	}
	sess, err := deps.LookupToken(ctx, token)
	if err != nil {
		return AuthenticatedSession{}, err
	}
	if sess.Username != username {
		return AuthenticatedSession{}, deps.SessionMismatch
	}
	return sess, nil
}
