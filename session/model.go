package session

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned for unknown and expired sessions.
	ErrNotFound = errors.New("session not found")
	// ErrDuplicateID is returned by Store.Insert when the identifier is already taken.
	ErrDuplicateID = errors.New("session id already exists")
	// ErrIDExhausted is returned by Register when every generated identifier collided.
	ErrIDExhausted = errors.New("session id generation exhausted")
	// ErrInvalidRegistration is returned for registrations missing required fields.
	ErrInvalidRegistration = errors.New("invalid session registration")
	// ErrStoreUnavailable wraps backend transport failures.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// ActiveSession is one logged-in session.
type ActiveSession struct {
	ID        string
	Username  string
	Token     string
	IP        string
	Location  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session has ended at now.
func (s *ActiveSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *ActiveSession) clone() *ActiveSession {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Registration is the input to Registry.Register.
type Registration struct {
	Username  string
	Token     string
	IP        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
