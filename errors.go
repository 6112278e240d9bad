package passport

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials matches every credential failure that must not reveal whether
	// the username exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnknownPrincipal is the audit reason for a username with no account.
	ErrUnknownPrincipal = errors.New("unknown principal")
	// ErrCredentialMismatch is the audit reason for a wrong or blank password.
	ErrCredentialMismatch = errors.New("credential mismatch")
	// ErrAccountLocked is returned when a locked account presents valid-looking input.
	ErrAccountLocked = errors.New("account locked")
	// ErrTokenExpired is returned for tokens at or past their expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for tokens that fail signature, format, or unwrap checks.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrSessionNotFound is returned when a valid token has no live session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInternal marks infrastructure failures during login or logout.
	ErrInternal = errors.New("internal error")
	// ErrEngineNotReady is returned by a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrPrincipalNotFound is returned by PrincipalStore implementations for unknown usernames.
	ErrPrincipalNotFound = errors.New("principal not found")
)

const (
	// MessageInvalidCredentials is the single user-facing message for unknown usernames and
	// wrong passwords.
	MessageInvalidCredentials = "username or password is incorrect"
	// MessageAccountLocked is shown for locked accounts.
	MessageAccountLocked = "account is locked, please contact the administrator"
	// MessageInternal is shown for infrastructure failures.
	MessageInternal = "internal error, please try again later"
	// MessageTokenExpired is shown for expired tokens.
	MessageTokenExpired = "session expired, please sign in again"
	// MessageUnauthorized is shown for missing, invalid, or revoked tokens.
	MessageUnauthorized = "not signed in"
	// MessageSignedIn acknowledges a successful login.
	MessageSignedIn = "authentication succeeded"
	// MessageSignedOut acknowledges a logout.
	MessageSignedOut = "signed out"
)

// VerificationError is returned when a username is unknown or a password does not match.
// Both reasons print the same message; errors.Is distinguishes them.
type VerificationError struct {
	reason error
}

func (e *VerificationError) Error() string {
	return MessageInvalidCredentials
}

// Unwrap exposes ErrInvalidCredentials and the specific reason.
func (e *VerificationError) Unwrap() []error {
	return []error{ErrInvalidCredentials, e.reason}
}

// Reason returns ErrUnknownPrincipal or ErrCredentialMismatch.
func (e *VerificationError) Reason() error {
	return e.reason
}

func unknownPrincipal() error {
	return &VerificationError{reason: ErrUnknownPrincipal}
}

func credentialMismatch() error {
	return &VerificationError{reason: ErrCredentialMismatch}
}

// StageError records which login stage failed on infrastructure. It always matches
// ErrInternal.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("login %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{ErrInternal, e.Err}
}

// Message maps err to the message shown to the caller.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return MessageInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return MessageAccountLocked
	case errors.Is(err, ErrTokenExpired):
		return MessageTokenExpired
	case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrSessionNotFound):
		return MessageUnauthorized
	default:
		return MessageInternal
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownPrincipal):
		return "unknown_principal"
	case errors.Is(err, ErrCredentialMismatch):
		return "credential_mismatch"
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrInternal):
		return "internal_error"
	default:
		return ""
	}
}
