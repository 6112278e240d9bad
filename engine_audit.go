package passport

import (
	"context"
	"errors"

	"github.com/MrEthical07/passport/internal/audit"
)

const (
	auditEventLoginSuccess      = string(audit.LoginSuccess)
	auditEventLoginFailure      = string(audit.LoginFailure)
	auditEventLogoutSession     = string(audit.LogoutSession)
	auditEventAuthenticateError = string(audit.AuthenticateFailure)
)

// AuditErrorCode is the stable error label recorded in audit events.
type AuditErrorCode string

const (
	auditErrUnknownPrincipal   AuditErrorCode = "unknown_principal"
	auditErrCredentialMismatch AuditErrorCode = "credential_mismatch"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	username string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := audit.Event{
		EventType: eventType,
		Username:  username,
		SessionID: sessionID,
		IP:        ClientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnknownPrincipal):
		return auditErrUnknownPrincipal
	case errors.Is(err, ErrCredentialMismatch):
		return auditErrCredentialMismatch
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	default:
		return auditErrInternal
	}
}
