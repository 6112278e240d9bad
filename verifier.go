package passport

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/passport/password"
)

// Verify checks username and password against the principal store.
//
// An unknown username and a wrong password both fail with a *VerificationError carrying the
// same message. A locked account fails with ErrAccountLocked once the username is known to
// exist, before the password is examined. Store failures fail with ErrInternal.
func (e *Engine) Verify(ctx context.Context, username, pass string) (*Principal, error) {
	if e == nil || e.principals == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	username = normalizeUsername(username)
	if username == "" || pass == "" {
		e.decoy.burn(e.hasher, pass)
		e.metricInc(MetricLoginCredentialMismatch)
		return nil, credentialMismatch()
	}

	p, err := e.principals.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			e.decoy.burn(e.hasher, pass)
			e.metricInc(MetricLoginUnknownPrincipal)
			return nil, unknownPrincipal()
		}
		e.metricInc(MetricInternalFailure)
		e.logger.ErrorContext(ctx, "principal lookup failed", "error", err)
		return nil, fmt.Errorf("%w: principal lookup: %v", ErrInternal, err)
	}

	if p.Locked() {
		e.metricInc(MetricLoginLocked)
		return nil, ErrAccountLocked
	}

	ok, err := e.hasher.Verify(p.Salt, pass, p.PasswordHash)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) || errors.Is(err, password.ErrEmptyPassword) {
			e.metricInc(MetricLoginCredentialMismatch)
			return nil, credentialMismatch()
		}
		e.metricInc(MetricInternalFailure)
		e.logger.ErrorContext(ctx, "password verification failed", "username", username, "error", err)
		return nil, fmt.Errorf("%w: password verify: %v", ErrInternal, err)
	}
	if !ok {
		e.metricInc(MetricLoginCredentialMismatch)
		return nil, credentialMismatch()
	}

	now := e.now()
	if err := e.principals.TouchLastLogin(ctx, p.Username, now); err != nil {
		e.logger.WarnContext(ctx, "last login update failed", "username", p.Username, "error", err)
	} else {
		p.LastLoginAt = now
	}

	return p, nil
}

const decoyPassword = "passport-decoy-password"

// decoyCredential is hashed against when there is no real principal to check, so a miss
// costs about as much as a wrong password.
type decoyCredential struct {
	salt string
	hash string
}

func newDecoyCredential(h password.Hasher) (decoyCredential, error) {
	salt, err := password.NewSalt(0)
	if err != nil {
		return decoyCredential{}, err
	}
	hash, err := h.Hash(salt, decoyPassword)
	if err != nil {
		return decoyCredential{}, err
	}
	return decoyCredential{salt: salt, hash: hash}, nil
}

func (d decoyCredential) burn(h password.Hasher, pass string) {
	if d.hash == "" {
		return
	}
	if pass == "" {
		pass = decoyPassword + "!"
	}
	_, _ = h.Verify(d.salt, pass, d.hash)
}
