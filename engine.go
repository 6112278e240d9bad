package passport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/passport/internal/audit"
	"github.com/MrEthical07/passport/internal/flows"
	"github.com/MrEthical07/passport/password"
	"github.com/MrEthical07/passport/permission"
	"github.com/MrEthical07/passport/session"
	"github.com/MrEthical07/passport/token"
)

// Engine runs logins, logouts and token checks. Build one with New().Build(); it is safe
// for concurrent use.
type Engine struct {
	config     Config
	logger     *slog.Logger
	principals PrincipalStore
	hasher     password.Hasher
	decoy      decoyCredential
	issuer     *token.Issuer
	registry   *session.Registry
	aggregator *permission.Aggregator
	audit      *audit.Dispatcher
	metrics    *Metrics
	now        func() time.Time
	stopReaper func()
}

// Close stops background work and flushes queued audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	stopIfSet(e.stopReaper)
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// TokenTTL returns the lifetime of issued tokens.
func (e *Engine) TokenTTL() time.Duration {
	if e == nil || e.issuer == nil {
		return 0
	}
	return e.issuer.TTL()
}

// Login authenticates username and password and opens a session. The caller's IP is read
// from ctx (see WithClientIP).
func (e *Engine) Login(ctx context.Context, username, pass string) (*LoginResult, error) {
	if e == nil || e.issuer == nil || e.registry == nil || e.aggregator == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricLoginLatency, time.Since(start)) }()
	}

	var principal *Principal
	res, err := flows.RunLogin(ctx, username, pass, flows.LoginDeps{
		ClientIPFromContext: ClientIPFromContext,
		Verify: func(ctx context.Context, username, pass string) (flows.LoginSubject, error) {
			p, err := e.Verify(ctx, username, pass)
			if err != nil {
				return flows.LoginSubject{}, err
			}
			principal = p
			return flows.LoginSubject{Username: p.Username, PasswordHash: p.PasswordHash}, nil
		},
		Issue: func(subject flows.LoginSubject) (flows.LoginToken, error) {
			issued, err := e.issuer.Issue(token.Subject{
				Username:     subject.Username,
				PasswordHash: subject.PasswordHash,
			})
			if err != nil {
				return flows.LoginToken{}, err
			}
			return flows.LoginToken{
				Token:     issued.Token,
				ID:        issued.ID,
				IssuedAt:  issued.IssuedAt,
				ExpiresAt: issued.ExpiresAt,
			}, nil
		},
		Register: func(ctx context.Context, reg flows.LoginRegistration) (string, error) {
			return e.registry.Register(ctx, session.Registration{
				Username:  reg.Username,
				Token:     reg.Token,
				IP:        reg.IP,
				IssuedAt:  reg.IssuedAt,
				ExpiresAt: reg.ExpiresAt,
			})
		},
		Invalidate: func(ctx context.Context, id string) error {
			_, err := e.registry.Invalidate(ctx, id)
			return err
		},
		Roles:       e.aggregator.RolesOf,
		Permissions: e.aggregator.PermissionsOf,
		StageFailure: func(stage flows.State, err error) error {
			e.logger.ErrorContext(ctx, "login stage failed", "stage", string(stage), "error", err)
			return &StageError{Stage: string(stage), Err: err}
		},
		FailureReason: failureReason,
		Transition: func(ctx context.Context, from, to flows.State) {
			e.logger.DebugContext(ctx, "login transition", "from", string(from), "to", string(to))
		},
		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,
		Metrics: flows.LoginMetrics{
			LoginSuccess:    int(MetricLoginSuccess),
			LoginFailure:    int(MetricLoginFailure),
			SessionCreated:  int(MetricSessionCreated),
			InternalFailure: int(MetricInternalFailure),
		},
		Events: flows.LoginEvents{
			LoginSuccess: auditEventLoginSuccess,
			LoginFailure: auditEventLoginFailure,
		},
		Errors: flows.LoginErrors{
			EngineNotReady: ErrEngineNotReady,
		},
	})
	if err != nil {
		if !errors.Is(err, ErrInternal) {
			e.logger.InfoContext(ctx, "login rejected", "reason", failureReason(err))
		}
		return nil, err
	}

	return &LoginResult{
		Token:       res.Token.Token,
		Expire:      res.Token.ExpiresAt.Format(ExpireLayout),
		ExpireAt:    res.Token.ExpiresAt,
		SessionID:   res.SessionID,
		Roles:       res.Roles,
		Permissions: res.Permissions,
		User:        profileOf(principal),
	}, nil
}

// Logout ends the session that token was issued for. Tokens without a live session are
// ignored.
func (e *Engine) Logout(ctx context.Context, tok string) error {
	if e == nil || e.registry == nil {
		return ErrEngineNotReady
	}
	_, err := flows.RunLogoutByToken(ctx, tok, e.logoutDeps())
	return e.logoutError(ctx, err)
}

// LogoutSession ends the session with id. Unknown ids are ignored.
func (e *Engine) LogoutSession(ctx context.Context, id string) error {
	if e == nil || e.registry == nil {
		return ErrEngineNotReady
	}
	_, err := flows.RunLogoutSession(ctx, id, e.logoutDeps())
	return e.logoutError(ctx, err)
}

func (e *Engine) logoutDeps() flows.LogoutDeps {
	return flows.LogoutDeps{
		LookupToken: func(ctx context.Context, tok string) (string, error) {
			sess, err := e.registry.LookupToken(ctx, tok)
			if err != nil {
				return "", err
			}
			return sess.ID, nil
		},
		Invalidate: func(ctx context.Context, id string) (bool, error) {
			removed, err := e.registry.Invalidate(ctx, id)
			if removed {
				e.metricInc(MetricSessionInvalidated)
			}
			return removed, err
		},
		NotFound:     session.ErrNotFound,
		MetricInc:    func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit:    e.emitAudit,
		LogoutMetric: int(MetricLogout),
		LogoutEvent:  auditEventLogoutSession,
	}
}

func (e *Engine) logoutError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	e.metricInc(MetricInternalFailure)
	e.logger.ErrorContext(ctx, "logout failed", "error", err)
	return fmt.Errorf("%w: logout: %v", ErrInternal, err)
}

// Authenticate validates tok and returns the identity of its live session.
func (e *Engine) Authenticate(ctx context.Context, tok string) (*Identity, error) {
	if e == nil || e.issuer == nil || e.registry == nil {
		return nil, ErrEngineNotReady
	}

	sess, err := flows.RunAuthenticate(ctx, tok, flows.AuthenticateDeps{
		Validate: func(tok string) (string, error) {
			claims, err := e.issuer.Validate(tok)
			switch {
			case err == nil:
				return claims.Username, nil
			case errors.Is(err, token.ErrTokenExpired):
				e.metricInc(MetricTokenExpired)
				return "", fmt.Errorf("%w: %v", ErrTokenExpired, err)
			default:
				return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
			}
		},
		LookupToken: func(ctx context.Context, tok string) (flows.AuthenticatedSession, error) {
			s, err := e.registry.LookupToken(ctx, tok)
			if err != nil {
				if errors.Is(err, session.ErrNotFound) {
					return flows.AuthenticatedSession{}, ErrSessionNotFound
				}
				e.metricInc(MetricInternalFailure)
				e.logger.ErrorContext(ctx, "session lookup failed", "error", err)
				return flows.AuthenticatedSession{}, fmt.Errorf("%w: session lookup: %v", ErrInternal, err)
			}
			return flows.AuthenticatedSession{
				Username:  s.Username,
				SessionID: s.ID,
				IP:        s.IP,
				Location:  s.Location,
				IssuedAt:  s.IssuedAt,
				ExpiresAt: s.ExpiresAt,
			}, nil
		},
		SessionMismatch: ErrSessionNotFound,
	})
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		if !errors.Is(err, ErrInternal) {
			e.emitAudit(ctx, auditEventAuthenticateError, false, "", "", err, nil)
		}
		return nil, err
	}

	e.metricInc(MetricAuthenticateSuccess)
	return &Identity{
		Username:  sess.Username,
		SessionID: sess.SessionID,
		IP:        sess.IP,
		Location:  sess.Location,
		IssuedAt:  sess.IssuedAt,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// Authorization returns the roles and permissions of username.
func (e *Engine) Authorization(ctx context.Context, username string) (AuthorizationView, error) {
	if e == nil || e.aggregator == nil {
		return AuthorizationView{}, ErrEngineNotReady
	}
	username = normalizeUsername(username)

	roles, err := e.aggregator.RolesOf(ctx, username)
	if err != nil {
		return AuthorizationView{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	perms, err := e.aggregator.PermissionsOf(ctx, username)
	if err != nil {
		return AuthorizationView{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return AuthorizationView{Roles: roles, Permissions: perms}, nil
}

// ActiveSessions lists the live sessions of username, oldest first.
func (e *Engine) ActiveSessions(ctx context.Context, username string) ([]SessionInfo, error) {
	if e == nil || e.registry == nil {
		return nil, ErrEngineNotReady
	}

	sessions, err := e.registry.ListByUser(ctx, normalizeUsername(username))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	out := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionInfo{
			ID:        s.ID,
			Username:  s.Username,
			IP:        s.IP,
			Location:  s.Location,
			IssuedAt:  s.IssuedAt,
			ExpiresAt: s.ExpiresAt,
		})
	}
	return out, nil
}

// SessionCount returns the number of live sessions across all users.
func (e *Engine) SessionCount(ctx context.Context) (int, error) {
	if e == nil || e.registry == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.registry.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return n, nil
}
