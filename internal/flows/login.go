package flows

import (
	"context"
	"time"
)

// State is a step of the login state machine.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateVerifying       State = "verifying"
	StateIssuing         State = "issuing"
	StateRegistering     State = "registering"
	StateAuthorizing     State = "authorizing"
	StateAuthenticated   State = "authenticated"
	StateRejected        State = "rejected"
)

// LoginSubject is what verification yields for token issuance.
type LoginSubject struct {
	Username     string
	PasswordHash string
}

// LoginToken is a flow-local view of an issued token.
type LoginToken struct {
	Token     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// LoginRegistration is passed to the session registry.
type LoginRegistration struct {
	Username  string
	Token     string
	IP        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// LoginResult is the flow-local login response.
type LoginResult struct {
	Username    string
	Token       LoginToken
	SessionID   string
	Roles       []string
	Permissions []string
}

// LoginMetrics carries metric IDs used by the login flow.
type LoginMetrics struct {
	LoginSuccess    int
	LoginFailure    int
	SessionCreated  int
	InternalFailure int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess string
	LoginFailure string
}

// LoginErrors carries host-level sentinel errors.
type LoginErrors struct {
	EngineNotReady error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	ClientIPFromContext func(context.Context) string

	Verify      func(ctx context.Context, username, password string) (LoginSubject, error)
	Issue       func(LoginSubject) (LoginToken, error)
	Register    func(context.Context, LoginRegistration) (string, error)
	Invalidate  func(context.Context, string) error
	Roles       func(context.Context, string) ([]string, error)
	Permissions func(context.Context, string) ([]string, error)

	// StageFailure converts an infrastructure failure in stage into the error returned to
	// the caller.
	StageFailure func(stage State, err error) error
	// FailureReason names a verification error for audit metadata.
	FailureReason func(error) string

	Transition func(ctx context.Context, from, to State)
	MetricInc  func(int)
	EmitAudit  func(ctx context.Context, event string, success bool, username, sessionID string, err error, metadata func() map[string]string)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin verifies credentials, issues a token, registers the session, and gathers the
// principal's roles and permissions.
func RunLogin(ctx context.Context, username, password string, deps LoginDeps) (*LoginResult, error) {
	if deps.Verify == nil || deps.Issue == nil || deps.Register == nil ||
		deps.Roles == nil || deps.Permissions == nil || deps.StageFailure == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.Transition == nil {
		deps.Transition = func(context.Context, State, State) {}
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.FailureReason == nil {
		deps.FailureReason = func(error) string { return "" }
	}

	state := StateUnauthenticated
	move := func(next State) {
		deps.Transition(ctx, state, next)
		state = next
	}

	move(StateVerifying)
	subject, err := deps.Verify(ctx, username, password)
	if err != nil {
		move(StateRejected)
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, username, "", err, func() map[string]string {
			return map[string]string{"reason": deps.FailureReason(err)}
		})
		return nil, err
	}

	fail := func(stage State, cause error, sessionID string) error {
		out := deps.StageFailure(stage, cause)
		move(StateRejected)
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.MetricInc(deps.Metrics.InternalFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, subject.Username, sessionID, out, func() map[string]string {
			return map[string]string{"stage": string(stage)}
		})
		return out
	}

	move(StateIssuing)
	tok, err := deps.Issue(subject)
	if err != nil {
		return nil, fail(StateIssuing, err, "")
	}

	move(StateRegistering)
	sessionID, err := deps.Register(ctx, LoginRegistration{
		Username:  subject.Username,
		Token:     tok.Token,
		IP:        deps.ClientIPFromContext(ctx),
		IssuedAt:  tok.IssuedAt,
		ExpiresAt: tok.ExpiresAt,
	})
	if err != nil {
		return nil, fail(StateRegistering, err, "")
	}
	deps.MetricInc(deps.Metrics.SessionCreated)

	move(StateAuthorizing)
	roles, err := deps.Roles(ctx, subject.Username)
	if err == nil {
		var perms []string
		perms, err = deps.Permissions(ctx, subject.Username)
		if err == nil {
			move(StateAuthenticated)
			deps.MetricInc(deps.Metrics.LoginSuccess)
			deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, subject.Username, sessionID, nil, nil)
			return &LoginResult{
				Username:    subject.Username,
				Token:       tok,
				SessionID:   sessionID,
				Roles:       roles,
				Permissions: perms,
			}, nil
		}
	}

	// A login that fails after registration removes its session.
	if deps.Invalidate != nil {
		_ = deps.Invalidate(ctx, sessionID)
	}
	return nil, fail(StateAuthorizing, err, sessionID)
}
