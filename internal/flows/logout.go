package flows

import (
	"context"
	"errors"
)

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	LookupToken func(context.Context, string) (string, error)
	// Invalidate removes a session and reports whether it existed.
	Invalidate func(context.Context, string) (bool, error)
	NotFound   error

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, username, sessionID string, err error, metadata func() map[string]string)

	LogoutMetric int
	LogoutEvent  string
}

// LogoutResult reports which session, if any, a logout removed.
type LogoutResult struct {
	SessionID string
	Removed   bool
}

// RunLogoutByToken removes the session registered for token. A token without a live
// session is not an error.
func RunLogoutByToken(ctx context.Context, token string, deps LogoutDeps) (LogoutResult, error) {
	id, err := deps.LookupToken(ctx, token)
	if err != nil {
		if deps.NotFound != nil && errors.Is(err, deps.NotFound) {
			return LogoutResult{}, nil
		}
		return LogoutResult{}, err
	}
	return RunLogoutSession(ctx, id, deps)
}

// RunLogoutSession removes the session with id. Only a session that existed is counted
// and audited.
func RunLogoutSession(ctx context.Context, id string, deps LogoutDeps) (LogoutResult, error) {
	if id == "" {
		return LogoutResult{}, nil
	}
	removed, err := deps.Invalidate(ctx, id)
	if err != nil {
		return LogoutResult{SessionID: id}, err
	}
	if !removed {
		return LogoutResult{SessionID: id}, nil
	}
	if deps.MetricInc != nil {
		deps.MetricInc(deps.LogoutMetric)
	}
	if deps.EmitAudit != nil {
		deps.EmitAudit(ctx, deps.LogoutEvent, true, "", id, nil, nil)
	}
	return LogoutResult{SessionID: id, Removed: true}, nil
}
