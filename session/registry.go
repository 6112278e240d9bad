package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/passport/geo"
)

const defaultIDAttempts = 4

// Registry is the process-wide view of active sessions.
//
// Every read re-validates expiry against the registry clock; an expired record is removed
// and reported as ErrNotFound. Registry is safe for concurrent use.
type Registry struct {
	store      Store
	locator    geo.Locator
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
	idAttempts int
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithLocator sets the geolocation lookup used by Register.
func WithLocator(l geo.Locator) RegistryOption {
	return func(r *Registry) { r.locator = l }
}

// WithLogger sets the logger for best-effort failures.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator replaces the uuid v4 generator.
func WithIDGenerator(gen func() string) RegistryOption {
	return func(r *Registry) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// WithIDAttempts bounds how many identifiers Register tries before giving up.
func WithIDAttempts(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.idAttempts = n
		}
	}
}

// NewRegistry returns a Registry backed by store.
func NewRegistry(store Store, opts ...RegistryOption) (*Registry, error) {
	if store == nil {
		return nil, errors.New("session store is nil")
	}
	r := &Registry{
		store:      store,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
		newID:      uuid.NewString,
		idAttempts: defaultIDAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "session")
	return r, nil
}

// Register records a new session and returns its identifier.
func (r *Registry) Register(ctx context.Context, reg Registration) (string, error) {
	if reg.Username == "" || reg.Token == "" {
		return "", ErrInvalidRegistration
	}
	now := r.now()
	if !reg.ExpiresAt.After(now) {
		return "", fmt.Errorf("%w: already expired", ErrInvalidRegistration)
	}
	issuedAt := reg.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = now
	}

	sess := &ActiveSession{
		Username:  reg.Username,
		Token:     reg.Token,
		IP:        reg.IP,
		Location:  r.locate(ctx, reg.IP),
		IssuedAt:  issuedAt,
		ExpiresAt: reg.ExpiresAt,
	}

	for attempt := 0; attempt < r.idAttempts; attempt++ {
		sess.ID = r.newID()
		err := r.store.Insert(ctx, sess, reg.ExpiresAt.Sub(now))
		if err == nil {
			return sess.ID, nil
		}
		if !errors.Is(err, ErrDuplicateID) {
			return "", err
		}
		r.logger.Warn("session id collision", "attempt", attempt+1)
	}
	return "", ErrIDExhausted
}

// Invalidate removes the session with id and reports whether it existed. Unknown ids
// are a no-op.
func (r *Registry) Invalidate(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	return r.store.Delete(ctx, id)
}

// Lookup returns the live session with id.
func (r *Registry) Lookup(ctx context.Context, id string) (*ActiveSession, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	sess, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.live(ctx, sess)
}

// LookupToken returns the live session issued with token.
func (r *Registry) LookupToken(ctx context.Context, token string) (*ActiveSession, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	sess, err := r.store.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return r.live(ctx, sess)
}

// ListByUser returns the live sessions of username, oldest first.
func (r *Registry) ListByUser(ctx context.Context, username string) ([]*ActiveSession, error) {
	all, err := r.store.ListByUser(ctx, username)
	if err != nil {
		return nil, err
	}
	now := r.now()
	out := make([]*ActiveSession, 0, len(all))
	for _, sess := range all {
		if sess.Expired(now) {
			r.prune(ctx, sess.ID)
			continue
		}
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].IssuedAt.Before(out[j].IssuedAt)
	})
	return out, nil
}

// Count returns the number of live sessions.
func (r *Registry) Count(ctx context.Context) (int, error) {
	return r.store.Count(ctx, r.now())
}

func (r *Registry) live(ctx context.Context, sess *ActiveSession) (*ActiveSession, error) {
	if sess.Expired(r.now()) {
		r.prune(ctx, sess.ID)
		return nil, ErrNotFound
	}
	return sess, nil
}

func (r *Registry) prune(ctx context.Context, id string) {
	if _, err := r.store.Delete(ctx, id); err != nil {
		r.logger.Warn("prune expired session failed", "error", err)
	}
}

func (r *Registry) locate(ctx context.Context, ip string) string {
	ip = strings.TrimSpace(ip)
	if r.locator == nil || ip == "" {
		return ""
	}
	loc, err := r.locator.Locate(ctx, ip)
	if err != nil {
		r.logger.Warn("geolocation lookup failed", "ip", ip, "error", err)
		return ""
	}
	return loc
}
