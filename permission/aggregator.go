package permission

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Directory is the read side of role and permission assignments.
type Directory interface {
	RolesOf(ctx context.Context, username string) ([]string, error)
	PermissionsOf(ctx context.Context, username string) ([]string, error)
}

// Aggregator normalizes Directory reads.
type Aggregator struct {
	dir Directory
}

// NewAggregator returns an Aggregator over dir.
func NewAggregator(dir Directory) (*Aggregator, error) {
	if dir == nil {
		return nil, errors.New("permission directory is nil")
	}
	return &Aggregator{dir: dir}, nil
}

// RolesOf returns the sorted, de-duplicated role names of username.
func (a *Aggregator) RolesOf(ctx context.Context, username string) ([]string, error) {
	roles, err := a.dir.RolesOf(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("roles of %q: %w", username, err)
	}
	return Normalize(roles), nil
}

// PermissionsOf returns the sorted, de-duplicated permission names of username.
func (a *Aggregator) PermissionsOf(ctx context.Context, username string) ([]string, error) {
	perms, err := a.dir.PermissionsOf(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("permissions of %q: %w", username, err)
	}
	return Normalize(perms), nil
}

// Normalize trims, drops blanks, de-duplicates, and sorts names. The result is never nil.
func Normalize(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// StaticDirectory is an in-memory Directory: user to role assignments resolved through a
// RoleManager.
type StaticDirectory struct {
	roles *RoleManager

	mu    sync.RWMutex
	users map[string][]string
}

// NewStaticDirectory returns an empty StaticDirectory.
func NewStaticDirectory(roles *RoleManager) *StaticDirectory {
	return &StaticDirectory{roles: roles, users: make(map[string][]string)}
}

// Assign grants roles to username. Every role must be registered with the RoleManager.
func (d *StaticDirectory) Assign(username string, roles ...string) error {
	for _, r := range roles {
		if !d.roles.HasRole(r) {
			return fmt.Errorf("role not registered: %s", r)
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[username] = append(d.users[username], roles...)
	return nil
}

// RolesOf returns the roles assigned to username.
func (d *StaticDirectory) RolesOf(_ context.Context, username string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.users[username]...), nil
}

// PermissionsOf returns the permissions granted by the roles of username.
func (d *StaticDirectory) PermissionsOf(ctx context.Context, username string) ([]string, error) {
	roles, _ := d.RolesOf(ctx, username)
	return d.roles.Permissions(roles), nil
}
