package permission

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestMask(t *testing.T) {
	m := NewMask(128)
	m.Set(0)
	m.Set(70)
	m.Set(127)
	m.Set(128)
	m.Set(-1)

	if !m.Has(0) || !m.Has(70) || !m.Has(127) || m.Has(1) || m.Has(128) {
		t.Fatalf("unexpected mask bits %v", m.Bits())
	}
	if got := m.Bits(); !reflect.DeepEqual(got, []int{0, 70, 127}) {
		t.Fatalf("unexpected bits %v", got)
	}
	m.Clear(70)
	if m.Has(70) || m.Count() != 2 {
		t.Fatalf("clear failed: %v", m.Bits())
	}

	other := NewMask(128)
	other.Set(5)
	c := m.Clone()
	c.Or(other)
	if !c.Has(5) || m.Has(5) {
		t.Fatal("clone must be independent of the original")
	}
}

func TestRegistry(t *testing.T) {
	if _, err := NewRegistry(100); err == nil {
		t.Fatal("expected invalid width to fail")
	}

	r, err := NewRegistry(64)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	bit, err := r.Register("app:view")
	if err != nil || bit != 0 {
		t.Fatalf("register: bit=%d err=%v", bit, err)
	}
	if _, err := r.Register("app:view"); err == nil {
		t.Fatal("expected duplicate to fail")
	}
	if _, err := r.Register(""); err == nil {
		t.Fatal("expected empty name to fail")
	}
	r.Freeze()
	if _, err := r.Register("app:edit"); err == nil {
		t.Fatal("expected frozen registry to reject registration")
	}
	if name, ok := r.Name(0); !ok || name != "app:view" {
		t.Fatalf("unexpected name %q", name)
	}
}

func TestRegistryLimit(t *testing.T) {
	r, _ := NewRegistry(64)
	for i := 0; i < 64; i++ {
		if _, err := r.Register(string(rune('A'+i%26)) + string(rune('a'+i/26))); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}
	if _, err := r.Register("overflow"); err == nil {
		t.Fatal("expected limit to be enforced")
	}
}

func newTestRoles(t *testing.T) *RoleManager {
	t.Helper()
	r, _ := NewRegistry(64)
	for _, p := range []string{"app:view", "app:create", "app:delete", "user:view"} {
		if _, err := r.Register(p); err != nil {
			t.Fatalf("register %s: %v", p, err)
		}
	}
	r.Freeze()

	rm := NewRoleManager(r)
	if err := rm.RegisterRole("admin", []string{"app:view", "app:create", "app:delete", "user:view"}); err != nil {
		t.Fatalf("register admin: %v", err)
	}
	if err := rm.RegisterRole("developer", []string{"app:view", "app:create"}); err != nil {
		t.Fatalf("register developer: %v", err)
	}
	if err := rm.RegisterRole("empty", nil); err != nil {
		t.Fatalf("register empty: %v", err)
	}
	rm.Freeze()
	return rm
}

func TestRoleManager(t *testing.T) {
	rm := newTestRoles(t)

	if err := rm.RegisterRole("late", nil); err == nil {
		t.Fatal("expected frozen manager to reject roles")
	}
	got := rm.Permissions([]string{"developer", "unknown"})
	if !reflect.DeepEqual(got, []string{"app:view", "app:create"}) {
		t.Fatalf("unexpected permissions %v", got)
	}
	if got := rm.Permissions(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil permissions, got %#v", got)
	}

	r, _ := NewRegistry(64)
	if err := NewRoleManager(r).RegisterRole("bad", []string{"missing"}); err == nil {
		t.Fatal("expected unregistered permission to fail")
	}
}

func TestAggregatorStaticDirectory(t *testing.T) {
	dir := NewStaticDirectory(newTestRoles(t))
	if err := dir.Assign("alice", "developer", "admin", "developer"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := dir.Assign("bob", "empty"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := dir.Assign("carol", "nope"); err == nil {
		t.Fatal("expected unknown role to fail")
	}

	agg, err := NewAggregator(dir)
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}
	ctx := context.Background()

	roles, err := agg.RolesOf(ctx, "alice")
	if err != nil || !reflect.DeepEqual(roles, []string{"admin", "developer"}) {
		t.Fatalf("unexpected roles %v (%v)", roles, err)
	}
	perms, err := agg.PermissionsOf(ctx, "alice")
	if err != nil || !reflect.DeepEqual(perms, []string{"app:create", "app:delete", "app:view", "user:view"}) {
		t.Fatalf("unexpected permissions %v (%v)", perms, err)
	}

	for _, user := range []string{"bob", "nobody"} {
		perms, err := agg.PermissionsOf(ctx, user)
		if err != nil || perms == nil || len(perms) != 0 {
			t.Fatalf("%s: expected empty non-nil permissions, got %#v (%v)", user, perms, err)
		}
	}
	roles, err = agg.RolesOf(ctx, "nobody")
	if err != nil || roles == nil || len(roles) != 0 {
		t.Fatalf("expected empty non-nil roles, got %#v (%v)", roles, err)
	}
}

type failingDirectory struct{}

var errDirectory = errors.New("directory down")

func (failingDirectory) RolesOf(context.Context, string) ([]string, error) {
	return nil, errDirectory
}

func (failingDirectory) PermissionsOf(context.Context, string) ([]string, error) {
	return nil, errDirectory
}

func TestAggregatorPropagatesDirectoryErrors(t *testing.T) {
	agg, _ := NewAggregator(failingDirectory{})
	if _, err := agg.RolesOf(context.Background(), "alice"); !errors.Is(err, errDirectory) {
		t.Fatalf("expected directory error, got %v", err)
	}
	if _, err := NewAggregator(nil); err == nil {
		t.Fatal("expected nil directory to fail")
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize([]string{" b", "a", "", "b", "a "})
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected normalization %v", got)
	}
}
