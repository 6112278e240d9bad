package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRedisStoreKeysCarryTTL(t *testing.T) {
	store, mr, _ := newRedisTestStore(t)
	clock := newFakeClock()
	reg, _ := NewRegistry(store, WithClock(clock.Now))
	ctx := context.Background()

	r := registration(clock, "alice", "tok")
	r.ExpiresAt = clock.Now().Add(90 * time.Second)
	id, err := reg.Register(ctx, r)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if ttl := mr.TTL(store.key(id)); ttl != 90*time.Second {
		t.Fatalf("expected record ttl 90s, got %s", ttl)
	}
	if ttl := mr.TTL(store.tokenKey("tok")); ttl != 90*time.Second {
		t.Fatalf("expected token index ttl 90s, got %s", ttl)
	}
	if mr.Exists(store.prefix + ":t:tok") {
		t.Fatal("raw token must not appear in key names")
	}

	mr.FastForward(91 * time.Second)
	if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected record expired by redis, got %v", err)
	}
	list, err := store.ListByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no sessions, got %d", len(list))
	}
	members, _ := mr.Members(store.userKey("alice"))
	if len(members) != 0 {
		t.Fatalf("expected stale user index pruned, got %v", members)
	}
}

func TestRedisStoreIndexSetsExpire(t *testing.T) {
	store, mr, _ := newRedisTestStore(t)
	ctx := context.Background()
	now := time.Now()

	insert := func(id, tok string, ttl time.Duration) {
		t.Helper()
		sess := &ActiveSession{ID: id, Username: "alice", Token: tok, IssuedAt: now, ExpiresAt: now.Add(ttl)}
		if err := store.Insert(ctx, sess, ttl); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	insert("s1", "t1", time.Hour)
	for _, key := range []string{store.userKey("alice"), store.allKey()} {
		if ttl := mr.TTL(key); ttl != time.Hour {
			t.Fatalf("expected %s ttl 1h, got %s", key, ttl)
		}
	}

	insert("s2", "t2", 10*time.Minute)
	if ttl := mr.TTL(store.userKey("alice")); ttl != time.Hour {
		t.Fatalf("shorter session must not shrink the index ttl, got %s", ttl)
	}

	insert("s3", "t3", 2*time.Hour)
	for _, key := range []string{store.userKey("alice"), store.allKey()} {
		if ttl := mr.TTL(key); ttl != 2*time.Hour {
			t.Fatalf("expected %s ttl stretched to 2h, got %s", key, ttl)
		}
	}

	mr.FastForward(2*time.Hour + time.Second)
	if mr.Exists(store.userKey("alice")) || mr.Exists(store.allKey()) {
		t.Fatal("index sets must expire with their last session")
	}
}

func TestRedisStoreInsertIfAbsent(t *testing.T) {
	store, _, _ := newRedisTestStore(t)
	ctx := context.Background()
	now := time.Now()

	sess := &ActiveSession{ID: "sid", Username: "alice", Token: "t1", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := store.Insert(ctx, sess, time.Hour); err != nil {
		t.Fatalf("insert: %v", err)
	}
	other := &ActiveSession{ID: "sid", Username: "bob", Token: "t2", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := store.Insert(ctx, other, time.Hour); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	got, err := store.Get(ctx, "sid")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Username != "alice" {
		t.Fatalf("existing record overwritten: %+v", got)
	}
	if _, err := store.GetByToken(ctx, "t2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rejected insert must not index its token, got %v", err)
	}
}

func TestRedisStoreDeleteIdempotentIndexes(t *testing.T) {
	store, mr, _ := newRedisTestStore(t)
	ctx := context.Background()
	now := time.Now()

	sess := &ActiveSession{ID: "sid", Username: "alice", Token: "t1", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := store.Insert(ctx, sess, time.Hour); err != nil {
		t.Fatalf("insert: %v", err)
	}
	for i, want := range []bool{true, false} {
		existed, err := store.Delete(ctx, "sid")
		if err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
		if existed != want {
			t.Fatalf("delete #%d: existed=%v, want %v", i+1, existed, want)
		}
	}

	for _, key := range []string{store.key("sid"), store.tokenKey("t1")} {
		if mr.Exists(key) {
			t.Fatalf("expected %s removed", key)
		}
	}
	if members, _ := mr.Members(store.userKey("alice")); len(members) != 0 {
		t.Fatalf("expected user index empty, got %v", members)
	}
	count, err := store.Count(ctx, now)
	if err != nil || count != 0 {
		t.Fatalf("expected count 0, got %d (%v)", count, err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr, _ := newRedisTestStore(t)
	mr.Close()
	ctx := context.Background()

	if _, err := store.Get(ctx, "sid"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := store.Ping(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable from ping, got %v", err)
	}
}
