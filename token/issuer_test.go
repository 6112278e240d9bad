package token

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/passport/jwt"
	"github.com/MrEthical07/passport/wrap"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newTestIssuer(t *testing.T, ttl time.Duration) (*Issuer, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}

	signer, err := jwt.NewManager(jwt.Config{
		Secret: []byte("sign-secret-sign-secret-sign-sec"),
		Issuer: "passport",
	}, jwt.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	sealer, err := wrap.NewSealer([]byte("wrap-secret-wrap-secret-wrap-sec"))
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	issuer, err := NewIssuer(signer, sealer, ttl, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return issuer, clock
}

func TestIssueAndValidate(t *testing.T) {
	issuer, clock := newTestIssuer(t, time.Hour)

	issued, err := issuer.Issue(Subject{Username: "alice", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if issued.Token == "" || issued.ID == "" {
		t.Fatalf("unexpected issued token: %+v", issued)
	}
	if !issued.ExpiresAt.Equal(clock.Now().Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", issued.ExpiresAt)
	}
	if strings.Count(issued.Token, ".") != 0 {
		t.Fatalf("outer token should not expose the inner JWS: %q", issued.Token)
	}

	claims, err := issuer.Validate(issued.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Username != "alice" || claims.ID != issued.ID || claims.Proof != Proof("hash") {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.ExpiresAt.Equal(issued.ExpiresAt) {
		t.Fatalf("claims expiry %v != issued %v", claims.ExpiresAt, issued.ExpiresAt)
	}
}

func TestValidateExpiryBoundary(t *testing.T) {
	const ttl = 30 * time.Second
	issuer, clock := newTestIssuer(t, ttl)
	start := clock.Now()

	issued, err := issuer.Issue(Subject{Username: "alice", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.Set(start.Add(ttl - time.Second))
	if _, err := issuer.Validate(issued.Token); err != nil {
		t.Fatalf("expected token valid one second before expiry: %v", err)
	}

	clock.Set(start.Add(ttl))
	if _, err := issuer.Validate(issued.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at expiry, got %v", err)
	}

	clock.Set(start.Add(ttl + time.Second))
	if _, err := issuer.Validate(issued.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired after expiry, got %v", err)
	}
}

func TestIssueSubSecondClockKeepsFullLifetime(t *testing.T) {
	issuer, clock := newTestIssuer(t, time.Second)
	start := time.Date(2026, 3, 1, 9, 30, 0, 999_000_000, time.UTC)
	clock.Set(start)

	issued, err := issuer.Issue(Subject{Username: "alice", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !issued.IssuedAt.Equal(start) {
		t.Fatalf("issued at %v, want %v", issued.IssuedAt, start)
	}
	if lifetime := issued.ExpiresAt.Sub(start); lifetime < time.Second {
		t.Fatalf("lifetime %v shorter than ttl", lifetime)
	}
	if issued.ExpiresAt.Nanosecond() != 0 {
		t.Fatalf("expiry %v not on a whole second", issued.ExpiresAt)
	}

	clock.Set(start.Add(2 * time.Millisecond))
	if _, err := issuer.Validate(issued.Token); err != nil {
		t.Fatalf("expected token valid 2ms after issue: %v", err)
	}

	clock.Set(issued.ExpiresAt)
	if _, err := issuer.Validate(issued.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at expiry, got %v", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	issuer, _ := newTestIssuer(t, time.Minute)
	for _, in := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := issuer.Validate(in); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("expected ErrTokenInvalid for %q, got %v", in, err)
		}
	}
}

func TestValidateRejectsOtherIssuerTokens(t *testing.T) {
	issuer, _ := newTestIssuer(t, time.Minute)

	signer, _ := jwt.NewManager(jwt.Config{Secret: []byte("another-secret-another-secret-an")})
	sealer, _ := wrap.NewSealer([]byte("wrap-secret-wrap-secret-wrap-sec"))
	other, err := NewIssuer(signer, sealer, time.Minute)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	issued, err := other.Issue(Subject{Username: "alice"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := issuer.Validate(issued.Token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestIssueDistinctTokens(t *testing.T) {
	issuer, _ := newTestIssuer(t, time.Minute)
	a, _ := issuer.Issue(Subject{Username: "alice"})
	b, _ := issuer.Issue(Subject{Username: "alice"})
	if a.Token == b.Token || a.ID == b.ID {
		t.Fatal("two logins produced the same token")
	}
}

func TestNewIssuerValidation(t *testing.T) {
	signer, _ := jwt.NewManager(jwt.Config{Secret: []byte("sign-secret-sign-secret-sign-sec")})
	sealer, _ := wrap.NewSealer([]byte("wrap-secret-wrap-secret-wrap-sec"))

	if _, err := NewIssuer(nil, sealer, time.Minute); err == nil {
		t.Fatal("expected nil signer to fail")
	}
	if _, err := NewIssuer(signer, nil, time.Minute); err == nil {
		t.Fatal("expected nil wrapper to fail")
	}
	if _, err := NewIssuer(signer, sealer, 500*time.Millisecond); err == nil {
		t.Fatal("expected sub-second ttl to fail")
	}

	issuer, err := NewIssuer(signer, sealer, 90*time.Second+300*time.Millisecond)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	if issuer.TTL() != 90*time.Second {
		t.Fatalf("expected ttl truncated to whole seconds, got %s", issuer.TTL())
	}
}

func TestProof(t *testing.T) {
	if Proof("") != "" {
		t.Fatal("expected empty proof for empty hash")
	}
	if Proof("a") == Proof("b") {
		t.Fatal("distinct hashes produced the same proof")
	}
	if strings.Contains(Proof("secret-hash"), "secret") {
		t.Fatal("proof leaks the hash")
	}
}
