package password

import (
	"errors"
	"strings"
	"testing"
)

func TestSHA256HashKnownVector(t *testing.T) {
	hasher := NewSHA256(0)

	// sha256("abc")
	got, err := hasher.Hash("a", "bc")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("unexpected digest: %s", got)
	}
}

func TestSHA256Verify(t *testing.T) {
	hasher := NewSHA256(0)

	hash, err := hasher.Hash("salt", "streamx")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := hasher.Verify("salt", "streamx", strings.ToUpper(hash))
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}

	ok, err = hasher.Verify("salt", "wrong", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}

	if _, err := hasher.Verify("salt", "streamx", "abc"); err == nil {
		t.Fatal("expected malformed digest to fail")
	}
}

func TestNewSelectsAlgorithm(t *testing.T) {
	h, err := New("", fastConfig())
	if err != nil {
		t.Fatalf("New default error: %v", err)
	}
	if h.Algorithm() != AlgorithmArgon2ID {
		t.Fatalf("expected argon2id default, got %s", h.Algorithm())
	}

	h, err = New("SHA256", Config{})
	if err != nil {
		t.Fatalf("New sha256 error: %v", err)
	}
	if h.Algorithm() != AlgorithmSHA256 {
		t.Fatalf("expected sha256, got %s", h.Algorithm())
	}

	if _, err := New("md5", Config{}); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatalf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}

func TestNewSaltIsRandom(t *testing.T) {
	a, err := NewSalt(0)
	if err != nil {
		t.Fatalf("NewSalt error: %v", err)
	}
	b, err := NewSalt(0)
	if err != nil {
		t.Fatalf("NewSalt error: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct salts")
	}
	if len(a) != 22 {
		t.Fatalf("expected 22 base64url chars for 16 bytes, got %d", len(a))
	}
}
