package session

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEncodeDecode(t *testing.T) {
	now := time.Unix(1_700_000_000, 123)
	in := &ActiveSession{
		ID:        "0f8fad5b-d9cb-469f-a165-70867728950e",
		Username:  "alice",
		Token:     strings.Repeat("t", 600),
		IP:        "2001:db8::1",
		Location:  "China|0|Zhejiang|Hangzhou|Telecom",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}

	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != in.ID || out.Username != in.Username || out.Token != in.Token ||
		out.IP != in.IP || out.Location != in.Location ||
		!out.IssuedAt.Equal(in.IssuedAt) || !out.ExpiresAt.Equal(in.ExpiresAt) {
		t.Fatalf("decoded session differs:\n%+v\n%+v", in, out)
	}
}

func TestDecodeRejectsUnsupportedSchemaVersion(t *testing.T) {
	if _, err := Decode([]byte{99}); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestDecodeRejectsTruncatedAndTrailing(t *testing.T) {
	data, err := Encode(&ActiveSession{ID: "id", Username: "u", Token: "t"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for i := 0; i < len(data); i++ {
		if _, err := Decode(data[:i]); err == nil {
			t.Fatalf("expected truncated record of %d bytes to fail", i)
		}
	}
	if _, err := Decode(append(data, 0)); err == nil {
		t.Fatal("expected trailing bytes to fail")
	}
}

func TestEncodeRejectsOversizedFields(t *testing.T) {
	if _, err := Encode(&ActiveSession{Username: strings.Repeat("u", 256)}); err == nil {
		t.Fatal("expected oversized username to fail")
	}
}

func FuzzDecode(f *testing.F) {
	seed, _ := Encode(&ActiveSession{ID: "id", Username: "alice", Token: "tok"})
	f.Add(seed)
	f.Add([]byte{})
	f.Add([]byte{1, 255})
	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := Decode(data)
		if err != nil {
			return
		}
		again, err := Encode(s)
		if err != nil {
			t.Fatalf("re-encode decoded session: %v", err)
		}
		if string(again) != string(data) {
			t.Fatal("decode/encode not stable")
		}
	})
}
