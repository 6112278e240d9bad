package password

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// AlgorithmArgon2ID selects [Argon2].
	AlgorithmArgon2ID = "argon2id"
	// AlgorithmSHA256 selects [SHA256].
	AlgorithmSHA256 = "sha256"

	// DefaultMaxPasswordBytes bounds the plaintext accepted by Hash and Verify.
	DefaultMaxPasswordBytes = 1024
	// DefaultSaltBytes is the amount of entropy NewSalt draws.
	DefaultSaltBytes = 16
)

var (
	// ErrEmptyPassword is returned when hashing an empty plaintext.
	ErrEmptyPassword = errors.New("password empty")
	// ErrEmptySalt is returned when a salt is required but missing.
	ErrEmptySalt = errors.New("salt empty")
	// ErrPasswordTooLong is returned when the plaintext exceeds the configured bound.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrUnsupportedAlgorithm is returned by New for unknown scheme names.
	ErrUnsupportedAlgorithm = errors.New("unsupported password algorithm")
)

// Hasher computes and checks salted password hashes.
//
// Implementations are immutable after construction and safe for concurrent use.
type Hasher interface {
	Algorithm() string
	Hash(salt, password string) (string, error)
	Verify(salt, password, encoded string) (bool, error)
}

// New returns the Hasher for algorithm configured with cfg. An empty algorithm selects
// Argon2id.
func New(algorithm string, cfg Config) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", AlgorithmArgon2ID:
		return NewArgon2(cfg)
	case AlgorithmSHA256:
		return NewSHA256(cfg.MaxPasswordBytes), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
}

// NewSalt returns n random bytes encoded as unpadded base64url, suitable for storing in a
// principal's salt column. n <= 0 uses DefaultSaltBytes.
func NewSalt(n int) (string, error) {
	if n <= 0 {
		n = DefaultSaltBytes
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func checkInput(salt, password string, maxBytes int) error {
	if salt == "" {
		return ErrEmptySalt
	}
	if password == "" {
		return ErrEmptyPassword
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPasswordBytes
	}
	if len(password) > maxBytes {
		return ErrPasswordTooLong
	}
	return nil
}
