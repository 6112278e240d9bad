package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

// SHA256 is the legacy salted digest scheme: lowercase hex of sha256(salt || password).
// It exists to verify hashes written by older console deployments; new principals should
// be provisioned with [Argon2].
type SHA256 struct {
	maxBytes int
}

// NewSHA256 returns the legacy hasher. maxBytes <= 0 uses DefaultMaxPasswordBytes.
func NewSHA256(maxBytes int) *SHA256 {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPasswordBytes
	}
	return &SHA256{maxBytes: maxBytes}
}

// Algorithm reports "sha256".
func (s *SHA256) Algorithm() string {
	return AlgorithmSHA256
}

// Hash returns hex(sha256(salt || password)).
func (s *SHA256) Hash(salt, password string) (string, error) {
	if err := checkInput(salt, password, s.maxBytes); err != nil {
		return "", err
	}
	return digest(salt, password), nil
}

// Verify compares the digest of salt and password with encoded in constant time.
func (s *SHA256) Verify(salt, password, encoded string) (bool, error) {
	if err := checkInput(salt, password, s.maxBytes); err != nil {
		if errors.Is(err, ErrEmptyPassword) {
			return false, nil
		}
		return false, err
	}
	if len(encoded) != sha256.Size*2 {
		return false, errors.New("invalid sha256 hash length")
	}

	computed := digest(salt, password)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(strings.ToLower(encoded))) == 1, nil
}

func digest(salt, password string) string {
	h := sha256.New()
	h.Write([]byte(salt))
	h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil))
}
