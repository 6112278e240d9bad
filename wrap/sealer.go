package wrap

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// MinSecretBytes is the shortest wrap secret NewSealer accepts.
const MinSecretBytes = 32

var (
	// ErrMalformed is returned by Unwrap for input that is not a canonical wrapped token.
	ErrMalformed = errors.New("wrapped token malformed")
	// ErrAuthentication is returned by Unwrap when the ciphertext fails authentication.
	ErrAuthentication = errors.New("wrapped token authentication failed")
)

var encoding = base64.RawURLEncoding.Strict()

// Wrapper converts between inner and outer token forms.
type Wrapper interface {
	Wrap(inner string) (string, error)
	Unwrap(outer string) (string, error)
}

// Sealer is the default Wrapper. Keys are derived from one secret at construction and never
// change afterwards.
type Sealer struct {
	aead   cipher.AEAD
	macKey []byte
}

// NewSealer derives encryption and nonce keys from secret.
func NewSealer(secret []byte) (*Sealer, error) {
	if len(secret) < MinSecretBytes {
		return nil, fmt.Errorf("wrap secret must be at least %d bytes", MinSecretBytes)
	}

	kdf := hkdf.New(sha256.New, secret, nil, []byte("passport/wrap/v1"))
	encKey := make([]byte, chacha20poly1305.KeySize)
	macKey := make([]byte, sha256.Size)
	if _, err := io.ReadFull(kdf, encKey); err != nil {
		return nil, fmt.Errorf("derive wrap key: %w", err)
	}
	if _, err := io.ReadFull(kdf, macKey); err != nil {
		return nil, fmt.Errorf("derive nonce key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(encKey)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead, macKey: macKey}, nil
}

// Wrap seals inner under a nonce derived from inner itself.
func (s *Sealer) Wrap(inner string) (string, error) {
	if inner == "" {
		return "", errors.New("inner token empty")
	}
	nonce := s.nonce([]byte(inner))
	out := s.aead.Seal(nonce, nonce, []byte(inner), nil)
	return encoding.EncodeToString(out), nil
}

// Unwrap reverses Wrap. Non-canonical base64, truncated input, failed authentication, and
// a nonce that does not match the plaintext are all rejected.
func (s *Sealer) Unwrap(outer string) (string, error) {
	raw, err := encoding.DecodeString(outer)
	if err != nil || encoding.EncodeToString(raw) != outer {
		return "", ErrMalformed
	}
	ns := s.aead.NonceSize()
	if len(raw) < ns+s.aead.Overhead()+1 {
		return "", ErrMalformed
	}

	nonce, sealed := raw[:ns], raw[ns:]
	plain, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrAuthentication
	}
	if subtle.ConstantTimeCompare(nonce, s.nonce(plain)) != 1 {
		return "", ErrAuthentication
	}
	return string(plain), nil
}

func (s *Sealer) nonce(plain []byte) []byte {
	mac := hmac.New(sha256.New, s.macKey)
	mac.Write(plain)
	sum := mac.Sum(nil)
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	copy(nonce, sum)
	return nonce
}
