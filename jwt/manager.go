package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretBytes is the shortest HMAC secret NewManager accepts.
const MinSecretBytes = 32

// SigningMethod names an HMAC signing algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with HMAC-SHA256 (default).
	MethodHS256 SigningMethod = "hs256"
	// MethodHS384 signs with HMAC-SHA384.
	MethodHS384 SigningMethod = "hs384"
	// MethodHS512 signs with HMAC-SHA512.
	MethodHS512 SigningMethod = "hs512"
)

var (
	// ErrTokenExpired is returned by Parse when now is at or past the token's expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned by Parse for malformed tokens, bad signatures, and
	// claim mismatches.
	ErrTokenInvalid = errors.New("token invalid")
)

// Config is the immutable key material and validation policy of a [Manager].
type Config struct {
	SigningMethod SigningMethod
	Secret        []byte
	Issuer        string
	KeyID         string
	Leeway        time.Duration
}

// Manager signs and parses session tokens. It is safe for concurrent use; its config is
// copied at construction and never mutated.
type Manager struct {
	config Config
	method jwt.SigningMethod
	now    func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces time.Now for expiry and issued-at checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// SessionClaims are the claims carried by a session token. Subject is the username and
// Proof binds the token to the password hash that was current at issuance.
type SessionClaims struct {
	Proof string `json:"pfp,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	method, err := methodFor(cfg.SigningMethod)
	if err != nil {
		return nil, err
	}
	if len(cfg.Secret) < MinSecretBytes {
		return nil, fmt.Errorf("%s requires a secret of at least %d bytes", cfg.SigningMethod, MinSecretBytes)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.Secret = append([]byte(nil), cfg.Secret...)
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	m := &Manager{config: cfg, method: method, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Sign returns the compact JWS for claims. The configured issuer is applied when claims
// carry none.
func (m *Manager) Sign(claims SessionClaims) (string, error) {
	if claims.Subject == "" {
		return "", errors.New("token subject required")
	}
	if claims.ExpiresAt == nil {
		return "", errors.New("token expiry required")
	}
	if claims.Issuer == "" {
		claims.Issuer = m.config.Issuer
	}

	token := jwt.NewWithClaims(m.method, claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}
	return token.SignedString(m.config.Secret)
}

// Parse verifies tokenStr and returns its claims. Expired tokens fail with
// [ErrTokenExpired]; every other rejection fails with [ErrTokenInvalid].
func (m *Manager) Parse(tokenStr string) (*SessionClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	claims := &SessionClaims{}
	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if m.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != m.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return m.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func methodFor(method SigningMethod) (jwt.SigningMethod, error) {
	switch SigningMethod(strings.ToLower(string(method))) {
	case MethodHS256:
		return jwt.SigningMethodHS256, nil
	case MethodHS384:
		return jwt.SigningMethodHS384, nil
	case MethodHS512:
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported signing method %q", method)
	}
}
