package token

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrEthical07/passport/jwt"
	"github.com/MrEthical07/passport/wrap"
)

var (
	// ErrTokenExpired is returned by Validate when now is at or past the token expiry.
	ErrTokenExpired = jwt.ErrTokenExpired
	// ErrTokenInvalid is returned by Validate for anything that is not a token this issuer
	// produced.
	ErrTokenInvalid = jwt.ErrTokenInvalid
)

// Subject is what an Issuer needs to know about the principal a token is bound to.
type Subject struct {
	Username     string
	PasswordHash string
}

// Issued is a freshly issued token.
type Issued struct {
	Token     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Claims are the validated contents of a token.
type Claims struct {
	Username  string
	Proof     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer signs, wraps, and validates session tokens.
type Issuer struct {
	signer  *jwt.Manager
	wrapper wrap.Wrapper
	ttl     time.Duration
	now     func() time.Time
}

// Option customizes an Issuer.
type Option func(*Issuer)

// WithClock replaces time.Now for issuance. The same clock should be given to the
// jwt.Manager so validation agrees with issuance.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer returns an Issuer. ttl is truncated to whole seconds and must be at least one
// second.
func NewIssuer(signer *jwt.Manager, wrapper wrap.Wrapper, ttl time.Duration, opts ...Option) (*Issuer, error) {
	if signer == nil {
		return nil, errors.New("token signer is nil")
	}
	if wrapper == nil {
		return nil, errors.New("token wrapper is nil")
	}
	ttl = ttl.Truncate(time.Second)
	if ttl < time.Second {
		return nil, fmt.Errorf("token ttl must be at least 1s, got %s", ttl)
	}

	i := &Issuer{signer: signer, wrapper: wrapper, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// TTL returns the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue returns a token for subject expiring TTL after now.
func (i *Issuer) Issue(subject Subject) (Issued, error) {
	if subject.Username == "" {
		return Issued{}, errors.New("token subject username required")
	}

	issuedAt := i.now()
	expiresAt := ceilSecond(issuedAt.Add(i.ttl))
	id := uuid.NewString()

	inner, err := i.signer.Sign(jwt.SessionClaims{
		Proof: Proof(subject.PasswordHash),
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   subject.Username,
			ID:        id,
			IssuedAt:  gjwt.NewNumericDate(issuedAt),
			ExpiresAt: gjwt.NewNumericDate(expiresAt),
		},
	})
	if err != nil {
		return Issued{}, fmt.Errorf("sign token: %w", err)
	}

	outer, err := i.wrapper.Wrap(inner)
	if err != nil {
		return Issued{}, fmt.Errorf("wrap token: %w", err)
	}

	return Issued{Token: outer, ID: id, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// ceilSecond rounds t up to a whole second; exp is carried at second precision and must
// not fall before now+ttl.
func ceilSecond(t time.Time) time.Time {
	down := t.Truncate(time.Second)
	if down.Before(t) {
		return down.Add(time.Second)
	}
	return down
}

// Validate unwraps and verifies outer.
func (i *Issuer) Validate(outer string) (Claims, error) {
	if outer == "" {
		return Claims{}, ErrTokenInvalid
	}
	inner, err := i.wrapper.Unwrap(outer)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, err := i.signer.Parse(inner)
	if err != nil {
		return Claims{}, err
	}

	out := Claims{
		Username: claims.Subject,
		Proof:    claims.Proof,
		ID:       claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Proof returns the digest of a password hash carried in the token. It changes whenever
// the stored hash changes and reveals nothing about the hash itself.
func Proof(passwordHash string) string {
	if passwordHash == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(passwordHash))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
