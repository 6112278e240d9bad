package passport

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/passport/jwt"
	"github.com/MrEthical07/passport/password"
	"github.com/MrEthical07/passport/wrap"
)

// Config is the engine configuration. It is copied by Builder.WithConfig and treated as
// immutable after Build.
type Config struct {
	Token      TokenConfig
	Password   PasswordConfig
	Session    SessionConfig
	Permission PermissionConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig holds the token lifetime and key material.
type TokenConfig struct {
	// TTL is truncated to whole seconds; values under one second are rejected.
	TTL           time.Duration
	SigningMethod string // "hs256" (default), "hs384", "hs512"
	SigningSecret []byte
	WrapSecret    []byte
	Issuer        string
	KeyID         string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects and tunes the password hashing scheme.
type PasswordConfig struct {
	Algorithm        string // "argon2id" (default) or "sha256"
	Memory           uint32 // in KB
	Time             uint32
	Parallelism      uint8
	KeyLength        uint32
	MaxPasswordBytes int
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the session registry backend.
type SessionConfig struct {
	RedisPrefix   string
	IDAttempts    int
	ReaperEnabled bool
	ReapInterval  time.Duration
}

/*
====================================
PERMISSION CONFIG
====================================
*/

// PermissionConfig sizes the permission bitmask used by the static directory.
type PermissionConfig struct {
	MaxBits int // 64, 128, 256, 512
}

/*
====================================
AUDIT & METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns a configuration with every field set except the secrets.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		Token: TokenConfig{
			TTL:           time.Hour,
			SigningMethod: string(jwt.MethodHS256),
		},
		Password: PasswordConfig{
			Algorithm:        password.AlgorithmArgon2ID,
			Memory:           pw.Memory,
			Time:             pw.Time,
			Parallelism:      pw.Parallelism,
			KeyLength:        pw.KeyLength,
			MaxPasswordBytes: pw.MaxPasswordBytes,
		},
		Session: SessionConfig{
			RedisPrefix:  "passport",
			IDAttempts:   4,
			ReapInterval: time.Minute,
		},
		Permission: PermissionConfig{
			MaxBits: 64,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.SigningSecret = cloneBytes(cfg.Token.SigningSecret)
	out.Token.WrapSecret = cloneBytes(cfg.Token.WrapSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c *Config) tokenTTL() time.Duration {
	return c.Token.TTL.Truncate(time.Second)
}

func (c *Config) passwordConfig() password.Config {
	return password.Config{
		Memory:           c.Password.Memory,
		Time:             c.Password.Time,
		Parallelism:      c.Password.Parallelism,
		KeyLength:        c.Password.KeyLength,
		MaxPasswordBytes: c.Password.MaxPasswordBytes,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	// Token
	if c.tokenTTL() < time.Second {
		return errors.New("Token TTL must be at least 1s")
	}
	switch jwt.SigningMethod(strings.ToLower(c.Token.SigningMethod)) {
	case jwt.MethodHS256, jwt.MethodHS384, jwt.MethodHS512:
	default:
		return fmt.Errorf("unsupported token signing method %q", c.Token.SigningMethod)
	}
	if len(c.Token.SigningSecret) < jwt.MinSecretBytes {
		return fmt.Errorf("Token SigningSecret must be at least %d bytes", jwt.MinSecretBytes)
	}
	if len(c.Token.WrapSecret) < wrap.MinSecretBytes {
		return fmt.Errorf("Token WrapSecret must be at least %d bytes", wrap.MinSecretBytes)
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}

	// Password
	switch strings.ToLower(c.Password.Algorithm) {
	case "", password.AlgorithmArgon2ID:
		if c.Password.Memory < 8*1024 {
			return errors.New("Password Memory must be >= 8192 KB")
		}
		if c.Password.Time < 1 {
			return errors.New("Password Time must be >= 1")
		}
		if c.Password.Parallelism < 1 {
			return errors.New("Password Parallelism must be >= 1")
		}
		if c.Password.KeyLength < 16 {
			return errors.New("Password KeyLength must be >= 16")
		}
	case password.AlgorithmSHA256:
	default:
		return fmt.Errorf("unsupported password algorithm %q", c.Password.Algorithm)
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}

	// Session
	if c.Session.IDAttempts <= 0 {
		return errors.New("Session IDAttempts must be > 0")
	}
	if c.Session.ReaperEnabled && c.Session.ReapInterval <= 0 {
		return errors.New("Session ReapInterval must be > 0 when ReaperEnabled is true")
	}

	// Permission
	switch c.Permission.MaxBits {
	case 64, 128, 256, 512:
	default:
		return errors.New("Permission MaxBits must be 64, 128, 256 or 512")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

/*
====================================
LINT
====================================
*/

// LintWarning is a configuration that is valid but probably unintended.
type LintWarning struct {
	Code    string
	Message string
}

// LintResult is the list of warnings returned by Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	codes := make([]string, 0, len(r))
	for _, w := range r {
		codes = append(codes, w.Code)
	}
	return codes
}

// Lint returns warnings for a configuration that passes Validate but looks risky.
func (c *Config) Lint() LintResult {
	var out LintResult
	add := func(code, msg string) {
		out = append(out, LintWarning{Code: code, Message: msg})
	}

	if c.Token.TTL != c.tokenTTL() {
		add("ttl_truncated", "Token TTL is truncated to whole seconds")
	}
	if c.tokenTTL() > 24*time.Hour {
		add("ttl_long", "Token TTL exceeds 24h; sessions outlive a working day")
	}
	if c.Token.Leeway > time.Minute {
		add("leeway_large", "Token Leeway above 1m keeps expired tokens usable")
	}
	if len(c.Token.SigningSecret) > 0 && string(c.Token.SigningSecret) == string(c.Token.WrapSecret) {
		add("shared_secret", "SigningSecret and WrapSecret are identical")
	}
	if strings.EqualFold(c.Password.Algorithm, password.AlgorithmSHA256) {
		add("legacy_password_hash", "sha256 password hashing is only meant for migrated accounts")
	}
	if c.Audit.Enabled && !c.Audit.DropIfFull {
		add("audit_blocking", "Audit DropIfFull=false blocks logins when the sink is slow")
	}
	if !c.Metrics.Enabled {
		add("metrics_disabled", "Metrics are disabled")
	}

	return out
}
