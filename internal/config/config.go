// Package config loads the passport server configuration from YAML with PASSPORT_*
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/passport"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PASSPORT_"

// File is the on-disk configuration.
type File struct {
	Server     ServerConfig        `yaml:"server"`
	Token      TokenConfig         `yaml:"token"`
	Password   PasswordConfig      `yaml:"password"`
	Session    SessionConfig       `yaml:"session"`
	Database   DatabaseConfig      `yaml:"database"`
	Geo        GeoConfig           `yaml:"geo"`
	Audit      AuditConfig         `yaml:"audit"`
	Metrics    MetricsConfig       `yaml:"metrics"`
	Roles      map[string][]string `yaml:"roles"`
	Principals []PrincipalConfig   `yaml:"principals"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	// TrustProxyHeaders reads the client IP from forwarding headers. Only safe behind a
	// proxy that sets them.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

type TokenConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SigningMethod string        `yaml:"signing_method"`
	SigningSecret string        `yaml:"signing_secret"`
	WrapSecret    string        `yaml:"wrap_secret"`
	Issuer        string        `yaml:"issuer"`
	KeyID         string        `yaml:"key_id"`
	Leeway        time.Duration `yaml:"leeway"`
}

type PasswordConfig struct {
	Algorithm   string `yaml:"algorithm"`
	Memory      uint32 `yaml:"memory_kb"`
	Time        uint32 `yaml:"time"`
	Parallelism uint8  `yaml:"parallelism"`
	KeyLength   uint32 `yaml:"key_length"`
}

type SessionConfig struct {
	Backend       string        `yaml:"backend"` // memory or redis
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix"`
	Reaper        bool          `yaml:"reaper"`
	ReapInterval  time.Duration `yaml:"reap_interval"`
}

// DatabaseConfig selects the principal store. An empty DSN keeps principals in memory.
type DatabaseConfig struct {
	Dialect string `yaml:"dialect"`
	DSN     string `yaml:"dsn"`
	Migrate bool   `yaml:"migrate"`
}

type GeoConfig struct {
	Table string `yaml:"table"`
}

type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Sink       string `yaml:"sink"` // log or json
	BufferSize int    `yaml:"buffer_size"`
	DropIfFull bool   `yaml:"drop_if_full"`
}

type MetricsConfig struct {
	Enabled           bool   `yaml:"enabled"`
	LatencyHistograms bool   `yaml:"latency_histograms"`
	Path              string `yaml:"path"`
}

// PrincipalConfig seeds the in-memory principal store.
type PrincipalConfig struct {
	Username     string   `yaml:"username"`
	PasswordHash string   `yaml:"password_hash"`
	Salt         string   `yaml:"salt"`
	Status       string   `yaml:"status"`
	Nickname     string   `yaml:"nickname"`
	Email        string   `yaml:"email"`
	Roles        []string `yaml:"roles"`
}

// Default returns the configuration used when no file is given.
func Default() File {
	engine := passport.DefaultConfig()
	return File{
		Server: ServerConfig{
			Addr:      ":10000",
			LogLevel:  "info",
			LogFormat: "text",
		},
		Token: TokenConfig{
			TTL:           engine.Token.TTL,
			SigningMethod: engine.Token.SigningMethod,
		},
		Password: PasswordConfig{
			Algorithm:   engine.Password.Algorithm,
			Memory:      engine.Password.Memory,
			Time:        engine.Password.Time,
			Parallelism: engine.Password.Parallelism,
			KeyLength:   engine.Password.KeyLength,
		},
		Session: SessionConfig{
			Backend:      "memory",
			RedisPrefix:  engine.Session.RedisPrefix,
			ReapInterval: engine.Session.ReapInterval,
		},
		Database: DatabaseConfig{
			Dialect: "sqlite",
		},
		Audit: AuditConfig{
			Sink:       "log",
			BufferSize: engine.Audit.BufferSize,
			DropIfFull: engine.Audit.DropIfFull,
		},
		Metrics: MetricsConfig{
			Enabled: engine.Metrics.Enabled,
			Path:    "/metrics",
		},
	}
}

// Load reads path (if non-empty) over the defaults and applies environment overrides.
func Load(path string) (File, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return File{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decode(raw, &cfg); err != nil {
			return File{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return File{}, err
	}
	return cfg, nil
}

// Parse decodes raw over the defaults without consulting the environment.
func Parse(raw []byte) (File, error) {
	cfg := Default()
	if err := decode(raw, &cfg); err != nil {
		return File{}, err
	}
	return cfg, nil
}

func decode(raw []byte, cfg *File) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides cfg from PASSPORT_* variables found by lookup.
func ApplyEnv(cfg *File, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
		return nil
	}

	str("ADDR", &cfg.Server.Addr)
	str("LOG_LEVEL", &cfg.Server.LogLevel)
	str("LOG_FORMAT", &cfg.Server.LogFormat)
	str("SIGNING_SECRET", &cfg.Token.SigningSecret)
	str("WRAP_SECRET", &cfg.Token.WrapSecret)
	str("SESSION_BACKEND", &cfg.Session.Backend)
	str("REDIS_ADDR", &cfg.Session.RedisAddr)
	str("REDIS_PASSWORD", &cfg.Session.RedisPassword)
	str("DB_DIALECT", &cfg.Database.Dialect)
	str("DB_DSN", &cfg.Database.DSN)
	str("GEO_TABLE", &cfg.Geo.Table)

	if err := dur("TOKEN_TTL", &cfg.Token.TTL); err != nil {
		return err
	}
	if v, ok := lookup(EnvPrefix + "TRUST_PROXY_HEADERS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sTRUST_PROXY_HEADERS: %w", EnvPrefix, err)
		}
		cfg.Server.TrustProxyHeaders = b
	}
	if v, ok := lookup(EnvPrefix + "REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sREDIS_DB: %w", EnvPrefix, err)
		}
		cfg.Session.RedisDB = n
	}
	return nil
}

// parseDuration accepts Go durations and bare seconds.
func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Engine converts the file into the engine configuration.
func (f File) Engine() passport.Config {
	cfg := passport.DefaultConfig()

	cfg.Token.TTL = f.Token.TTL
	cfg.Token.SigningMethod = f.Token.SigningMethod
	cfg.Token.SigningSecret = []byte(f.Token.SigningSecret)
	cfg.Token.WrapSecret = []byte(f.Token.WrapSecret)
	cfg.Token.Issuer = f.Token.Issuer
	cfg.Token.KeyID = f.Token.KeyID
	cfg.Token.Leeway = f.Token.Leeway

	cfg.Password.Algorithm = f.Password.Algorithm
	cfg.Password.Memory = f.Password.Memory
	cfg.Password.Time = f.Password.Time
	cfg.Password.Parallelism = f.Password.Parallelism
	cfg.Password.KeyLength = f.Password.KeyLength

	cfg.Session.RedisPrefix = f.Session.RedisPrefix
	cfg.Session.ReaperEnabled = f.Session.Reaper
	cfg.Session.ReapInterval = f.Session.ReapInterval

	cfg.Audit.Enabled = f.Audit.Enabled
	cfg.Audit.BufferSize = f.Audit.BufferSize
	cfg.Audit.DropIfFull = f.Audit.DropIfFull

	cfg.Metrics.Enabled = f.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = f.Metrics.Enabled && f.Metrics.LatencyHistograms

	return cfg
}

// MemoryPrincipals converts the seeded principals.
func (f File) MemoryPrincipals() []passport.Principal {
	out := make([]passport.Principal, 0, len(f.Principals))
	for i, p := range f.Principals {
		status := passport.Status(p.Status)
		if status == "" {
			status = passport.StatusActive
		}
		out = append(out, passport.Principal{
			ID:           int64(i + 1),
			Username:     p.Username,
			PasswordHash: p.PasswordHash,
			Salt:         p.Salt,
			Status:       status,
			Nickname:     p.Nickname,
			Email:        p.Email,
			Roles:        append([]string(nil), p.Roles...),
		})
	}
	return out
}

// Assignments maps each seeded principal to its roles.
func (f File) Assignments() map[string][]string {
	out := make(map[string][]string, len(f.Principals))
	for _, p := range f.Principals {
		if len(p.Roles) > 0 {
			out[p.Username] = append([]string(nil), p.Roles...)
		}
	}
	return out
}

// Permissions returns every permission named by any role, without duplicates.
func (f File) Permissions() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, role := range sortedRoleNames(f.Roles) {
		for _, p := range f.Roles[role] {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func sortedRoleNames(m map[string][]string) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
