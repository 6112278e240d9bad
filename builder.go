package passport

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/passport/geo"
	"github.com/MrEthical07/passport/internal/audit"
	"github.com/MrEthical07/passport/jwt"
	"github.com/MrEthical07/passport/password"
	"github.com/MrEthical07/passport/permission"
	"github.com/MrEthical07/passport/session"
	"github.com/MrEthical07/passport/token"
	"github.com/MrEthical07/passport/wrap"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config

	principals   PrincipalStore
	redis        redis.UniversalClient
	sessionStore session.Store
	directory    permission.Directory
	locator      geo.Locator
	logger       *slog.Logger
	auditSink    AuditSink
	hasher       password.Hasher
	now          func() time.Time

	permissions []string
	roles       map[string][]string
	assignments map[string][]string

	built bool
}

// New returns a Builder with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. Secrets are copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithPrincipalStore sets the account store. It is required.
func (b *Builder) WithPrincipalStore(store PrincipalStore) *Builder {
	b.principals = store
	return b
}

// WithRedis keeps active sessions in Redis. WithSessionStore takes precedence.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore sets the session backend directly.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.sessionStore = store
	return b
}

// WithDirectory sets where roles and permissions are read from. Without it the engine
// uses a static directory built from WithPermissions, WithRoles and WithAssignments.
func (b *Builder) WithDirectory(dir permission.Directory) *Builder {
	b.directory = dir
	return b
}

func (b *Builder) WithPermissions(perms []string) *Builder {
	b.permissions = perms
	return b
}

func (b *Builder) WithRoles(r map[string][]string) *Builder {
	b.roles = r
	return b
}

// WithAssignments maps usernames to role names for the static directory.
func (b *Builder) WithAssignments(a map[string][]string) *Builder {
	b.assignments = a
	return b
}

// WithLocator sets the geolocation lookup recorded on sessions.
func (b *Builder) WithLocator(l geo.Locator) *Builder {
	b.locator = l
	return b
}

func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the audit destination and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

// WithHasher overrides the hasher selected by Password.Algorithm.
func (b *Builder) WithHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

// WithClock replaces time.Now everywhere in the engine.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.principals == nil {
		return nil, errors.New("principal store required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// -------- PASSWORD --------
	hasher := b.hasher
	if hasher == nil {
		h, err := password.New(cfg.Password.Algorithm, cfg.passwordConfig())
		if err != nil {
			return nil, err
		}
		hasher = h
	}
	decoy, err := newDecoyCredential(hasher)
	if err != nil {
		return nil, fmt.Errorf("%w: decoy credential: %v", ErrInternal, err)
	}

	// -------- TOKEN --------
	signer, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.Token.SigningMethod),
		Secret:        cloneBytes(cfg.Token.SigningSecret),
		Issuer:        cfg.Token.Issuer,
		KeyID:         cfg.Token.KeyID,
		Leeway:        cfg.Token.Leeway,
	}, jwt.WithClock(now))
	if err != nil {
		return nil, err
	}
	sealer, err := wrap.NewSealer(cfg.Token.WrapSecret)
	if err != nil {
		return nil, err
	}
	issuer, err := token.NewIssuer(signer, sealer, cfg.Token.TTL, token.WithClock(now))
	if err != nil {
		return nil, err
	}

	// -------- SESSION REGISTRY --------
	var stopReaper func()
	store := b.sessionStore
	switch {
	case store != nil:
	case b.redis != nil:
		store = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix)
	default:
		mem := session.NewMemoryStore()
		if cfg.Session.ReaperEnabled {
			stopReaper = mem.StartReaper(cfg.Session.ReapInterval, now)
		}
		store = mem
	}

	regOpts := []session.RegistryOption{
		session.WithLogger(logger),
		session.WithClock(now),
		session.WithIDAttempts(cfg.Session.IDAttempts),
	}
	if b.locator != nil {
		regOpts = append(regOpts, session.WithLocator(b.locator))
	}
	registry, err := session.NewRegistry(store, regOpts...)
	if err != nil {
		stopIfSet(stopReaper)
		return nil, err
	}

	// -------- PERMISSIONS --------
	dir := b.directory
	if dir == nil {
		dir, err = b.staticDirectory(cfg.Permission)
		if err != nil {
			stopIfSet(stopReaper)
			return nil, err
		}
	}
	aggregator, err := permission.NewAggregator(dir)
	if err != nil {
		stopIfSet(stopReaper)
		return nil, err
	}

	engine := &Engine{
		config:     cfg,
		logger:     logger.With("component", "passport"),
		principals: b.principals,
		hasher:     hasher,
		decoy:      decoy,
		issuer:     issuer,
		registry:   registry,
		aggregator: aggregator,
		metrics:    NewMetrics(cfg.Metrics),
		now:        now,
		stopReaper: stopReaper,
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Now:        now,
	}, b.auditSink)

	b.built = true

	return engine, nil
}

func (b *Builder) staticDirectory(cfg PermissionConfig) (*permission.StaticDirectory, error) {
	registry, err := permission.NewRegistry(cfg.MaxBits)
	if err != nil {
		return nil, err
	}
	for _, p := range b.permissions {
		if _, err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	registry.Freeze()

	roleManager := permission.NewRoleManager(registry)
	for _, roleName := range sortedKeys(b.roles) {
		if err := roleManager.RegisterRole(roleName, b.roles[roleName]); err != nil {
			return nil, err
		}
	}
	roleManager.Freeze()

	dir := permission.NewStaticDirectory(roleManager)
	for _, username := range sortedKeys(b.assignments) {
		if err := dir.Assign(normalizeUsername(username), b.assignments[username]...); err != nil {
			return nil, fmt.Errorf("assign %s: %w", username, err)
		}
	}
	return dir, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func stopIfSet(stop func()) {
	if stop != nil {
		stop()
	}
}
