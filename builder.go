package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/tradegate/authcore/internal/rate"
	"github.com/tradegate/authcore/internal/revoke"
	"github.com/tradegate/authcore/jwt"
	"github.com/tradegate/authcore/password"
)

// Builder defines a public type used by authcore APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	directory Directory
	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs the rate limiter and revocation set with Redis so state
// is shared across instances and survives restarts. Without it both fall
// back to in-process stores.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDirectory describes the withdirectory operation and its observable behavior.
//
// WithDirectory does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithDirectory(dir Directory) *Builder {
	b.directory = dir
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.directory == nil {
		return nil, errors.New("directory required")
	}
	if cfg.Security.ProductionMode && b.redis == nil {
		return nil, errors.New("ProductionMode requires redis client")
	}

	engine := &Engine{
		config:    cfg,
		directory: b.directory,
	}

	// -------- RATE LIMITER --------
	if cfg.RateLimit.Enabled {
		var store rate.Store
		if b.redis != nil {
			store = rate.NewRedisStore(b.redis, "arl")
		} else {
			ms := rate.NewMemoryStore(cfg.RateLimit.SweepInterval)
			engine.closers = append(engine.closers, ms.Close)
			store = ms
		}

		limiter, err := rate.NewLimiter(rate.Config{
			Login:         rate.Budget{Window: cfg.RateLimit.LoginWindow, MaxAttempts: cfg.RateLimit.LoginMaxAttempts},
			StrictLogin:   rate.Budget{Window: cfg.RateLimit.StrictLoginWindow, MaxAttempts: cfg.RateLimit.StrictLoginMaxAttempts},
			Registration:  rate.Budget{Window: cfg.RateLimit.RegistrationWindow, MaxAttempts: cfg.RateLimit.RegistrationMaxAttempts},
			PasswordReset: rate.Budget{Window: cfg.RateLimit.PasswordResetWindow, MaxAttempts: cfg.RateLimit.PasswordResetMaxAttempts},
		}, store)
		if err != nil {
			return nil, err
		}
		engine.rateLimiter = limiter
	}

	// -------- REVOCATION SET --------
	if b.redis != nil {
		engine.revocations = revoke.NewRedisStore(b.redis, "arv")
	} else {
		ms := revoke.NewMemoryStore(cfg.Tokens.SweepInterval)
		engine.closers = append(engine.closers, ms.Close)
		engine.revocations = ms
	}

	engine.csrf = newCSRFStore(cfg.CSRF.TTL)
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	ph, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	b.built = true

	return engine, nil
}
