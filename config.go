package authcore

import (
	"errors"
	"time"
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT       JWTConfig
	Lockout   LockoutConfig
	RateLimit RateLimitConfig
	Password  PasswordConfig
	Tokens    TokenConfig
	CSRF      CSRFConfig
	Routing   RoutingConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Security  SecurityConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by authcore APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig defines a public type used by authcore APIs.
//
// LockoutConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LockoutConfig struct {
	// Threshold is the consecutive-failure count that triggers a lock.
	Threshold int
	// Duration is how long the account stays locked once triggered.
	Duration time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines a public type used by authcore APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
//
// Each operation has an independent sliding-window budget keyed by client
// address. Successful logins clear the address's login history entirely.
type RateLimitConfig struct {
	Enabled bool

	LoginWindow      time.Duration
	LoginMaxAttempts int

	StrictLoginWindow      time.Duration
	StrictLoginMaxAttempts int

	RegistrationWindow      time.Duration
	RegistrationMaxAttempts int

	PasswordResetWindow      time.Duration
	PasswordResetMaxAttempts int

	// SweepInterval bounds memory of the in-process store by dropping
	// addresses whose history has aged out. Ignored by the Redis store,
	// which expires keys natively.
	SweepInterval time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by authcore APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// UpgradeOnLogin rehashes legacy bcrypt credentials to Argon2id after a
	// successful verification.
	UpgradeOnLogin bool
}

// TokenConfig defines a public type used by authcore APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	// RotateOnRefresh blacklists the consumed refresh token when a new pair
	// is issued. Off by default: clients may retry a refresh with the same
	// token after a network failure. Enabling it changes retry semantics.
	RotateOnRefresh bool

	// SweepInterval bounds memory of the in-process revocation set by
	// dropping expired entries. Ignored when Redis backs revocations.
	SweepInterval time.Duration
}

// CSRFConfig defines a public type used by authcore APIs.
//
// CSRFConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CSRFConfig struct {
	// Enforce gates verification. When false, VerifyCSRFToken always
	// succeeds; issuance still works so callers can roll out gradually.
	Enforce bool
	TTL     time.Duration
}

// RoutingConfig maps roles and organizational types to post-login
// destinations handed to the UI layer.
type RoutingConfig struct {
	AdminConsole string
	Manufacturer string
	Distributor  string
	// Fallback is used for unrecognized roles and logged as a data gap.
	Fallback string
}

// AuditConfig defines a public type used by authcore APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by authcore APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

// SecurityConfig defines a public type used by authcore APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	ProductionMode bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration: 15m/7d token TTLs,
// five-attempt 30-minute lockout, the standard sliding-window budgets, and
// CSRF enforcement off. Signing keys must still be supplied by the caller.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "ed25519",
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Duration:  30 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:                  true,
			LoginWindow:              60 * time.Minute,
			LoginMaxAttempts:         10,
			StrictLoginWindow:        15 * time.Minute,
			StrictLoginMaxAttempts:   5,
			RegistrationWindow:       time.Hour,
			RegistrationMaxAttempts:  3,
			PasswordResetWindow:      time.Hour,
			PasswordResetMaxAttempts: 3,
			SweepInterval:            30 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Tokens: TokenConfig{
			RotateOnRefresh: false,
			SweepInterval:   30 * time.Minute,
		},
		CSRF: CSRFConfig{
			Enforce: false,
			TTL:     time.Hour,
		},
		Routing: RoutingConfig{
			AdminConsole: "/admin/dashboard",
			Manufacturer: "/manufacturer/dashboard",
			Distributor:  "/distributor/dashboard",
			Fallback:     "/dashboard",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
		Security: SecurityConfig{
			ProductionMode: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
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

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Lockout
	if c.Lockout.Threshold <= 0 {
		return errors.New("Lockout Threshold must be > 0")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("Lockout Duration must be > 0")
	}

	// Rate limiting
	if c.RateLimit.Enabled {
		if c.RateLimit.LoginMaxAttempts <= 0 || c.RateLimit.LoginWindow <= 0 {
			return errors.New("RateLimit login budget must be > 0")
		}
		if c.RateLimit.StrictLoginMaxAttempts <= 0 || c.RateLimit.StrictLoginWindow <= 0 {
			return errors.New("RateLimit strict-login budget must be > 0")
		}
		if c.RateLimit.RegistrationMaxAttempts <= 0 || c.RateLimit.RegistrationWindow <= 0 {
			return errors.New("RateLimit registration budget must be > 0")
		}
		if c.RateLimit.PasswordResetMaxAttempts <= 0 || c.RateLimit.PasswordResetWindow <= 0 {
			return errors.New("RateLimit password-reset budget must be > 0")
		}
		if c.RateLimit.SweepInterval < 0 {
			return errors.New("RateLimit SweepInterval must be >= 0")
		}
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Tokens
	if c.Tokens.SweepInterval < 0 {
		return errors.New("Tokens SweepInterval must be >= 0")
	}

	// CSRF
	if c.CSRF.Enforce && c.CSRF.TTL <= 0 {
		return errors.New("CSRF TTL must be > 0 when enforcement is on")
	}

	// Routing
	if c.Routing.Fallback == "" {
		return errors.New("Routing Fallback route is required")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Security.ProductionMode {
		if c.JWT.AccessTTL > time.Hour {
			return errors.New("ProductionMode requires JWT AccessTTL <= 1h")
		}
		if c.JWT.RefreshTTL > 30*24*time.Hour {
			return errors.New("ProductionMode requires JWT RefreshTTL <= 30d")
		}
		if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) < 32 {
			return errors.New("ProductionMode requires hs256 key length >= 256 bits")
		}
		if !c.RateLimit.Enabled {
			return errors.New("ProductionMode requires rate limiting")
		}
		if c.Password.Memory < 64*1024 {
			return errors.New("ProductionMode requires Password Memory >= 65536 KB")
		}
		if c.Password.Time < 2 {
			return errors.New("ProductionMode requires Password Time >= 2")
		}
		if c.Password.KeyLength < 32 {
			return errors.New("ProductionMode requires Password KeyLength >= 32")
		}
	}

	return nil
}
