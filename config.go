package cineauth

import (
	"errors"
	"time"
)

// Config defines a public type used by cineauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT           JWTConfig
	Session       SessionConfig
	Password      PasswordConfig
	PasswordReset PasswordResetConfig
	RateLimit     RateLimitConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by cineauth APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	AccessTTL     time.Duration
	ResetTTL      time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by cineauth APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix string
	// RefreshLifetime bounds how long a session can mint new access tokens.
	RefreshLifetime time.Duration
	// DefaultPlatform is recorded on sessions created without a platform tag.
	DefaultPlatform string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by cineauth APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

// PasswordResetConfig defines a public type used by cineauth APIs.
//
// PasswordResetConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordResetConfig struct {
	RedisPrefix string
	// RequestTTL is the window within which the one-time code must be verified.
	RequestTTL  time.Duration
	MaxAttempts int
	CodeDigits  int
	// Retention bounds how long terminal request records linger in Redis.
	Retention time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines a public type used by cineauth APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	Enabled       bool
	RedisPrefix   string
	Policies      map[PathClass]RatePolicy
	BlockCooldown time.Duration
}

// AuditConfig defines a public type used by cineauth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by cineauth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     time.Hour,
			ResetTTL:      time.Hour,
			SigningMethod: "ed25519",
		},
		Session: SessionConfig{
			RedisPrefix:     "cs",
			RefreshLifetime: 7 * 24 * time.Hour,
			DefaultPlatform: "mobile-app",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		PasswordReset: PasswordResetConfig{
			RedisPrefix: "cpr",
			RequestTTL:  15 * time.Minute,
			MaxAttempts: 3,
			CodeDigits:  6,
			Retention:   24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Policies: map[PathClass]RatePolicy{
				PathAuth:    {Requests: 5, Window: time.Minute},
				PathCatalog: {Requests: 100, Window: time.Minute},
				PathProfile: {Requests: 50, Window: time.Minute},
			},
			BlockCooldown: 5 * time.Minute,
		},
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be positive")
	}
	if c.JWT.ResetTTL <= 0 {
		return errors.New("JWT ResetTTL must be positive")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("JWT SigningMethod must be ed25519 or hs256")
	}
	if c.Session.RefreshLifetime <= 0 {
		return errors.New("Session RefreshLifetime must be positive")
	}
	if c.Session.RefreshLifetime < c.JWT.AccessTTL {
		return errors.New("Session RefreshLifetime must cover at least one access TTL")
	}
	if c.PasswordReset.RequestTTL <= 0 {
		return errors.New("PasswordReset RequestTTL must be positive")
	}
	if c.PasswordReset.MaxAttempts < 1 {
		return errors.New("PasswordReset MaxAttempts must be at least 1")
	}
	if c.PasswordReset.CodeDigits < 6 || c.PasswordReset.CodeDigits > 10 {
		return errors.New("PasswordReset CodeDigits must be between 6 and 10")
	}
	if c.RateLimit.Enabled {
		for class, policy := range c.RateLimit.Policies {
			if policy.Requests <= 0 || policy.Window <= 0 {
				return errors.New("RateLimit policy for " + class.String() + " must have positive ceiling and window")
			}
		}
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	cloned := cfg
	cloned.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	cloned.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)

	if cfg.RateLimit.Policies != nil {
		policies := make(map[PathClass]RatePolicy, len(cfg.RateLimit.Policies))
		for class, policy := range cfg.RateLimit.Policies {
			policies[class] = policy
		}
		cloned.RateLimit.Policies = policies
	}

	return cloned
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
