package fastauth

import (
	"errors"
	"time"

	"github.com/fastauth/fastauth/token"
)

// Config defines a public type used by fastauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Token     TokenConfig
	Session   SessionConfig
	Password  PasswordConfig
	RateLimit RateLimitConfig
	Account   AccountConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Store     StoreConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by fastauth APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod token.SigningMethod // "ed25519" (default), "hs256" optional
	Keys          []token.Key         // ordered, newest first
	Issuer        string
	Audience      string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by fastauth APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by fastauth APIs.
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

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines a public type used by fastauth APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	MaxFailures      int
	Window           time.Duration
	EnableIPThrottle bool
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig defines a public type used by fastauth APIs.
//
// AccountConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AccountConfig struct {
	Enabled        bool
	AllowAutoLogin bool
	MaxCreations   int
	CreationWindow time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by fastauth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by fastauth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig bounds calls to the external store. Every store round-trip
// carries OpTimeout; a transient failure is retried once after RetryBackoff
// before surfacing ErrStoreUnavailable.
type StoreConfig struct {
	OpTimeout    time.Duration
	RetryBackoff time.Duration
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:     30 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: token.MethodEd25519,
			Leeway:        30 * time.Second,
			MaxFutureIAT:  10 * time.Minute,
		},
		Session: SessionConfig{
			RedisPrefix: "fa",
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: false,
		},
		RateLimit: RateLimitConfig{
			MaxFailures:      5,
			Window:           15 * time.Minute,
			EnableIPThrottle: false,
		},
		Account: AccountConfig{
			Enabled:        false,
			AllowAutoLogin: false,
			MaxCreations:   10,
			CreationWindow: time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Store: StoreConfig{
			OpTimeout:    2 * time.Second,
			RetryBackoff: 50 * time.Millisecond,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if len(cfg.Token.Keys) > 0 {
		out.Token.Keys = make([]token.Key, len(cfg.Token.Keys))
		copy(out.Token.Keys, cfg.Token.Keys)
	}
	return out
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c Config) Validate() error {
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.Token.RefreshTTL < c.Token.AccessTTL {
		return errors.New("refresh TTL must be >= access TTL")
	}
	if len(c.Token.Keys) == 0 {
		return errors.New("at least one signing key required")
	}
	if c.RateLimit.MaxFailures <= 0 {
		return errors.New("rate limit max failures must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	if c.Account.Enabled {
		if c.Account.MaxCreations <= 0 {
			return errors.New("account creation budget must be positive")
		}
		if c.Account.CreationWindow <= 0 {
			return errors.New("account creation window must be positive")
		}
	}
	if c.Store.OpTimeout <= 0 {
		return errors.New("store op timeout must be positive")
	}
	if c.Store.RetryBackoff < 0 {
		return errors.New("store retry backoff must be >= 0")
	}
	return nil
}
