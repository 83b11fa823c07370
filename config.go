package sessionguard

import (
	"errors"
	"fmt"
	"time"
)

// Config defines guard behavior. Configure once before [Builder.Build];
// treat as immutable afterwards.
type Config struct {
	Verify     VerifyConfig
	Store      StoreConfig
	Revalidate RevalidateConfig
	Audit      AuditConfig
	Metrics    MetricsConfig

	// LenientOnNetworkError keeps a cached session alive and grants access
	// when the verify endpoint is unreachable after all retries, instead
	// of forcing logout. This trades availability against the guarantee
	// that every revealed page was just confirmed by the server. The
	// default is fail-closed.
	LenientOnNetworkError bool

	// DenyRedirectDelay is how long the role-mismatch overlay is shown
	// before redirecting to the caller's own dashboard.
	DenyRedirectDelay time.Duration
}

// VerifyConfig configures the verify-endpoint client.
type VerifyConfig struct {
	// BaseURL of the marketplace backend, e.g. "https://api.example.com".
	BaseURL string
	// Timeout bounds each individual verify attempt.
	Timeout time.Duration
	// MaxAttempts is the total attempt budget on network-level failures.
	// Server rejections are never retried.
	MaxAttempts int
	// RetryStep scales the linear backoff: attempt n waits n×RetryStep.
	RetryStep time.Duration
	// InspectJWT short-circuits already-expired JWT-shaped tokens to a
	// rejection without a network call. Opaque tokens are unaffected.
	InspectJWT bool
}

// StoreConfig configures the two-tier session store.
type StoreConfig struct {
	// RedisPrefix scopes all persistent-tier keys.
	RedisPrefix string
	// Scope isolates one logical user session from others sharing the
	// same Redis. One scope holds at most one session.
	Scope string
	// PersistentTTL bounds how long a remembered session may outlive its
	// last refresh.
	PersistentTTL time.Duration
}

// RevalidateConfig configures the periodic background revalidation loop.
type RevalidateConfig struct {
	Enabled bool
	// Interval between background verify calls while a session is held.
	Interval time.Duration
}

// AuditConfig configures the buffered audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events under backpressure instead of blocking the
	// access check; drops are counted and exported.
	DropIfFull bool
}

// MetricsConfig configures the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

const (
	defaultVerifyTimeout     = 10 * time.Second
	defaultVerifyAttempts    = 3
	defaultRetryStep         = time.Second
	defaultRevalidateEvery   = 5 * time.Minute
	defaultDenyRedirectDelay = 1500 * time.Millisecond
	defaultPersistentTTL     = 30 * 24 * time.Hour

	minRevalidateInterval = time.Minute
	maxRevalidateInterval = 10 * time.Minute
	maxDenyRedirectDelay  = 10 * time.Second
)

// DefaultConfig returns the configuration [New] starts from. Integrators
// loading config from their own sources usually start here and override.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Verify: VerifyConfig{
			Timeout:     defaultVerifyTimeout,
			MaxAttempts: defaultVerifyAttempts,
			RetryStep:   defaultRetryStep,
		},
		Store: StoreConfig{
			RedisPrefix:   "sg",
			Scope:         "default",
			PersistentTTL: defaultPersistentTTL,
		},
		Revalidate: RevalidateConfig{
			Enabled:  true,
			Interval: defaultRevalidateEvery,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		DenyRedirectDelay: defaultDenyRedirectDelay,
	}
}

// Validate checks ranges and required fields. Build calls it; it is exported
// so integrators can validate config loaded from their own sources.
func (c Config) Validate() error {
	if c.Verify.BaseURL == "" {
		return errors.New("Verify.BaseURL is required")
	}
	if c.Verify.Timeout <= 0 {
		return errors.New("Verify.Timeout must be positive")
	}
	if c.Verify.MaxAttempts < 1 || c.Verify.MaxAttempts > 10 {
		return fmt.Errorf("Verify.MaxAttempts must be in [1,10], got %d", c.Verify.MaxAttempts)
	}
	if c.Verify.RetryStep <= 0 {
		return errors.New("Verify.RetryStep must be positive")
	}
	if c.Store.PersistentTTL <= 0 {
		return errors.New("Store.PersistentTTL must be positive")
	}
	if c.Revalidate.Enabled {
		if c.Revalidate.Interval < minRevalidateInterval || c.Revalidate.Interval > maxRevalidateInterval {
			return fmt.Errorf("Revalidate.Interval must be in [%s,%s], got %s",
				minRevalidateInterval, maxRevalidateInterval, c.Revalidate.Interval)
		}
	}
	if c.DenyRedirectDelay < 0 || c.DenyRedirectDelay > maxDenyRedirectDelay {
		return fmt.Errorf("DenyRedirectDelay must be in [0,%s], got %s",
			maxDenyRedirectDelay, c.DenyRedirectDelay)
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when audit is enabled")
	}
	return nil
}
