package sessionguard

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/kovrenik/sessionguard/session"
	"github.com/kovrenik/sessionguard/verify"
)

// Builder assembles a [Guard]. Construction is allocation-only until Build;
// no I/O happens before the first access check.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	httpClient       *http.Client
	logger           *slog.Logger
	auditSink        AuditSink
	onSessionExpired func()

	built bool
}

// New creates a Builder with defaults applied. Callers must still supply a
// Redis client and Verify.BaseURL before Build.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the client backing the persistent session tier.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient overrides the transport used for verify and logout calls.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithLogger sets the structured logger; defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the sink receiving guard audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithSessionExpiredFunc registers a callback fired when the background
// revalidation loop expires the cached session. The gateway uses it to force
// a login redirect on the next request.
func (b *Builder) WithSessionExpiredFunc(fn func()) *Builder {
	b.onSessionExpired = fn
	return b
}

// WithMetricsEnabled toggles the in-process metrics system.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the access-check latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates configuration and assembles the Guard. A Builder can be
// used once.
func (b *Builder) Build() (*Guard, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	store := session.NewStore(b.redis, cfg.Store.RedisPrefix, cfg.Store.Scope, cfg.Store.PersistentTTL, logger)

	verifier, err := verify.NewClient(verify.Options{
		BaseURL:     cfg.Verify.BaseURL,
		HTTPClient:  b.httpClient,
		Timeout:     cfg.Verify.Timeout,
		MaxAttempts: cfg.Verify.MaxAttempts,
		RetryStep:   cfg.Verify.RetryStep,
		InspectJWT:  cfg.Verify.InspectJWT,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	g := &Guard{
		config:           cfg,
		store:            store,
		verifier:         verifier,
		audit:            newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:          NewMetrics(cfg.Metrics),
		logger:           logger,
		onSessionExpired: b.onSessionExpired,
		loopWake:         make(chan struct{}, 1),
		loopDone:         make(chan struct{}),
	}

	b.built = true
	return g, nil
}
