package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when the persistent tier cannot be reached.
// Callers generally treat it as absence and fail per their own policy.
var ErrUnavailable = errors.New("session store unavailable")

// ErrIncompletePair is returned by [Store.Set] when a session is written
// without its token or vice versa.
var ErrIncompletePair = errors.New("session and token must be stored together")

// Tier identifies which storage tier holds the cached session.
type Tier uint8

const (
	// TierNone means no tier holds a session.
	TierNone Tier = iota
	// TierPersistent is the Redis-backed tier (survives restarts).
	TierPersistent
	// TierEphemeral is the in-process tier (cleared on exit).
	TierEphemeral
)

// String returns the tier name used in logs.
func (t Tier) String() string {
	switch t {
	case TierPersistent:
		return "persistent"
	case TierEphemeral:
		return "ephemeral"
	default:
		return "none"
	}
}

const (
	defaultPrefix        = "sg"
	defaultScope         = "default"
	defaultPersistentTTL = 30 * 24 * time.Hour

	sessionSuffix = ":sess"
	tokenSuffix   = ":tok"
)

// Store is the dual-tier session holder. All operations are safe for
// concurrent use; last writer wins, which is acceptable because exactly one
// logical user session exists per scope and writes are infrequent.
type Store struct {
	client redis.UniversalClient
	prefix string
	scope  string
	ttl    time.Duration
	logger *slog.Logger
	mem    memoryTier
}

// NewStore creates a Store. prefix scopes all Redis keys, scope isolates one
// logical user session (one browsing profile) from others sharing the same
// Redis. Zero values fall back to defaults.
func NewStore(client redis.UniversalClient, prefix, scope string, ttl time.Duration, logger *slog.Logger) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if scope == "" {
		scope = defaultScope
	}
	if ttl <= 0 {
		ttl = defaultPersistentTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client: client,
		prefix: prefix,
		scope:  scope,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *Store) sessionKey() string { return s.prefix + ":" + s.scope + sessionSuffix }
func (s *Store) tokenKey() string   { return s.prefix + ":" + s.scope + tokenSuffix }

// Get returns the cached session, persistent tier preferred. Corrupt or
// half-present state resolves to (nil, nil) after self-healing the tier.
func (s *Store) Get(ctx context.Context) (*UserSession, error) {
	sess, _, _, err := s.lookup(ctx)
	return sess, err
}

// GetToken returns the bearer token from whichever tier holds the session.
func (s *Store) GetToken(ctx context.Context) (string, error) {
	_, token, _, err := s.lookup(ctx)
	return token, err
}

// ActiveTier reports which tier currently holds the session.
func (s *Store) ActiveTier(ctx context.Context) (Tier, error) {
	_, _, tier, err := s.lookup(ctx)
	return tier, err
}

// Set writes session and token to the tier chosen by rememberMe and clears
// the other tier so the two can never disagree.
func (s *Store) Set(ctx context.Context, sess *UserSession, token string, rememberMe bool) error {
	if sess == nil || token == "" {
		return ErrIncompletePair
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if rememberMe {
		pipe := s.client.TxPipeline()
		pipe.Set(ctx, s.sessionKey(), raw, s.ttl)
		pipe.Set(ctx, s.tokenKey(), token, s.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		s.mem.clear()
		return nil
	}

	s.mem.write(string(raw), token)
	if err := s.client.Del(ctx, s.sessionKey(), s.tokenKey()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Refresh rewrites the session in whichever tier currently holds it,
// preserving both the tier and the stored token. A refresh against an empty
// store is a no-op: the user logged out while the verify call was in flight.
func (s *Store) Refresh(ctx context.Context, sess *UserSession) error {
	if sess == nil {
		return ErrIncompletePair
	}
	_, token, tier, err := s.lookup(ctx)
	if err != nil {
		return err
	}
	if tier == TierNone {
		return nil
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	switch tier {
	case TierPersistent:
		pipe := s.client.TxPipeline()
		pipe.Set(ctx, s.sessionKey(), raw, s.ttl)
		pipe.Set(ctx, s.tokenKey(), token, s.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	case TierEphemeral:
		s.mem.write(string(raw), token)
	}
	return nil
}

// Clear removes session and token from both tiers unconditionally. It is
// idempotent and used on logout and on every validation failure.
func (s *Store) Clear(ctx context.Context) error {
	s.mem.clear()
	if err := s.client.Del(ctx, s.sessionKey(), s.tokenKey()).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Store) lookup(ctx context.Context) (*UserSession, string, Tier, error) {
	raw, token, ok, err := s.readPersistent(ctx)
	if err != nil {
		return nil, "", TierNone, err
	}
	if ok {
		if sess := s.decode(ctx, raw, TierPersistent); sess != nil {
			return sess, token, TierPersistent, nil
		}
	}

	raw, token, ok = s.mem.read()
	if ok {
		if sess := s.decode(ctx, raw, TierEphemeral); sess != nil {
			return sess, token, TierEphemeral, nil
		}
	}
	return nil, "", TierNone, nil
}

func (s *Store) readPersistent(ctx context.Context) (raw, token string, ok bool, err error) {
	vals, err := s.client.MGet(ctx, s.sessionKey(), s.tokenKey()).Result()
	if err != nil {
		return "", "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(vals) != 2 {
		return "", "", false, nil
	}
	raw, _ = vals[0].(string)
	token, _ = vals[1].(string)
	if raw == "" && token == "" {
		return "", "", false, nil
	}
	if raw == "" || token == "" {
		s.logger.Warn("session store: half-present persistent pair, clearing",
			slog.String("scope", s.scope))
		s.clearTier(ctx, TierPersistent)
		return "", "", false, nil
	}
	return raw, token, true, nil
}

func (s *Store) decode(ctx context.Context, raw string, tier Tier) *UserSession {
	var sess UserSession
	if err := json.Unmarshal([]byte(raw), &sess); err == nil && sess.ID != "" && sess.Role.Valid() {
		return &sess
	}
	s.logger.Warn("session store: corrupt session blob, clearing",
		slog.String("tier", tier.String()),
		slog.String("scope", s.scope))
	s.clearTier(ctx, tier)
	return nil
}

func (s *Store) clearTier(ctx context.Context, tier Tier) {
	switch tier {
	case TierPersistent:
		if err := s.client.Del(ctx, s.sessionKey(), s.tokenKey()).Err(); err != nil {
			s.logger.Warn("session store: clear persistent tier", slog.Any("error", err))
		}
	case TierEphemeral:
		s.mem.clear()
	}
}
