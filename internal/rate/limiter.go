package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited is an exported constant or variable used by the authentication engine.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable is an exported constant or variable used by the authentication engine.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Config holds fixed-window limiter tuning parameters.
type Config struct {
	KeyPrefix        string
	MaxFailures      int
	Window           time.Duration
	EnableIPThrottle bool
}

// Limiter enforces per-principal and optional per-client-IP failure budgets
// using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a fixed-window [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "fl"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *Limiter) principalKey(principalID string) string {
	return l.config.KeyPrefix + ":u:" + principalID
}

func (l *Limiter) ipKey(ip string) string {
	return l.config.KeyPrefix + ":ip:" + ip
}

// Check gates an attempt before any credential work. Once the failure budget
// for the window is spent it returns ErrRateLimited together with the time
// remaining until the window resets, regardless of credential correctness.
func (l *Limiter) Check(ctx context.Context, principalID, ip string) (time.Duration, error) {
	retryAfter, err := l.checkCounter(ctx, l.principalKey(principalID))
	if err != nil || retryAfter > 0 {
		return retryAfter, err
	}

	if l.config.EnableIPThrottle && ip != "" {
		return l.checkCounter(ctx, l.ipKey(ip))
	}

	return 0, nil
}

// RecordFailure counts a failed attempt for the principal+IP pair. The first
// failure of a window arms the window TTL.
func (l *Limiter) RecordFailure(ctx context.Context, principalID, ip string) error {
	if err := l.incrementWithWindow(ctx, l.principalKey(principalID)); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		return l.incrementWithWindow(ctx, l.ipKey(ip))
	}

	return nil
}

// Reset clears the failure counters for the principal+IP pair. Called after
// a successful verification.
func (l *Limiter) Reset(ctx context.Context, principalID, ip string) error {
	keys := []string{l.principalKey(principalID)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, l.ipKey(ip))
	}

	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Failures returns the current counter for a principal. Missing keys return
// zero and do not reveal account existence.
func (l *Limiter) Failures(ctx context.Context, principalID string) (int, error) {
	count, err := l.redis.Get(ctx, l.principalKey(principalID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string) (time.Duration, error) {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count < int64(l.config.MaxFailures) {
		return 0, nil
	}

	retryAfter, err := l.redis.PTTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if retryAfter <= 0 {
		// window expired between GET and PTTL
		return 0, nil
	}

	return retryAfter, ErrRateLimited
}

func (l *Limiter) incrementWithWindow(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.PExpire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return nil
}
