package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	EnableStartThrottle  bool
	EnableIPThrottle     bool
	EnableSubmitThrottle bool
	MaxStartAttempts     int
	StartWindow          time.Duration
	MaxSubmitAttempts    int
	SubmitWindow         time.Duration
}

// Limiter enforces per-principal, per-IP, and per-session rate limits for
// session start and response submit operations using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

func startPrincipalKey(tenantID, principalID string) string {
	return "afs:" + tenantID + ":" + principalID
}

func startIPKey(ip string) string {
	return "afi:" + ip
}

func submitKey(sessionID string) string {
	return "afr:" + sessionID
}

// CheckStart enforces the session start budget for the tenant+principal pair
// and, when IP throttling is enabled, the caller's IP. Counters increment on
// every call so unauthenticated floods cannot probe for free.
func (l *Limiter) CheckStart(ctx context.Context, tenantID, principalID, ip string) error {
	if !l.config.EnableStartThrottle {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, startPrincipalKey(tenantID, principalID), l.config.StartWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxStartAttempts) {
		return ErrRateLimited
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, startIPKey(ip), l.config.StartWindow)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxStartAttempts) {
			return ErrRateLimited
		}
	}

	return nil
}

// CheckSubmit enforces the per-session submit budget by incrementing the
// counter and applying the window TTL.
func (l *Limiter) CheckSubmit(ctx context.Context, sessionID string) error {
	if !l.config.EnableSubmitThrottle {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, submitKey(sessionID), l.config.SubmitWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxSubmitAttempts) {
		return ErrRateLimited
	}

	return nil
}

// ResetStart clears the start counters for the tenant+principal pair.
// Called after a session completes with ALLOW.
func (l *Limiter) ResetStart(ctx context.Context, tenantID, principalID, ip string) error {
	keys := []string{startPrincipalKey(tenantID, principalID)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, startIPKey(ip))
	}

	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// GetStartAttempts returns the current start counter for a tenant+principal.
// Missing keys return zero and do not reveal principal existence.
func (l *Limiter) GetStartAttempts(ctx context.Context, tenantID, principalID string) (int, error) {
	count, err := l.redis.Get(ctx, startPrincipalKey(tenantID, principalID)).Int64()
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

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
