package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter tuning parameters. A zero max disables that limit.
type Config struct {
	MaxLoginFailures   int
	LoginCooldown      time.Duration
	MaxRefreshAttempts int
	RefreshWindow      time.Duration
}

// DefaultConfig returns limits loose enough for interactive use.
func DefaultConfig() Config {
	return Config{
		MaxLoginFailures:   5,
		LoginCooldown:      15 * time.Minute,
		MaxRefreshAttempts: 30,
		RefreshWindow:      time.Minute,
	}
}

// Limiter enforces per-client sign-in and per-account refresh limits using
// Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
	config Config
}

// New creates a Limiter backed by the given Redis client. An empty prefix
// defaults to "hrmock".
func New(redisClient redis.UniversalClient, prefix string, cfg Config) *Limiter {
	if prefix == "" {
		prefix = "hrmock"
	}
	return &Limiter{
		redis:  redisClient,
		prefix: prefix,
		config: cfg,
	}
}

// CheckLogin reports ErrRateLimited once client has used up its sign-in
// failure budget. It does not count the attempt.
func (l *Limiter) CheckLogin(ctx context.Context, client string) error {
	if l.config.MaxLoginFailures <= 0 {
		return nil
	}

	count, err := l.redis.Get(ctx, l.loginKey(client)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxLoginFailures) {
		return ErrRateLimited
	}
	return nil
}

// FailLogin records a rejected sign-in for client.
func (l *Limiter) FailLogin(ctx context.Context, client string) error {
	if l.config.MaxLoginFailures <= 0 {
		return nil
	}
	_, err := l.incrementWithTTL(ctx, l.loginKey(client), l.config.LoginCooldown)
	return err
}

// ResetLogin clears the failure counter after a successful sign-in.
func (l *Limiter) ResetLogin(ctx context.Context, client string) error {
	if err := l.redis.Del(ctx, l.loginKey(client)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// LoginFailures returns the current failure counter for client.
func (l *Limiter) LoginFailures(ctx context.Context, client string) (int, error) {
	count, err := l.redis.Get(ctx, l.loginKey(client)).Int64()
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

// AllowRefresh counts a refresh for account and reports ErrRateLimited when
// the window's budget is exceeded.
func (l *Limiter) AllowRefresh(ctx context.Context, account string) error {
	if l.config.MaxRefreshAttempts <= 0 {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, l.refreshKey(account), l.config.RefreshWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRefreshAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) loginKey(client string) string {
	return l.prefix + ":login:" + client
}

func (l *Limiter) refreshKey(account string) string {
	return l.prefix + ":refresh:" + account
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 && ttl > 0 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
