// Package ratelimit throttles failed logins and password reset requests with
// fixed-window Redis counters.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited      = errors.New("too many attempts")
	ErrRedisUnavailable = errors.New("rate limiter unavailable")
)

type Config struct {
	MaxAttempts int
	Cooldown    time.Duration
}

type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Minute
	}
	return &Limiter{redis: redisClient, config: cfg}
}

func loginKey(email, ip string) string {
	return "login:" + strings.ToLower(email) + ":" + ip
}

// CheckLogin fails with ErrRateLimited once the email+IP pair has used up its
// failed attempts for the current window.
func (l *Limiter) CheckLogin(ctx context.Context, email, ip string) error {
	count, err := l.redis.Get(ctx, loginKey(email, ip)).Int64()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) FailLogin(ctx context.Context, email, ip string) error {
	return l.hit(ctx, loginKey(email, ip))
}

// AllowReset counts a password reset request for the email and fails with
// ErrRateLimited once the window's budget is spent.
func (l *Limiter) AllowReset(ctx context.Context, email string) error {
	return l.hit(ctx, "reset:"+strings.ToLower(email))
}

func (l *Limiter) hit(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	// the window starts at the first hit
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) ResetLogin(ctx context.Context, email, ip string) error {
	if err := l.redis.Del(ctx, loginKey(email, ip)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
