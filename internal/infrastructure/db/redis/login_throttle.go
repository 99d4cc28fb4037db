package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/incidenthub/auth-gateway/internal/core/ports"
)

const (
	DefaultMaxFailures = 5
	DefaultLockout     = 15 * time.Minute
)

// LoginThrottle counts failed logins per username in Redis.
// Key format: login:failures:<username>
// The counter expires lockout after the first failure in a window.
type LoginThrottle struct {
	client      redis.Cmdable
	maxFailures int64
	lockout     time.Duration
}

var _ ports.LoginThrottle = (*LoginThrottle)(nil)

// NewLoginThrottle wraps client. Non-positive limits fall back to the defaults.
func NewLoginThrottle(client redis.Cmdable, maxFailures int, lockout time.Duration) *LoginThrottle {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	if lockout <= 0 {
		lockout = DefaultLockout
	}
	return &LoginThrottle{client: client, maxFailures: int64(maxFailures), lockout: lockout}
}

// Locked reports whether username has reached the failure limit.
func (t *LoginThrottle) Locked(ctx context.Context, username string) (bool, error) {
	n, err := t.client.Get(ctx, t.key(username)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("throttle check: %w", err)
	}
	return n >= t.maxFailures, nil
}

// RecordFailure increments the counter, starting the window on the first failure.
func (t *LoginThrottle) RecordFailure(ctx context.Context, username string) error {
	key := t.key(username)
	n, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("throttle record: %w", err)
	}
	if n == 1 {
		if err := t.client.Expire(ctx, key, t.lockout).Err(); err != nil {
			return fmt.Errorf("throttle expire: %w", err)
		}
	}
	return nil
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, username string) error {
	if err := t.client.Del(ctx, t.key(username)).Err(); err != nil {
		return fmt.Errorf("throttle reset: %w", err)
	}
	return nil
}

func (t *LoginThrottle) key(username string) string {
	return "login:failures:" + username
}
