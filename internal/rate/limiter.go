package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter budgets. A zero budget disables that limit.
type Config struct {
	// Prefix namespaces every key. Empty means "hrdesk:rate:".
	Prefix string

	MaxLoginFailures int
	LoginWindow      time.Duration
	ThrottleByIP     bool

	MaxRefreshCalls int
	RefreshWindow   time.Duration
}

// DefaultConfig allows five failed logins per 15 minutes and ten refresh
// calls per refresh token per minute.
func DefaultConfig() Config {
	return Config{
		Prefix:           "hrdesk:rate:",
		MaxLoginFailures: 5,
		LoginWindow:      15 * time.Minute,
		ThrottleByIP:     true,
		MaxRefreshCalls:  10,
		RefreshWindow:    time.Minute,
	}
}

// Limiter enforces per-employee, per-address, and per-token budgets using
// Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a Limiter backed by redisClient.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "hrdesk:rate:"
	}
	return &Limiter{redis: redisClient, config: cfg}
}

// CheckLogin reports ErrRateLimited when employee (or ip, with ThrottleByIP)
// has used up its failed-login budget. It does not count an attempt.
func (l *Limiter) CheckLogin(ctx context.Context, employee, ip string) error {
	if l == nil || l.config.MaxLoginFailures <= 0 {
		return nil
	}
	if err := l.checkCounter(ctx, l.loginKey(employee), l.config.MaxLoginFailures); err != nil {
		return err
	}
	if l.config.ThrottleByIP && ip != "" {
		return l.checkCounter(ctx, l.loginIPKey(ip), l.config.MaxLoginFailures)
	}
	return nil
}

// FailLogin records a failed login for employee and ip.
func (l *Limiter) FailLogin(ctx context.Context, employee, ip string) error {
	if l == nil || l.config.MaxLoginFailures <= 0 {
		return nil
	}
	if _, err := l.incrementWithTTL(ctx, l.loginKey(employee), l.config.LoginWindow); err != nil {
		return err
	}
	if l.config.ThrottleByIP && ip != "" {
		if _, err := l.incrementWithTTL(ctx, l.loginIPKey(ip), l.config.LoginWindow); err != nil {
			return err
		}
	}
	return nil
}

// ResetLogin clears the failed-login counters after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, employee, ip string) error {
	if l == nil || l.config.MaxLoginFailures <= 0 {
		return nil
	}
	keys := []string{l.loginKey(employee)}
	if l.config.ThrottleByIP && ip != "" {
		keys = append(keys, l.loginIPKey(ip))
	}
	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// LoginFailures returns the failed-login count of employee in the current
// window. Unknown employees report zero.
func (l *Limiter) LoginFailures(ctx context.Context, employee string) (int, error) {
	count, err := l.redis.Get(ctx, l.loginKey(employee)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(max(count, 0)), nil
}

// AllowRefresh counts one refresh call for token and reports ErrRateLimited
// once the window's budget is exceeded.
func (l *Limiter) AllowRefresh(ctx context.Context, token string) error {
	if l == nil || l.config.MaxRefreshCalls <= 0 {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, l.config.Prefix+"refresh:"+token, l.config.RefreshWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRefreshCalls) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) loginKey(employee string) string { return l.config.Prefix + "login:" + employee }
func (l *Limiter) loginIPKey(ip string) string       { return l.config.Prefix + "login-ip:" + ip }

func (l *Limiter) checkCounter(ctx context.Context, key string, budget int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(budget) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: the TTL is set on the first hit only.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}
