// Package ratelimit provides a Redis-backed request budget shared by every
// API instance.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default budget configuration values.
const (
	DefaultUserBudget = 600         // requests per user per window
	DefaultWindowSize = time.Minute // fixed window, aligned to the clock
)

// Redis key prefixes for request tracking.
const (
	KeyPrefixGlobal = "rl:global:"
	KeyPrefixUser   = "rl:user:"
)

// consumeScript checks both budgets and increments both counters atomically.
// A budget of 0 is unlimited.
var consumeScript = redis.NewScript(`
	local globalKey = KEYS[1]
	local userKey = KEYS[2]
	local globalBudget = tonumber(ARGV[1])
	local userBudget = tonumber(ARGV[2])
	local ttl = tonumber(ARGV[3])

	local globalUsed = tonumber(redis.call('GET', globalKey) or '0')
	local userUsed = tonumber(redis.call('GET', userKey) or '0')

	if globalBudget > 0 and globalUsed + 1 > globalBudget then
		return {0, globalUsed, userUsed}
	end
	if userBudget > 0 and userUsed + 1 > userBudget then
		return {0, globalUsed, userUsed}
	end

	redis.call('INCR', globalKey)
	redis.call('EXPIRE', globalKey, ttl)
	redis.call('INCR', userKey)
	redis.call('EXPIRE', userKey, ttl)

	return {1, globalUsed + 1, userUsed + 1}
`)

// WindowLimiter counts requests per fixed window in Redis, with one budget
// per caller and one across all callers.
type WindowLimiter struct {
	redis        redis.Cmdable
	globalBudget int
	userBudget   int
	windowSize   time.Duration
	keyTTL       time.Duration
	now          func() time.Time
}

// WindowLimiterConfig holds configuration for the limiter.
type WindowLimiterConfig struct {
	// Redis is shared by every instance enforcing the budget. Required.
	Redis redis.Cmdable

	// GlobalBudget caps requests per window across all callers. 0 is unlimited.
	GlobalBudget int

	// UserBudget caps requests per window for one caller. Default: 600.
	UserBudget int

	// WindowSize is the window duration. Default: 1m.
	WindowSize time.Duration
}

// Usage is the consumption of the current window
type Usage struct {
	GlobalUsed   int
	UserUsed     int
	GlobalBudget int
	UserBudget   int
	WindowStart  time.Time
}

// Validate checks if the configuration is valid.
func (c *WindowLimiterConfig) Validate() error {
	if c.Redis == nil {
		return errors.New("redis client is required")
	}
	if c.GlobalBudget < 0 {
		return errors.New("global budget cannot be negative")
	}
	if c.UserBudget < 0 {
		return errors.New("user budget cannot be negative")
	}
	if c.WindowSize < 0 {
		return errors.New("window size cannot be negative")
	}
	if c.GlobalBudget > 0 && c.UserBudget > c.GlobalBudget {
		return fmt.Errorf("user budget (%d) cannot exceed global budget (%d)", c.UserBudget, c.GlobalBudget)
	}
	return nil
}

// NewWindowLimiter creates a limiter with the given configuration.
func NewWindowLimiter(cfg *WindowLimiterConfig) (*WindowLimiter, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	userBudget := cfg.UserBudget
	if userBudget == 0 {
		userBudget = DefaultUserBudget
	}
	windowSize := cfg.WindowSize
	if windowSize == 0 {
		windowSize = DefaultWindowSize
	}

	return &WindowLimiter{
		redis:        cfg.Redis,
		globalBudget: cfg.GlobalBudget,
		userBudget:   userBudget,
		windowSize:   windowSize,
		// keys outlive their window by one window so late readers still see them
		keyTTL: 2 * windowSize,
		now:    time.Now,
	}, nil
}

func (l *WindowLimiter) windowStart() time.Time {
	return l.now().Truncate(l.windowSize)
}

func (l *WindowLimiter) keys(start time.Time, caller string) (globalKey, userKey string) {
	ts := strconv.FormatInt(start.UnixMilli(), 10)
	return KeyPrefixGlobal + ts, KeyPrefixUser + caller + ":" + ts
}

// TryConsume takes one request from caller's budget. When the budget is
// spent it returns false and the time until the next window.
func (l *WindowLimiter) TryConsume(ctx context.Context, caller string) (bool, time.Duration, error) {
	start := l.windowStart()
	globalKey, userKey := l.keys(start, caller)

	ttlSeconds := max(int(l.keyTTL.Seconds()), 1)
	result, err := consumeScript.Run(ctx, l.redis, []string{globalKey, userKey},
		l.globalBudget, l.userBudget, ttlSeconds).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("consume request budget: %w", err)
	}

	if result[0] != 1 {
		return false, l.untilNextWindow(start), nil
	}
	return true, 0, nil
}

// untilNextWindow returns the time until the window after start begins.
func (l *WindowLimiter) untilNextWindow(start time.Time) time.Duration {
	wait := start.Add(l.windowSize).Sub(l.now())
	if wait < 0 {
		wait = 0
	}
	return wait + time.Millisecond
}

// Usage returns the current window's counters for caller.
func (l *WindowLimiter) Usage(ctx context.Context, caller string) (*Usage, error) {
	start := l.windowStart()
	globalKey, userKey := l.keys(start, caller)

	pipe := l.redis.Pipeline()
	globalCmd := pipe.Get(ctx, globalKey)
	userCmd := pipe.Get(ctx, userKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read request budget: %w", err)
	}

	return &Usage{
		GlobalUsed:   parseIntOrZero(globalCmd),
		UserUsed:     parseIntOrZero(userCmd),
		GlobalBudget: l.globalBudget,
		UserBudget:   l.userBudget,
		WindowStart:  start,
	}, nil
}

// parseIntOrZero parses a Redis string command result as int, returning 0 on error.
func parseIntOrZero(cmd *redis.StringCmd) int {
	val, err := cmd.Int()
	if err != nil {
		return 0
	}
	return val
}

// UserBudget returns the per-caller budget.
func (l *WindowLimiter) UserBudget() int {
	return l.userBudget
}

// WindowSize returns the configured window size.
func (l *WindowLimiter) WindowSize() time.Duration {
	return l.windowSize
}
