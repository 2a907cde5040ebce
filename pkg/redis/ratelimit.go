package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter implements sliding window rate limiting using Redis
// ⭐ SSOT: rate limiting lives here only
type RateLimiter struct {
	client *Client
	prefix string
}

// RateLimitConfig defines rate limit parameters
type RateLimitConfig struct {
	Key    string        // Unique identifier (e.g., "solve:<client>", "pcs")
	Limit  int           // Maximum requests allowed
	Window time.Duration // Time window
}

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // until the oldest request leaves the window; 0 when allowed
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
	}
}

// slidingWindow records a request when the window has room.
// Returns {allowed, remaining, oldest score}.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)
	if count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	return {0, 0, tonumber(oldest[2])}
`)

// Allow checks if a request is allowed under the rate limit
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (Decision, error) {
	if !r.client.Enabled() {
		return Decision{Allowed: true, Remaining: cfg.Limit}, nil
	}

	key := fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
	now := time.Now()
	nowMs := now.UnixMilli()
	windowMs := cfg.Window.Milliseconds()

	// members must be unique or concurrent requests in one millisecond collapse
	member := fmt.Sprintf("%d-%d", now.UnixNano(), r.client.nextSeq())

	result, err := slidingWindow.Run(ctx, r.client.Redis(), []string{key},
		nowMs,
		nowMs-windowMs,
		cfg.Limit,
		windowMs,
		member,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script failed: %w", err)
	}

	d := Decision{
		Allowed:   result[0] == 1,
		Remaining: int(result[1]),
	}
	if !d.Allowed {
		d.RetryAfter = time.Duration(result[2]+windowMs-nowMs) * time.Millisecond
		if d.RetryAfter < 0 {
			d.RetryAfter = 0
		}
	}
	return d, nil
}

// Wait blocks until a request is allowed or context is cancelled
func (r *RateLimiter) Wait(ctx context.Context, cfg RateLimitConfig) error {
	for {
		d, err := r.Allow(ctx, cfg)
		if err != nil {
			return err
		}
		if d.Allowed {
			return nil
		}

		delay := d.RetryAfter
		if delay <= 0 || delay > time.Second {
			delay = 100 * time.Millisecond
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Predefined rate limit configs
var (
	// Solve endpoints: 10 solves per client per minute
	SolveRateLimit = RateLimitConfig{
		Key:    "solve",
		Limit:  10,
		Window: time.Minute,
	}

	// ProCyclingStats: 2 requests per second shared by all collectors
	PCSRateLimit = RateLimitConfig{
		Key:    "pcs",
		Limit:  2,
		Window: time.Second,
	}
)

// ForClient scopes a limit to one caller (e.g., remote IP)
func (c RateLimitConfig) ForClient(id string) RateLimitConfig {
	c.Key = fmt.Sprintf("%s:%s", c.Key, id)
	return c
}

// PerSecond converts a requests-per-second rate into a one second window
func (c RateLimitConfig) PerSecond(rps float64) RateLimitConfig {
	if rps >= 1 {
		c.Limit = int(rps)
		c.Window = time.Second
		return c
	}
	c.Limit = 1
	c.Window = time.Duration(float64(time.Second) / rps)
	return c
}
