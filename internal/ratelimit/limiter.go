// Package ratelimit provides a Redis-backed sliding window limiter and the
// chi middleware that applies it per client IP.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter allows at most limit requests per key within window.
type Limiter struct {
	client *redis.Client
	name   string
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewLimiter creates a limiter whose keys live under prefix+name+":".
func NewLimiter(client *redis.Client, prefix, name string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		name:   name,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Trims the window, then records the hit only when under the limit.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local counter_key = KEYS[2]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)

	if count < limit then
		local counter = redis.call('INCR', counter_key)
		redis.call('ZADD', key, now, now .. ':' .. counter)
		redis.call('PEXPIRE', key, window_ms)
		redis.call('PEXPIRE', counter_key, window_ms)
		return {1, limit - count - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local retry_after = 0
	if #oldest >= 2 then
		retry_after = oldest[2] + window_ms - now
	end
	return {0, 0, retry_after}
`)

// Allow records one request for key and reports whether it fits the window.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	redisKey := l.prefix + l.name + ":" + key
	windowMs := l.window.Milliseconds()

	raw, err := slidingWindow.Run(ctx, l.client, []string{redisKey, redisKey + ":counter"},
		now.UnixMilli(),
		now.Add(-l.window).UnixMilli(),
		l.limit,
		windowMs,
	).Slice()
	if err != nil {
		return Result{}, fmt.Errorf("run %s rate limit script: %w", l.name, err)
	}
	if len(raw) < 3 {
		return Result{}, fmt.Errorf("unexpected rate limit result length: %d", len(raw))
	}

	values := make([]int64, 3)
	for i := range values {
		v, ok := raw[i].(int64)
		if !ok {
			return Result{}, fmt.Errorf("unexpected rate limit result type %T", raw[i])
		}
		values[i] = v
	}

	res := Result{
		Allowed:   values[0] == 1,
		Remaining: int(values[1]),
		ResetAt:   now.Add(l.window),
	}
	if !res.Allowed && values[2] > 0 {
		res.RetryAfter = time.Duration(values[2]) * time.Millisecond
	}
	return res, nil
}

// Limit returns the number of requests allowed per window.
func (l *Limiter) Limit() int {
	return l.limit
}

// Name returns the limiter name used in its keys.
func (l *Limiter) Name() string {
	return l.name
}
