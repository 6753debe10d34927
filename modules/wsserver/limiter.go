package wsserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Default inbound rate per connection.
const (
	messagesPerSecond = 10
	burstSize         = 20
)

// Limiter decides whether a connection may send another message.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	// Release drops the state kept for key.
	Release(key string)
}

// TokenBucketLimiter keeps one in-memory token bucket per key.
type TokenBucketLimiter struct {
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
	now     func() time.Time
	mu      sync.Mutex
}

// NewTokenBucketLimiter creates a limiter allowing burst messages at once
// and perSecond messages per second after that.
func NewTokenBucketLimiter(perSecond, burst int) *TokenBucketLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucketLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow takes one token from the bucket of key.
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = b
	}
	l.mu.Unlock()

	return b.AllowN(l.now(), 1), nil
}

// Release forgets the bucket of key.
func (l *TokenBucketLimiter) Release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// slidingWindowScript trims the window, counts it and records the message atomically.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local counter_key = KEYS[2]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_size_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)
	if count < limit then
		local counter = redis.call('INCR', counter_key)
		redis.call('ZADD', key, now, now .. ':' .. counter)
		redis.call('PEXPIRE', key, window_size_ms)
		redis.call('PEXPIRE', counter_key, window_size_ms)
		return 1
	end
	return 0
`)

// SlidingWindowLimiter counts messages in a sliding window kept in a Redis sorted set,
// so limits hold across server instances.
type SlidingWindowLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewSlidingWindowLimiter allows limit messages per window for every key.
func NewSlidingWindowLimiter(client *redis.Client, limit int, window time.Duration, prefix string) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: prefix,
	}
}

// Allow records a message for key if the window still has room.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	redisKey := l.prefix + key

	allowed, err := slidingWindowScript.Run(ctx, l.client, []string{redisKey, redisKey + ":counter"},
		now.UnixMilli(),
		now.Add(-l.window).UnixMilli(),
		l.limit,
		l.window.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	return allowed == 1, nil
}

// Release is a no-op: the window keys expire on their own.
func (l *SlidingWindowLimiter) Release(string) {}

// windowFor converts a token bucket rate into an equivalent sliding window.
func windowFor(perSecond, burst int) (int, time.Duration) {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = perSecond
	}
	return burst, time.Duration(burst) * time.Second / time.Duration(perSecond)
}
