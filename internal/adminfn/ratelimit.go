package adminfn

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter decides whether a caller may perform another privileged call.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RedisOptions describe the Redis connection backing the limiter.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}

// counter is the subset of redis.Cmdable the limiter needs.
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisLimiter is a fixed window counter: the first hit in a window sets the
// key's expiry and every hit increments it.
type RedisLimiter struct {
	client counter
	limit  int
	window time.Duration
	prefix string
}

// NewRedisLimiter allows limit calls per window for each key.
func NewRedisLimiter(client redis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window, prefix: "adminfn:rate:"}
}

// Allow records a hit for key and reports whether it fits in the window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l.limit <= 0 {
		return Decision{Allowed: true}, nil
	}
	redisKey := l.prefix + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("increment %s: %w", redisKey, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("expire %s: %w", redisKey, err)
		}
	}
	if count <= int64(l.limit) {
		return Decision{Allowed: true}, nil
	}

	ttl, err := l.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return Decision{Allowed: false, RetryAfter: l.window}, nil
	}
	if ttl < 0 {
		// The key outlived a failed Expire on its first hit and would never
		// reset on its own.
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("expire %s: %w", redisKey, err)
		}
		ttl = l.window
	}
	if ttl == 0 {
		ttl = l.window
	}
	return Decision{Allowed: false, RetryAfter: ttl}, nil
}
