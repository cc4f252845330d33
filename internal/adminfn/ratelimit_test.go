package adminfn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeCounter keeps counts in memory and records expiries.
type fakeCounter struct {
	counts   map[string]int64
	expiries  map[string]time.Duration
	incrErr   error
	expireErr error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, expiries: map[string]time.Duration{}}
}

func (f *fakeCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "incr", key)
	if f.incrErr != nil {
		cmd.SetErr(f.incrErr)
		return cmd
	}
	f.counts[key]++
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeCounter) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx, "expire", key, expiration)
	if f.expireErr != nil {
		cmd.SetErr(f.expireErr)
		return cmd
	}
	f.expiries[key] = expiration
	cmd.SetVal(true)
	return cmd
}

func (f *fakeCounter) TTL(ctx context.Context, key string) *redis.DurationCmd {
	cmd := redis.NewDurationCmd(ctx, time.Second, "ttl", key)
	expiry, ok := f.expiries[key]
	switch {
	case f.counts[key] == 0:
		cmd.SetVal(-2)
	case !ok:
		cmd.SetVal(-1)
	default:
		cmd.SetVal(expiry / 2)
	}
	return cmd
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	counter := newFakeCounter()
	limiter := &RedisLimiter{client: counter, limit: 2, window: time.Minute, prefix: "adminfn:rate:"}
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		decision, err := limiter.Allow(ctx, "admin-1")
		if err != nil || !decision.Allowed {
			t.Fatalf("call %d: expected allowed, got %#v (%v)", i, decision, err)
		}
	}
	if counter.expiries["adminfn:rate:admin-1"] != time.Minute {
		t.Fatalf("expected the first hit to set the window, got %v", counter.expiries)
	}

	decision, err := limiter.Allow(ctx, "admin-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Allowed || decision.RetryAfter != 30*time.Second {
		t.Fatalf("expected third call to be refused with the remaining ttl, got %#v", decision)
	}

	if decision, _ := limiter.Allow(ctx, "admin-2"); !decision.Allowed {
		t.Fatalf("expected other callers to have their own window")
	}
}

func TestRedisLimiterRestoresMissingExpiry(t *testing.T) {
	counter := newFakeCounter()
	limiter := &RedisLimiter{client: counter, limit: 2, window: time.Minute, prefix: "adminfn:rate:"}
	ctx := context.Background()
	key := "adminfn:rate:admin-1"

	counter.expireErr = errors.New("connection reset")
	if _, err := limiter.Allow(ctx, "admin-1"); err == nil {
		t.Fatalf("expected the failed expire to surface")
	}
	counter.expireErr = nil

	if decision, err := limiter.Allow(ctx, "admin-1"); err != nil || !decision.Allowed {
		t.Fatalf("expected second call to be allowed, got %#v (%v)", decision, err)
	}
	if _, ok := counter.expiries[key]; ok {
		t.Fatalf("expected no expiry before the limit is hit")
	}

	decision, err := limiter.Allow(ctx, "admin-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Allowed || decision.RetryAfter != time.Minute {
		t.Fatalf("expected a refusal for one full window, got %#v", decision)
	}
	if counter.expiries[key] != time.Minute {
		t.Fatalf("expected the window to be restored on the key, got %v", counter.expiries)
	}
}

func TestRedisLimiterErrorsAndDisabled(t *testing.T) {
	counter := newFakeCounter()
	counter.incrErr = errors.New("connection refused")
	limiter := &RedisLimiter{client: counter, limit: 1, window: time.Minute}

	if _, err := limiter.Allow(context.Background(), "admin-1"); err == nil {
		t.Fatalf("expected redis failure to surface")
	}

	disabled := NewRedisLimiter(nil, 0, time.Minute)
	if decision, err := disabled.Allow(context.Background(), "admin-1"); err != nil || !decision.Allowed {
		t.Fatalf("expected zero limit to allow everything, got %#v (%v)", decision, err)
	}
}
