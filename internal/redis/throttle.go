package redisclient

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle limits repeated login failures per account.
type Throttle interface {
	Allow(ctx context.Context, key string) bool
	RecordFailure(ctx context.Context, key string)
}

type loginThrottle struct {
	client *redis.Client
	window time.Duration
	max    int64
}

// NewLoginThrottle counts failed logins per key in a fixed window. It fails
// open: a redis outage must not lock administrators out.
func NewLoginThrottle(client *redis.Client, window time.Duration, max int) Throttle {
	return &loginThrottle{
		client: client,
		window: window,
		max:    int64(max),
	}
}

func (t *loginThrottle) redisKey(key string) string {
	return fmt.Sprintf("throttle:login:%s", key)
}

func (t *loginThrottle) Allow(ctx context.Context, key string) bool {
	n, err := t.client.Get(ctx, t.redisKey(key)).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("login throttle read failed: %v", err)
		}
		return true
	}
	return n < t.max
}

func (t *loginThrottle) RecordFailure(ctx context.Context, key string) {
	k := t.redisKey(key)

	n, err := t.client.Incr(ctx, k).Result()
	if err != nil {
		log.Printf("login throttle incr failed: %v", err)
		return
	}
	// first failure in this window starts the clock
	if n == 1 {
		if err := t.client.Expire(ctx, k, t.window).Err(); err != nil {
			log.Printf("login throttle expire failed: %v", err)
		}
	}
}
