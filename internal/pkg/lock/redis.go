package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "payroll:run:"

// RedisLocker takes a SetNX lock with a TTL so a crashed holder cannot
// wedge the key forever.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := keyPrefix + key

	ok, err := l.client.SetNX(ctx, lockKey, "locked", l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyLocked
	}

	release := func() {
		// Release must not inherit a cancelled request context.
		l.client.Del(context.Background(), lockKey)
	}
	return release, nil
}
