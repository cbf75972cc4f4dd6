package stocktake

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRunLocker implements RunLocker with SET NX. The TTL bounds how long a
// crashed run can block the next one.
type RedisRunLocker struct {
	client *redis.Client
}

// NewRedisRunLocker constructs the redis-backed locker.
func NewRedisRunLocker(client *redis.Client) *RedisRunLocker {
	return &RedisRunLocker{client: client}
}

// Acquire takes the lock, reporting false when another holder exists.
func (l *RedisRunLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, "1", ttl).Result()
}

// Release drops the lock.
func (l *RedisRunLocker) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}
