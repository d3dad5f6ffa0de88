package lock

import (
	"context"
	"time"

	ierr "github.com/loopbill/loopbill/internal/errors"
	"github.com/loopbill/loopbill/internal/logger"
	"github.com/loopbill/loopbill/internal/redis"
)

const keyPrefix = "lock:"

// RedisLock is a Lock backed by redis SET NX with TTL, safe across service
// instances. Expiry is handled server-side, so a crashed holder frees the
// key after at most the ttl it acquired with.
type RedisLock struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisLock creates a redis-backed distributed lock.
func NewRedisLock(client *redis.Client, log *logger.Logger) *RedisLock {
	return &RedisLock{client: client, log: log}
}

func (l *RedisLock) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.GetClient().SetNX(ctx, keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to acquire distributed lock").
			WithReportableDetails(map[string]interface{}{"key": key}).
			Mark(ierr.ErrSystem)
	}
	return ok, nil
}

func (l *RedisLock) Release(ctx context.Context, key string) error {
	if err := l.client.GetClient().Del(ctx, keyPrefix+key).Err(); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to release distributed lock").
			WithReportableDetails(map[string]interface{}{"key": key}).
			Mark(ierr.ErrSystem)
	}
	return nil
}
