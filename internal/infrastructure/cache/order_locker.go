package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/production/internal/application/production"
	"github.com/erp/production/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultLockPrefix = "erp:lock:"

// releaseScript deletes the lock only while it still holds our token, so a
// holder whose TTL expired cannot release a lock another instance took over.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOrderLocker is a production.OrderLocker shared by every server
// instance. It takes a SET NX PX lease per order and never waits for it.
type RedisOrderLocker struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisOrderLocker creates a locker whose leases expire after ttl
func NewRedisOrderLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisOrderLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisOrderLocker{
		client:    client,
		ttl:       ttl,
		keyPrefix: defaultLockPrefix,
		logger:    logger,
	}
}

// TryLock implements production.OrderLocker
func (l *RedisOrderLocker) TryLock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	redisKey := l.keyPrefix + key

	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire order lock: %w", err)
	}
	if !ok {
		return nil, shared.ErrConcurrencyConflict.WithDetail("lock", key)
	}

	return func() {
		// the caller's context may already be cancelled; the lease must still go
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
			l.logger.Warn("failed to release order lock",
				zap.String("lock", key),
				zap.Error(err),
			)
		}
	}, nil
}

var _ production.OrderLocker = (*RedisOrderLocker)(nil)
