package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/erp/production/internal/domain/shared"
	"github.com/erp/production/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLocker(t *testing.T, ttl time.Duration) (*RedisOrderLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisOrderLocker(client, ttl, zap.NewNop()), mr
}

func TestRedisOrderLocker_TryLock(t *testing.T) {
	ctx := context.Background()

	t.Run("second holder is rejected until release", func(t *testing.T) {
		locker, mr := newLocker(t, 30*time.Second)

		unlock, err := locker.TryLock(ctx, "production-order:P1")
		require.NoError(t, err)
		assert.True(t, mr.Exists("erp:lock:production-order:P1"))
		assert.Equal(t, 30*time.Second, mr.TTL("erp:lock:production-order:P1"))

		_, err = locker.TryLock(ctx, "production-order:P1")
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		other, err := locker.TryLock(ctx, "production-order:P2")
		require.NoError(t, err)
		other()

		unlock()
		assert.False(t, mr.Exists("erp:lock:production-order:P1"))

		again, err := locker.TryLock(ctx, "production-order:P1")
		require.NoError(t, err)
		again()
	})

	t.Run("expired lease can be taken over", func(t *testing.T) {
		locker, mr := newLocker(t, time.Second)

		stale, err := locker.TryLock(ctx, "production-order:P1")
		require.NoError(t, err)
		mr.FastForward(2 * time.Second)

		fresh, err := locker.TryLock(ctx, "production-order:P1")
		require.NoError(t, err)

		stale()
		assert.True(t, mr.Exists("erp:lock:production-order:P1"), "stale release must not drop the new lease")
		fresh()
		assert.False(t, mr.Exists("erp:lock:production-order:P1"))
	})

	t.Run("release survives a cancelled context", func(t *testing.T) {
		locker, mr := newLocker(t, time.Minute)
		cctx, cancel := context.WithCancel(ctx)

		unlock, err := locker.TryLock(cctx, "production-order:P3")
		require.NoError(t, err)
		cancel()
		unlock()
		assert.False(t, mr.Exists("erp:lock:production-order:P3"))
	})

	t.Run("redis down", func(t *testing.T) {
		locker, mr := newLocker(t, time.Minute)
		mr.Close()

		_, err := locker.TryLock(ctx, "production-order:P1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	host := mr.Host()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := NewRedisClient(context.Background(), &config.RedisConfig{Enabled: true, Host: host, Port: port})
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()).Err())

	mr.Close()
	_, err = NewRedisClient(context.Background(), &config.RedisConfig{Enabled: true, Host: host, Port: port})
	assert.Error(t, err)
}
