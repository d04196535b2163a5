package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisLockerExclusive(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisLocker(client)
	ctx := context.Background()
	key := FinanceLockKey(1, 7)
	require.Equal(t, "finance:org:1:period:7:lock", key)

	release, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, key, time.Minute)
	require.ErrorIs(t, err, ErrLockHeld)

	release()
	require.False(t, mr.Exists(key))

	release, err = locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	release()
}

func TestRedisLockerExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisLocker(client)
	ctx := context.Background()
	key := FinanceLockKey(2, 3)

	_, err := locker.Acquire(ctx, key, time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	release, err := locker.Acquire(ctx, key, time.Second)
	require.NoError(t, err)
	release()
}

func TestNilLockerAlwaysAcquires(t *testing.T) {
	var locker *RedisLocker
	release, err := locker.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)
	release()
}
