package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FinanceLockKey builds redis keys for finance critical sections.
func FinanceLockKey(orgID, periodID int64) string {
	return fmt.Sprintf("finance:org:%d:period:%d:lock", orgID, periodID)
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker hands out short lived exclusive locks backed by SET NX PX.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker wraps a redis client. A nil client yields a locker that always succeeds.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire takes the lock for ttl and returns its release func. ErrLockHeld is
// returned when another holder owns the key.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l == nil || l.client == nil {
		return func() {}, nil
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("shared: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func() {
		_ = releaseScript.Run(context.WithoutCancel(ctx), l.client, []string{key}, token).Err()
	}, nil
}
