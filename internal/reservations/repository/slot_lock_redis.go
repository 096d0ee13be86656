package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	reservationserrors "visitscheduler/internal/reservations/errors"
)

const redisLockPrefix = "visitscheduler:lock:"

// releaseScript deletes the key only when it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisSlotLocker struct {
	client *redis.Client
}

func NewRedisSlotLocker(client *redis.Client) SlotLocker {
	return &redisSlotLocker{client: client}
}

func (l *redisSlotLocker) Acquire(ctx context.Context, lockID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, redisLockPrefix+lockID, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire slot lock: %w", err)
	}
	if !ok {
		return "", reservationserrors.ErrLockHeld
	}
	return token, nil
}

func (l *redisSlotLocker) Release(ctx context.Context, lockID string, token string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{redisLockPrefix + lockID}, token).Int()
	if err != nil {
		return fmt.Errorf("failed to release slot lock: %w", err)
	}
	if n == 0 {
		return reservationserrors.ErrLockNotOwned
	}
	return nil
}
