package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	reservationserrors "visitscheduler/internal/reservations/errors"
	"visitscheduler/pkg/config"
	mongotx "visitscheduler/pkg/db/mongo"
)

const (
	SlotLocksCollection = "Slot_locks"
)

// SlotLocker is a cross-instance advisory lock. Acquire returns
// ErrLockHeld when another holder owns lockID; the returned token must be
// passed to Release.
type SlotLocker interface {
	Acquire(ctx context.Context, lockID string, ttl time.Duration) (token string, err error)
	Release(ctx context.Context, lockID string, token string) error
}

type slotLockDocument struct {
	ID        string    `bson:"_id"`
	Token     string    `bson:"token"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

type mongoSlotLocker struct {
	cfg        *config.Config
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoSlotLocker(cfg *config.Config) SlotLocker {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotLocker{
		cfg:        cfg,
		collection: db.Collection(SlotLocksCollection),
		now:        time.Now,
	}
}

// Acquire inserts the lock document; the unique _id makes a second insert
// fail. A lock past its expiry is removed and the insert tried once more,
// since the TTL monitor only runs every minute.
func (l *mongoSlotLocker) Acquire(ctx context.Context, lockID string, ttl time.Duration) (string, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, l.cfg.WriteTimeout)
	defer cancel()

	token := uuid.NewString()
	for attempt := 0; attempt < 2; attempt++ {
		now := l.now().UTC()
		_, err := l.collection.InsertOne(ctx, slotLockDocument{
			ID:        lockID,
			Token:     token,
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
		})
		if err == nil {
			return token, nil
		}
		if !mongotx.IsDuplicateKey(err) {
			return "", fmt.Errorf("failed to acquire slot lock: %w", err)
		}

		res, err := l.collection.DeleteOne(ctx, bson.M{
			"_id":        lockID,
			"expires_at": bson.M{"$lt": now},
		})
		if err != nil {
			return "", fmt.Errorf("failed to clear expired slot lock: %w", err)
		}
		if res.DeletedCount == 0 {
			break
		}
	}
	return "", reservationserrors.ErrLockHeld
}

func (l *mongoSlotLocker) Release(ctx context.Context, lockID string, token string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, l.cfg.WriteTimeout)
	defer cancel()

	res, err := l.collection.DeleteOne(ctx, bson.M{"_id": lockID, "token": token})
	if err != nil {
		return fmt.Errorf("failed to release slot lock: %w", err)
	}
	if res.DeletedCount == 0 {
		return reservationserrors.ErrLockNotOwned
	}
	return nil
}

// AcquireWithRetry polls Acquire with a growing backoff until the lock is
// taken, wait elapses, or ctx ends. On timeout it returns ErrLockHeld.
func AcquireWithRetry(ctx context.Context, locker SlotLocker, lockID string, ttl, wait time.Duration) (string, error) {
	const (
		initialBackoff = 25 * time.Millisecond
		maxBackoff     = 200 * time.Millisecond
	)

	deadline := time.Now().Add(wait)
	backoff := initialBackoff
	for {
		token, err := locker.Acquire(ctx, lockID, ttl)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, reservationserrors.ErrLockHeld) {
			return "", err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", err
		}
		sleep := min(backoff, remaining)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, maxBackoff)
	}
}
