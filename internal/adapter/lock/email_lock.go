package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLocked is returned when another request holds the lock for an email.
var ErrLocked = errors.New("email is locked by another request")

// ReleaseFunc releases a held lock.
type ReleaseFunc func(ctx context.Context)

// EmailLocker serializes user creation per email address.
type EmailLocker interface {
	// Acquire reserves email until the returned ReleaseFunc is called or the TTL expires.
	// It returns ErrLocked if the email is already reserved.
	Acquire(ctx context.Context, email string) (ReleaseFunc, error)
}

// releaseScript deletes the key only if it still holds our token,
// so an expired lock taken over by another request is left alone.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisEmailLocker implements EmailLocker with SET NX PX.
type RedisEmailLocker struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisEmailLocker creates a Redis-backed email locker.
func NewRedisEmailLocker(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisEmailLocker {
	return &RedisEmailLocker{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// lockKey generates a Redis key for an email. The email is used exactly as
// stored so the lock matches the backend unique index.
func (l *RedisEmailLocker) lockKey(email string) string {
	return fmt.Sprintf("user:email-lock:%s", email)
}

// Acquire reserves email for the lock TTL.
func (l *RedisEmailLocker) Acquire(ctx context.Context, email string) (ReleaseFunc, error) {
	key := l.lockKey(email)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		l.log.Error("failed to acquire email lock", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to acquire email lock: %w", err)
	}
	if !ok {
		l.log.Debug("email lock held", zap.String("key", key))
		return nil, ErrLocked
	}

	l.log.Debug("email lock acquired", zap.String("key", key), zap.Duration("ttl", l.ttl))
	return func(ctx context.Context) {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.log.Warn("failed to release email lock", zap.String("key", key), zap.Error(err))
			return
		}
		l.log.Debug("email lock released", zap.String("key", key))
	}, nil
}
