package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

func TestRedisEmailLocker_Acquire(t *testing.T) {
	client, mr := setupTestRedis(t)
	locker := NewRedisEmailLocker(client, 10*time.Second, zaptest.NewLogger(t))
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "n@2.com")
	require.NoError(t, err)
	require.NotNil(t, release)

	assert.True(t, mr.Exists("user:email-lock:n@2.com"))
	assert.Equal(t, 10*time.Second, mr.TTL("user:email-lock:n@2.com"))
}

func TestRedisEmailLocker_SecondAcquireIsRejected(t *testing.T) {
	client, _ := setupTestRedis(t)
	locker := NewRedisEmailLocker(client, 10*time.Second, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := locker.Acquire(ctx, "n@2.com")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "n@2.com")
	assert.ErrorIs(t, err, ErrLocked)
}

func TestRedisEmailLocker_KeyIsCaseSensitive(t *testing.T) {
	client, mr := setupTestRedis(t)
	locker := NewRedisEmailLocker(client, 10*time.Second, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := locker.Acquire(ctx, "Alice@x.com")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "alice@x.com")
	require.NoError(t, err)

	assert.True(t, mr.Exists("user:email-lock:Alice@x.com"))
	assert.True(t, mr.Exists("user:email-lock:alice@x.com"))
}

func TestRedisEmailLocker_ReleaseFreesLock(t *testing.T) {
	client, mr := setupTestRedis(t)
	locker := NewRedisEmailLocker(client, 10*time.Second, zaptest.NewLogger(t))
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "n@2.com")
	require.NoError(t, err)

	release(ctx)
	assert.False(t, mr.Exists("user:email-lock:n@2.com"))

	_, err = locker.Acquire(ctx, "n@2.com")
	assert.NoError(t, err)
}

func TestRedisEmailLocker_ExpiredLockIsNotReleasedByOldHolder(t *testing.T) {
	client, mr := setupTestRedis(t)
	locker := NewRedisEmailLocker(client, 2*time.Second, zaptest.NewLogger(t))
	ctx := context.Background()

	staleRelease, err := locker.Acquire(ctx, "n@2.com")
	require.NoError(t, err)

	// Fast forward time in miniredis
	mr.FastForward(3 * time.Second)

	_, err = locker.Acquire(ctx, "n@2.com")
	require.NoError(t, err)

	staleRelease(ctx)
	assert.True(t, mr.Exists("user:email-lock:n@2.com"), "new holder's lock must survive")
}

func TestRedisEmailLocker_RedisDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	locker := NewRedisEmailLocker(client, 10*time.Second, zaptest.NewLogger(t))

	mr.Close()

	_, err := locker.Acquire(context.Background(), "n@2.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
	assert.Contains(t, err.Error(), "failed to acquire email lock")
}
