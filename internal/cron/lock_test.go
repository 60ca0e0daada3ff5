package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRedis struct {
	values map[string]string
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func TestRedisLockIsExclusiveAndOwnerChecked(t *testing.T) {
	store := &memoryRedis{values: map[string]string{}}
	first, err := NewRedisLock(store, "test", "replica-a", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "test", "replica-b", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Contains(t, store.values["rd:cron-worker:lock:test"], "replica-a/")

	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "rd:cron-worker:lock:test")

	require.NoError(t, first.Release(ctx))
	assert.NotContains(t, store.values, "rd:cron-worker:lock:test")
}

func TestRedisLockKeepsKeyTakenOverAfterExpiry(t *testing.T) {
	store := &memoryRedis{values: map[string]string{}}
	lock, err := NewRedisLock(store, "test", "replica-a", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	store.values["rd:cron-worker:lock:test"] = "replica-b/other"

	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "replica-b/other", store.values["rd:cron-worker:lock:test"])
}

func TestNewRedisLockRequiresEnv(t *testing.T) {
	_, err := NewRedisLock(&memoryRedis{}, " ", "replica-a", time.Minute)
	assert.Error(t, err)
}
