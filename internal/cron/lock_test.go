package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values map[string]string
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) DeleteIfValue(_ context.Context, key, value string) (bool, error) {
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockExclusive(t *testing.T) {
	store := &memoryStore{values: map[string]string{}}
	ctx := context.Background()

	first, err := NewRedisLock(store, "garage:lock:cron", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "garage:lock:cron", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// releasing a lock it never owned leaves the holder in place
	require.NoError(t, second.Release(ctx))
	require.Contains(t, store.values, "garage:lock:cron")

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisLockLeavesTakenOverLease(t *testing.T) {
	store := &memoryStore{values: map[string]string{}}
	ctx := context.Background()

	lock, err := NewRedisLock(store, "garage:lock:cron", time.Minute)
	require.NoError(t, err)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	holder, err := lock.Holder(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, holder)

	// lease expired and another replica took it
	store.values["garage:lock:cron"] = "other-host/1/abc"
	require.NoError(t, lock.Release(ctx))
	require.Equal(t, "other-host/1/abc", store.values["garage:lock:cron"])

	_, err = NewRedisLock(nil, "k", time.Minute)
	require.Error(t, err)
	_, err = NewRedisLock(store, "", time.Minute)
	require.Error(t, err)
}
