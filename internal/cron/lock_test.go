package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeLockStore struct {
	owners     map[string]string
	lastTTL    time.Duration
	acquireErr error
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{owners: map[string]string{}}
}

func (f *fakeLockStore) AcquireLock(_ context.Context, name, owner string, ttl time.Duration) (bool, error) {
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	f.lastTTL = ttl
	if _, taken := f.owners[name]; taken {
		return false, nil
	}
	f.owners[name] = owner
	return true, nil
}

func (f *fakeLockStore) ReleaseLock(_ context.Context, name, owner string) error {
	if f.owners[name] == owner {
		delete(f.owners, name)
	}
	return nil
}

func TestRedisLockIsExclusive(t *testing.T) {
	store := newFakeLockStore()
	first, err := NewRedisLock(store, "cron:orderdesk", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "cron:orderdesk", time.Minute)
	require.NoError(t, err)

	ctx := context.Background()
	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, time.Minute, store.lastTTL)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// a non-owner release leaves the holder in place
	require.NoError(t, second.Release(ctx))
	require.Contains(t, store.owners, "cron:orderdesk")

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisLockDefaultsTTL(t *testing.T) {
	store := newFakeLockStore()
	lock, err := NewRedisLock(store, "cron", 0)
	require.NoError(t, err)

	_, err = lock.Acquire(context.Background())
	require.NoError(t, err)
	require.Equal(t, defaultLockTTL, store.lastTTL)
}

func TestRedisLockWrapsStoreError(t *testing.T) {
	store := newFakeLockStore()
	store.acquireErr = errors.New("connection refused")
	lock, err := NewRedisLock(store, "cron", time.Minute)
	require.NoError(t, err)

	ok, err := lock.Acquire(context.Background())
	require.False(t, ok)
	require.ErrorContains(t, err, "connection refused")
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "cron", time.Minute)
	require.Error(t, err)
	_, err = NewRedisLock(newFakeLockStore(), "", time.Minute)
	require.Error(t, err)
}
