package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idcard/internal/infra/persistence/storetest"
	"idcard/pkg/domain"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	store := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test-instance")
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.MemberStore {
		store, _ := setupTestStore(t)
		return store
	})
}

func TestNewStoreFromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewStore(context.Background(), "redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, DefaultNamespace, store.Namespace())
}

func TestNewStoreRejectsBadURL(t *testing.T) {
	_, err := NewStore(context.Background(), "not-a-url", "x")
	require.Error(t, err)
}

func TestKeyLayout(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	m := storetest.Fixture("482913")
	m.OwnerRef = "270655486318215168"
	require.NoError(t, store.Create(ctx, m))

	assert.Equal(t, "Asha Rao", mr.HGet("idcard:test-instance:member:482913", "name"))
	assert.Equal(t, "ACTIVE", mr.HGet("idcard:test-instance:member:482913", "status"))
	ids, err := mr.Members("idcard:test-instance:members")
	require.NoError(t, err)
	assert.Equal(t, []string{"482913"}, ids)
	bound, err := mr.Get("idcard:test-instance:owner:270655486318215168")
	require.NoError(t, err)
	assert.Equal(t, "482913", bound)
}

func TestNamespacesAreIsolated(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	a := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "a")
	b := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "b")
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.Create(ctx, storetest.Fixture("123456")))
	_, ok, err := b.Get(ctx, "123456")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, b.Create(ctx, storetest.Fixture("123456")))
}

func TestCorruptHashIsUnavailable(t *testing.T) {
	store, mr := setupTestStore(t)
	mr.HSet("idcard:test-instance:member:555555", "name", "Half Written")

	_, _, err := store.Get(context.Background(), "555555")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
}

func TestListSkipsDanglingIndexEntries(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, storetest.Fixture("200000")))
	_, err := mr.SAdd("idcard:test-instance:members", "300000")
	require.NoError(t, err)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "200000", all[0].ID)
}

func TestServerDownIsUnavailable(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	store := New(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), "down")
	defer store.Close()
	mr.Close()

	_, _, err := store.Get(context.Background(), "482913")
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
	err = store.Create(context.Background(), storetest.Fixture("482913"))
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
}
