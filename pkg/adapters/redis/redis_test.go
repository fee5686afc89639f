package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/lattice/pkg/adapters/redis"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunProjectStoreContract(t, redis.NewFromClient(client))
}

func TestRedisBlobStore_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunBlobStoreContract(t, redis.NewBlobStore(client, "", 0))
}

func TestRedisLocker_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunLockerContract(t, redis.NewLocker(client, redis.DefaultPrefix))
}

func TestRedisStore_TTL(t *testing.T) {
	mr, client := setup(t)
	ctx := context.Background()
	store := redis.NewFromClient(client, redis.WithTTL(time.Minute), redis.WithPrefix("test:"))

	require.NoError(t, store.Put(ctx, "blog", &domain.BuilderState{ProjectID: "blog", Version: "1"}))
	assert.True(t, mr.Exists("test:project:blog"))
	assert.Equal(t, time.Minute, mr.TTL("test:project:blog"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "blog")
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestRedisStore_ListPrunesExpired(t *testing.T) {
	mr, client := setup(t)
	ctx := context.Background()
	store := redis.NewFromClient(client)

	require.NoError(t, store.Put(ctx, "live", &domain.BuilderState{ProjectID: "live"}))
	// An index entry whose score is in the past belongs to an expired project.
	_, err := mr.ZAdd(redis.DefaultPrefix+"project:index", 1, "stale")
	require.NoError(t, err)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, ids)
}

func TestRedisBlobStore_TTL(t *testing.T) {
	mr, client := setup(t)
	ctx := context.Background()
	blobs := redis.NewBlobStore(client, "test:", time.Hour)

	require.NoError(t, blobs.Store(ctx, "blog/b1.zip", []byte("PK"), domain.ArchiveMIME))
	assert.Equal(t, time.Hour, mr.TTL("test:blob:blog/b1.zip"))

	data, mime, err := blobs.Fetch(ctx, "blog/b1.zip")
	require.NoError(t, err)
	assert.Equal(t, []byte("PK"), data)
	assert.Equal(t, domain.ArchiveMIME, mime)
}

func TestRedisLocker_ExpiredHolderCannotUnlockSuccessor(t *testing.T) {
	mr, client := setup(t)
	ctx := context.Background()
	locker := redis.NewLocker(client, "test:")

	first, err := locker.Lock(ctx, "blog", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	second, err := locker.Lock(ctx, "blog", 10*time.Second)
	require.NoError(t, err)

	// The stale unlock must not release the successor's lock.
	require.NoError(t, first(ctx))
	assert.True(t, mr.Exists("test:lock:blog"))

	require.NoError(t, second(ctx))
	assert.False(t, mr.Exists("test:lock:blog"))
}

func TestRedisLocker_ServerDown(t *testing.T) {
	mr, client := setup(t)
	mr.Close()

	_, err := redis.NewLocker(client, "test:").Lock(context.Background(), "blog", time.Second)
	assert.ErrorIs(t, err, redis.ErrLockAcquire)
}
