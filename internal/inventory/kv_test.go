package inventory

import (
	"context"
	"testing"
	"time"

	"thalrakshak-assistant/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisKVStore) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = redisClient.Close() })
	return mr, NewRedisKVStore(redisClient)
}

func TestRedisKVStore_SetGet(t *testing.T) {
	mr, kv := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", "v", time.Minute))

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
	assert.Equal(t, time.Minute, mr.TTL("k"))
}

func TestRedisKVStore_Miss(t *testing.T) {
	mr, kv := setupTestRedis(t)
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// 过期后同样返回 ErrCacheMiss
	require.NoError(t, kv.Set(ctx, "short", "v", time.Second))
	mr.FastForward(2 * time.Second)
	_, err = kv.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSnapshotCache_SaveLoad(t *testing.T) {
	mr, kv := setupTestRedis(t)
	cache := NewSnapshotCache(kv, 5*time.Minute)
	ctx := context.Background()

	_, err := cache.Load(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, cache.Save(ctx, liveSnapshot()))
	assert.Equal(t, 5*time.Minute, mr.TTL(CacheKey))

	got, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SourceCache, got.Source)
	assert.Equal(t, 8, got.UnitsFor(models.ABNegative))
	assert.Equal(t, 21, got.UnitsFor(models.OPositive))
}

func TestSnapshotCache_CorruptEntry(t *testing.T) {
	mr, kv := setupTestRedis(t)
	require.NoError(t, mr.Set(CacheKey, "{not json"))

	_, err := NewSnapshotCache(kv, 0).Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestRedisKVStore_ConnectionError(t *testing.T) {
	mr, kv := setupTestRedis(t)
	mr.Close()

	_, err := kv.Get(context.Background(), CacheKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
