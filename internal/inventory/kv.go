package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"thalrakshak-assistant/internal/models"

	"github.com/go-redis/redis/v8"
)

// CacheKey Redis 中最近一次成功拉取的库存快照
const CacheKey = "thalrakshak:inventory:snapshot"

// ErrCacheMiss 缓存中没有可用快照（未写入或已过期）
var ErrCacheMiss = errors.New("inventory cache miss")

// KVStore 快照缓存的底层存储；生产用 Redis，测试用内存实现
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// RedisKVStore 基于 go-redis；redis.Nil 统一映射为 ErrCacheMiss
type RedisKVStore struct {
	client *redis.Client
}

func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s from redis: %w", key, err)
	}
	return val, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s to redis: %w", key, err)
	}
	return nil
}

// SnapshotCache 库存快照的 JSON 缓存，位于 CacheKey
// 读出的快照 Source 一律为 cache，与写入时的来源无关
type SnapshotCache struct {
	kv  KVStore
	ttl time.Duration
}

// NewSnapshotCache ttl <= 0 表示不过期
func NewSnapshotCache(kv KVStore, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{kv: kv, ttl: ttl}
}

// Load 读取缓存快照；不存在时返回 ErrCacheMiss
func (c *SnapshotCache) Load(ctx context.Context) (*models.InventorySnapshot, error) {
	raw, err := c.kv.Get(ctx, CacheKey)
	if err != nil {
		return nil, err
	}
	var snapshot models.InventorySnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode cached inventory: %w", err)
	}
	snapshot.Source = models.SourceCache
	return &snapshot, nil
}

// Save 写入快照，覆盖上一次的缓存
func (c *SnapshotCache) Save(ctx context.Context, snapshot *models.InventorySnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode inventory for cache: %w", err)
	}
	return c.kv.Set(ctx, CacheKey, string(data), c.ttl)
}
