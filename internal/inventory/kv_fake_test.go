package inventory

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeKVStore 仅用于单元测试（内存 KV + TTL，可注入错误）
type fakeKVStore struct {
	mu     sync.Mutex
	data   map[string]fakeKVItem
	getErr error
	sets   int
}

type fakeKVItem struct {
	value   string
	expires time.Time // zero = no ttl
	ttl     time.Duration
}

func newFakeKVStore() *fakeKVStore {
	return &fakeKVStore{
		data: make(map[string]fakeKVItem),
	}
}

func (f *fakeKVStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return "", f.getErr
	}
	item, ok := f.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	if !item.expires.IsZero() && time.Now().After(item.expires) {
		delete(f.data, key)
		return "", ErrCacheMiss
	}
	return item.value, nil
}

func (f *fakeKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	f.data[key] = fakeKVItem{value: value, expires: exp, ttl: ttl}
	f.sets++
	return nil
}

var errRedisDown = errors.New("redis: connection refused")
