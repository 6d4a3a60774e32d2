package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"thalrakshak-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubFetcher struct {
	snapshot *models.InventorySnapshot
	err      error
	calls    int
}

func (s *stubFetcher) Fetch(ctx context.Context) (*models.InventorySnapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshot.Clone(), nil
}

type recordingObserver struct {
	mu      sync.Mutex
	sources []string
}

func (r *recordingObserver) ObserveRefresh(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, source)
}

func newTestRefresher(t *testing.T, fetcher Fetcher, kv KVStore) (*Refresher, *Store, *recordingObserver) {
	t.Helper()
	fallback, err := NewFallback("", zap.NewNop())
	require.NoError(t, err)
	store := NewStore()
	observer := &recordingObserver{}
	r := NewRefresher(fetcher, kv, fallback, store,
		RefresherConfig{CacheTTL: time.Minute}, observer, zap.NewNop())
	return r, store, observer
}

func liveSnapshot() *models.InventorySnapshot {
	return models.NewInventorySnapshot(map[models.BloodType]int{
		models.ABNegative: 8,
		models.OPositive:  21,
	}, models.SourceLive, time.Now())
}

func TestRefresher_LiveWritesCache(t *testing.T) {
	kv := newFakeKVStore()
	r, store, observer := newTestRefresher(t, &stubFetcher{snapshot: liveSnapshot()}, kv)

	assert.Nil(t, store.Current())
	got := r.Refresh(context.Background())

	assert.Equal(t, models.SourceLive, got.Source)
	assert.Equal(t, 8, store.Current().UnitsFor(models.ABNegative))
	assert.Equal(t, []string{models.SourceLive}, observer.sources)

	item, ok := kv.data[CacheKey]
	require.True(t, ok)
	assert.Equal(t, time.Minute, item.ttl)

	var cached models.InventorySnapshot
	require.NoError(t, json.Unmarshal([]byte(item.value), &cached))
	assert.Equal(t, 21, cached.UnitsFor(models.OPositive))
}

func TestRefresher_FetchFailsUsesCache(t *testing.T) {
	kv := newFakeKVStore()
	data, err := json.Marshal(liveSnapshot())
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), CacheKey, string(data), 0))

	r, store, observer := newTestRefresher(t, &stubFetcher{err: errors.New("timeout")}, kv)
	got := r.Refresh(context.Background())

	assert.Equal(t, models.SourceCache, got.Source)
	assert.Equal(t, 8, store.Current().UnitsFor(models.ABNegative))
	assert.Equal(t, []string{models.SourceCache}, observer.sources)
}

func TestRefresher_CacheMissUsesFallback(t *testing.T) {
	r, store, _ := newTestRefresher(t, &stubFetcher{err: errors.New("timeout")}, newFakeKVStore())
	got := r.Refresh(context.Background())

	assert.Equal(t, models.SourceFallback, got.Source)
	assert.Equal(t, 6, store.Current().UnitsFor(models.ABNegative))
}

func TestRefresher_CacheErrorUsesFallback(t *testing.T) {
	kv := newFakeKVStore()
	kv.getErr = errRedisDown
	r, _, _ := newTestRefresher(t, &stubFetcher{err: errors.New("timeout")}, kv)

	assert.Equal(t, models.SourceFallback, r.Refresh(context.Background()).Source)
}

func TestRefresher_NoFetcherNoCache(t *testing.T) {
	r, store, _ := newTestRefresher(t, nil, nil)
	r.Refresh(context.Background())
	assert.Equal(t, models.SourceFallback, store.Current().Source)
}

func TestRefresher_PushedSnapshotSurvivesTick(t *testing.T) {
	r, store, observer := newTestRefresher(t, nil, nil)
	ctx := context.Background()

	r.Refresh(ctx)
	require.Equal(t, models.SourceFallback, store.Current().Source)

	pushed := models.NewInventorySnapshot(map[models.BloodType]int{
		models.ABNegative: 99,
	}, models.SourcePush, time.Now())
	store.Set(pushed)

	// 下一次周期刷新只有兜底数据可用，不得覆盖推送快照
	got := r.Refresh(ctx)
	assert.Equal(t, models.SourcePush, got.Source)
	assert.Equal(t, models.SourcePush, store.Current().Source)
	assert.Equal(t, 99, store.Current().UnitsFor(models.ABNegative))
	assert.Equal(t, []string{models.SourceFallback}, observer.sources)
}

func TestRefresher_LiveSnapshotKeptWhenSourcesFail(t *testing.T) {
	fetcher := &stubFetcher{snapshot: liveSnapshot()}
	kv := newFakeKVStore()
	r, store, _ := newTestRefresher(t, fetcher, kv)
	ctx := context.Background()

	require.Equal(t, models.SourceLive, r.Refresh(ctx).Source)

	fetcher.err = errors.New("timeout")
	kv.getErr = errRedisDown
	got := r.Refresh(ctx)

	assert.Equal(t, models.SourceLive, got.Source)
	assert.Equal(t, 8, store.Current().UnitsFor(models.ABNegative))
}

func TestRefresher_FallbackReplacesFallback(t *testing.T) {
	r, store, observer := newTestRefresher(t, nil, nil)
	ctx := context.Background()

	first := r.Refresh(ctx)
	second := r.Refresh(ctx)

	assert.Equal(t, models.SourceFallback, second.Source)
	assert.False(t, second.FetchedAt.Before(first.FetchedAt))
	assert.Equal(t, second.FetchedAt, store.Current().FetchedAt)
	assert.Equal(t, []string{models.SourceFallback, models.SourceFallback}, observer.sources)
}

func TestRefresher_FallbackReloadReachesStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"inventory":{"bNegative":2}}`), 0o644))

	fallback, err := NewFallback(path, zap.NewNop())
	require.NoError(t, err)
	store := NewStore()
	r := NewRefresher(nil, nil, fallback, store, RefresherConfig{}, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Run(ctx) // interval 为 0：只加载一次
	require.NoError(t, fallback.Watch(ctx))
	require.Equal(t, 2, store.Current().UnitsFor(models.BNegative))

	require.NoError(t, os.WriteFile(path, []byte(`{"inventory":{"bNegative":12}}`), 0o644))

	assert.Eventually(t, func() bool {
		return store.Current().UnitsFor(models.BNegative) == 12
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, models.SourceFallback, store.Current().Source)
}

func TestRefresher_FallbackReloadKeepsPushedSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"inventory":{"bNegative":2}}`), 0o644))

	fallback, err := NewFallback(path, zap.NewNop())
	require.NoError(t, err)
	store := NewStore()
	r := NewRefresher(nil, nil, fallback, store, RefresherConfig{}, nil, zap.NewNop())
	r.Refresh(context.Background())

	store.Set(models.NewInventorySnapshot(map[models.BloodType]int{
		models.BNegative: 40,
	}, models.SourcePush, time.Now()))

	require.NoError(t, os.WriteFile(path, []byte(`{"inventory":{"bNegative":12}}`), 0o644))
	require.NoError(t, fallback.Reload())
	r.fallbackReloaded()

	assert.Equal(t, models.SourcePush, store.Current().Source)
	assert.Equal(t, 40, store.Current().UnitsFor(models.BNegative))
}

func TestRefresher_RunStopsOnCancel(t *testing.T) {
	fetcher := &stubFetcher{snapshot: liveSnapshot()}
	fallback, err := NewFallback("", zap.NewNop())
	require.NoError(t, err)
	store := NewStore()
	r := NewRefresher(fetcher, nil, fallback, store,
		RefresherConfig{Interval: 10 * time.Millisecond}, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.Current() != nil }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStore_SetFallback(t *testing.T) {
	store := NewStore()
	fallback := FallbackSnapshot(time.Now())

	assert.True(t, store.SetFallback(fallback))
	assert.True(t, store.SetFallback(fallback))

	store.Set(liveSnapshot())
	assert.False(t, store.SetFallback(fallback))
	assert.Equal(t, models.SourceLive, store.Current().Source)
	assert.False(t, store.SetFallback(nil))
}

func TestStore_SetStoresCopy(t *testing.T) {
	store := NewStore()
	s := liveSnapshot()
	store.Set(s)
	s.Units[models.ABNegative] = 100

	assert.Equal(t, 8, store.Current().UnitsFor(models.ABNegative))

	store.Set(nil)
	assert.NotNil(t, store.Current())
}
