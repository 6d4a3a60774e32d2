package inventory

import (
	"context"
	"errors"
	"time"

	"thalrakshak-assistant/internal/models"

	"go.uber.org/zap"
)

// RefreshObserver 记录每次加载使用的来源（由 metrics 实现）
type RefreshObserver interface {
	ObserveRefresh(source string)
}

// Refresher 库存刷新：接口 → 缓存 → 兜底
type Refresher struct {
	fetcher  Fetcher        // 可为 nil（仅兜底）
	cache    *SnapshotCache // 可为 nil（不使用缓存）
	fallback *Fallback
	store    *Store
	interval time.Duration
	observer RefreshObserver
	logger   *zap.Logger
}

// RefresherConfig 刷新参数
type RefresherConfig struct {
	CacheTTL time.Duration
	Interval time.Duration
}

// NewRefresher 创建刷新器
func NewRefresher(
	fetcher Fetcher,
	kv KVStore,
	fallback *Fallback,
	store *Store,
	cfg RefresherConfig,
	observer RefreshObserver,
	logger *zap.Logger,
) *Refresher {
	r := &Refresher{
		fetcher:  fetcher,
		fallback: fallback,
		store:    store,
		interval: cfg.Interval,
		observer: observer,
		logger:   logger,
	}
	if kv != nil {
		r.cache = NewSnapshotCache(kv, cfg.CacheTTL)
	}
	// 兜底文件热更新时同步到 Store（不依赖周期刷新）
	fallback.OnReload(r.fallbackReloaded)
	return r
}

// Refresh 加载一次快照并写入 Store，返回 Store 中的当前快照
// 接口与缓存都不可用时，兜底数据不覆盖已有的接口、缓存或推送快照
func (r *Refresher) Refresh(ctx context.Context) *models.InventorySnapshot {
	snapshot := r.load(ctx)
	if snapshot.Source != models.SourceFallback {
		r.store.Set(snapshot)
	} else if !r.store.SetFallback(snapshot) {
		current := r.store.Current()
		r.logger.Warn("Inventory sources unavailable, keeping current snapshot",
			zap.String("source", current.Source),
			zap.Time("fetched_at", current.FetchedAt))
		return current
	}
	if r.observer != nil {
		r.observer.ObserveRefresh(snapshot.Source)
	}
	return snapshot
}

func (r *Refresher) load(ctx context.Context) *models.InventorySnapshot {
	// 1. 库存服务
	if r.fetcher != nil {
		snapshot, err := r.fetcher.Fetch(ctx)
		if err == nil {
			r.writeCache(ctx, snapshot)
			return snapshot
		}
		r.logger.Warn("Inventory fetch failed, trying cache", zap.Error(err))
	}

	// 2. Redis 缓存
	if r.cache != nil {
		snapshot, err := r.cache.Load(ctx)
		if err == nil {
			return snapshot
		}
		if !errors.Is(err, ErrCacheMiss) {
			r.logger.Warn("Inventory cache read failed", zap.Error(err))
		}
	}

	// 3. 兜底数据
	r.logger.Info("Using fallback inventory")
	return r.fallback.Snapshot()
}

func (r *Refresher) writeCache(ctx context.Context, snapshot *models.InventorySnapshot) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Save(ctx, snapshot); err != nil {
		r.logger.Warn("Failed to write inventory cache", zap.Error(err))
	}
}

func (r *Refresher) fallbackReloaded() {
	if r.store.SetFallback(r.fallback.Snapshot()) {
		r.logger.Info("Applied reloaded fallback inventory")
	}
}

// Run 立即刷新一次，之后按 interval 周期刷新，直到 ctx 结束
func (r *Refresher) Run(ctx context.Context) {
	r.Refresh(ctx)
	if r.interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}
