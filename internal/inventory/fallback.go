package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"thalrakshak-assistant/internal/models"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// defaultUnits / defaultCities 内置兜底数据（固定值，保证离线时输出可复现）
var defaultUnits = map[models.BloodType]int{
	models.APositive:  45,
	models.ANegative:  12,
	models.BPositive:  38,
	models.BNegative:  9,
	models.ABPositive: 22,
	models.ABNegative: 6,
	models.OPositive:  52,
	models.ONegative:  15,
}

var defaultCities = map[string]map[models.BloodType]int{
	"Mumbai": {
		models.APositive: 12, models.ANegative: 3, models.BPositive: 10, models.BNegative: 2,
		models.ABPositive: 6, models.ABNegative: 2, models.OPositive: 14, models.ONegative: 4,
	},
	"Delhi": {
		models.APositive: 10, models.ANegative: 3, models.BPositive: 9, models.BNegative: 2,
		models.ABPositive: 5, models.ABNegative: 1, models.OPositive: 12, models.ONegative: 4,
	},
	"Bengaluru": {
		models.APositive: 9, models.ANegative: 2, models.BPositive: 7, models.BNegative: 2,
		models.ABPositive: 4, models.ABNegative: 1, models.OPositive: 10, models.ONegative: 3,
	},
	"Chennai": {
		models.APositive: 8, models.ANegative: 2, models.BPositive: 7, models.BNegative: 2,
		models.ABPositive: 4, models.ABNegative: 1, models.OPositive: 9, models.ONegative: 2,
	},
	"Kolkata": {
		models.APositive: 6, models.ANegative: 2, models.BPositive: 5, models.BNegative: 1,
		models.ABPositive: 3, models.ABNegative: 1, models.OPositive: 7, models.ONegative: 2,
	},
}

// FallbackSnapshot 内置兜底快照（库存服务与缓存都不可用时使用）
func FallbackSnapshot(now time.Time) *models.InventorySnapshot {
	s := &models.InventorySnapshot{
		Units:     make(map[models.BloodType]int, len(defaultUnits)),
		Cities:    make(map[string]map[models.BloodType]int, len(defaultCities)),
		Source:    models.SourceFallback,
		FetchedAt: now,
	}
	for bt, n := range defaultUnits {
		s.Units[bt] = n
	}
	for city, units := range defaultCities {
		m := make(map[models.BloodType]int, len(units))
		for bt, n := range units {
			m[bt] = n
		}
		s.Cities[city] = m
	}
	return s
}

// Fallback 兜底库存：内置数据，或可热更新的 JSON 文件
type Fallback struct {
	path    string
	logger  *zap.Logger
	now     func() time.Time
	current atomic.Pointer[models.InventorySnapshot]

	onReload func()
}

// NewFallback 创建兜底来源；path 为空时只使用内置数据
func NewFallback(path string, logger *zap.Logger) (*Fallback, error) {
	f := &Fallback{
		path:   path,
		logger: logger,
		now:    time.Now,
	}
	if path == "" {
		f.current.Store(FallbackSnapshot(time.Time{}))
		return f, nil
	}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Snapshot 当前兜底快照（副本，FetchedAt 为读取时刻）
func (f *Fallback) Snapshot() *models.InventorySnapshot {
	s := f.current.Load().Clone()
	s.Source = models.SourceFallback
	s.FetchedAt = f.now()
	return s
}

// OnReload 注册 Watch 成功重新加载后的回调；须在 Watch 之前调用
func (f *Fallback) OnReload(fn func()) {
	f.onReload = fn
}

// Reload 重新读取兜底文件；失败时保留上一次的数据
func (f *Fallback) Reload() error {
	if f.path == "" {
		return nil
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("failed to read fallback inventory file: %w", err)
	}
	var s models.InventorySnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to parse fallback inventory file %s: %w", f.path, err)
	}
	f.current.Store(&s)
	return nil
}

// Watch 监听兜底文件变化并自动 Reload，直到 ctx 结束
// 监听所在目录而非文件本身（编辑器保存时常见 rename + create）
func (f *Fallback) Watch(ctx context.Context) error {
	if f.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(f.path), err)
	}

	go func() {
		defer w.Close()
		target := filepath.Clean(f.path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := f.Reload(); err != nil {
					f.logger.Warn("Failed to reload fallback inventory", zap.Error(err))
					continue
				}
				f.logger.Info("Reloaded fallback inventory", zap.String("path", f.path))
				if f.onReload != nil {
					f.onReload()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				f.logger.Warn("Fallback inventory watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
