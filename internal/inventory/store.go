package inventory

import (
	"sync/atomic"

	"thalrakshak-assistant/internal/models"
)

// Store 当前库存快照（无锁读取；会话共享、只读）
type Store struct {
	current atomic.Pointer[models.InventorySnapshot]
}

// NewStore 创建空 Store（首次加载前 Current 返回 nil）
func NewStore() *Store {
	return &Store{}
}

// Current 当前快照；nil 表示库存尚未加载。调用方不得修改返回值
func (s *Store) Current() *models.InventorySnapshot {
	return s.current.Load()
}

// Set 替换快照（存入副本，调用方之后修改原对象不影响读者）
func (s *Store) Set(snapshot *models.InventorySnapshot) {
	if snapshot == nil {
		return
	}
	s.current.Store(snapshot.Clone())
}

// SetFallback 仅当 Store 为空或当前快照本身是兜底数据时写入
// 返回 false 表示已有更可信的快照（接口、缓存或推送），未覆盖
func (s *Store) SetFallback(snapshot *models.InventorySnapshot) bool {
	if snapshot == nil {
		return false
	}
	next := snapshot.Clone()
	for {
		cur := s.current.Load()
		if cur != nil && cur.Source != models.SourceFallback {
			return false
		}
		if s.current.CompareAndSwap(cur, next) {
			return true
		}
	}
}
