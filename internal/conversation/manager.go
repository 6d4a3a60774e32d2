package conversation

import (
	"context"
	"sync"
	"time"

	"thalrakshak-assistant/internal/models"

	"go.uber.org/zap"
)

// ManagerConfig 会话管理参数
type ManagerConfig struct {
	IdleTTL   time.Duration // 0 = 不回收
	QueueSize int
}

// Manager 会话管理器；会话之间除只读组件外不共享状态
type Manager struct {
	deps     Dependencies
	cfg      ManagerConfig
	observer SessionObserver
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager 创建会话管理器；observer 可为 nil
func NewManager(deps Dependencies, cfg ManagerConfig, observer SessionObserver) *Manager {
	deps = deps.withDefaults()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	return &Manager{
		deps:     deps,
		cfg:      cfg,
		observer: observer,
		logger:   deps.Logger,
		sessions: make(map[string]*Session),
	}
}

// Create 创建会话；profile 可为 nil
func (m *Manager) Create(profile *models.UserProfile) *Session {
	s := NewSession(m.deps, m.cfg.QueueSize)
	s.SetProfile(profile)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	if m.observer != nil {
		m.observer.SessionOpened()
	}
	m.logger.Info("Session created", zap.String("session_id", s.ID()))
	return s
}

// Get 查找会话
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close 关闭并移除会话（会话记录随之丢弃）
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.Close()
	if m.observer != nil {
		m.observer.SessionClosed()
	}
	m.logger.Info("Session closed", zap.String("session_id", id))
	return nil
}

// Len 当前会话数
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ReapIdle 关闭空闲超过 IdleTTL 的会话，返回关闭数量
func (m *Manager) ReapIdle(now time.Time) int {
	if m.cfg.IdleTTL <= 0 {
		return 0
	}

	var expired []string
	m.mu.RLock()
	for id, s := range m.sessions {
		if since, idle := s.idleSince(); idle && now.Sub(since) >= m.cfg.IdleTTL {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	closed := 0
	for _, id := range expired {
		if m.Close(id) == nil {
			closed++
		}
	}
	if closed > 0 {
		m.logger.Info("Reaped idle sessions", zap.Int("count", closed))
	}
	return closed
}

// Run 周期回收空闲会话；ctx 结束时关闭全部会话
func (m *Manager) Run(ctx context.Context) {
	defer m.CloseAll()
	if m.cfg.IdleTTL <= 0 {
		<-ctx.Done()
		return
	}

	interval := m.cfg.IdleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ReapIdle(m.deps.Now())
		}
	}
}

// CloseAll 关闭全部会话
func (m *Manager) CloseAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		_ = m.Close(id)
	}
}
