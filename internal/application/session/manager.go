// Package session 提供会话生命周期管理
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipiq-api/internal/application/retrieval"
	"clipiq-api/internal/config"
	"clipiq-api/internal/domain/entity"
	"clipiq-api/internal/infrastructure/persistence/redis"
	pkgerrors "clipiq-api/pkg/errors"
	"clipiq-api/pkg/logger"
	"clipiq-api/pkg/metrics"
)

// Manager 会话管理器
//
// 会话是唯一的隔离边界：向量数据按 session 分桶，销毁会话时
// 索引分桶与摘要缓存一并清理。过期由后台 janitor 扫描回收，
// 访问时也会做惰性过期检查。
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entity.Session

	index retrieval.VectorIndex
	// cache 摘要缓存，未启用时为 nil
	cache *redis.Cache
	cfg   *config.SessionConfig
}

// NewManager 创建会话管理器
func NewManager(index retrieval.VectorIndex, cache *redis.Cache, cfg *config.SessionConfig) *Manager {
	return &Manager{
		sessions: make(map[string]*entity.Session),
		index:    index,
		cache:    cache,
		cfg:      cfg,
	}
}

// Create 创建新会话
func (m *Manager) Create(ctx context.Context) *entity.Session {
	s := entity.NewSession(uuid.NewString())

	m.mu.Lock()
	m.sessions[s.ID] = s
	total := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(total))
	logger.Info(ctx, "session created", "session_id", s.ID)
	return s
}

// Get 获取会话并刷新活跃时间；过期会话就地销毁并返回 not found
func (m *Manager) Get(ctx context.Context, id string) (*entity.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, pkgerrors.ErrSessionNotFound
	}

	if s.IsExpired(m.cfg.TTL, time.Now()) {
		m.Destroy(ctx, id)
		return nil, pkgerrors.ErrSessionNotFound.WithDetail("session expired")
	}

	s.Touch()
	return s, nil
}

// GetOrCreate id 为空时创建新会话
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*entity.Session, error) {
	if id == "" {
		return m.Create(ctx), nil
	}
	return m.Get(ctx, id)
}

// AttachVideo 向会话挂载视频记录
//
// 同一视频重复挂载返回已有记录；超出数量上限返回错误。
// 挂载的去重与上限判定在会话自身的锁内完成。
func (m *Manager) AttachVideo(ctx context.Context, sessionID, videoID, url string) (*entity.VideoRecord, bool, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, false, pkgerrors.ErrSessionNotFound
	}

	maxVideos := m.cfg.MaxVideos
	if maxVideos <= 0 {
		maxVideos = 2
	}

	rec, isNew, err := s.AttachVideo(videoID, url, maxVideos)
	if errors.Is(err, entity.ErrVideoLimit) {
		return nil, false, pkgerrors.ErrSessionVideoLimit
	}
	return rec, isNew, err
}

// AppendHistory 记录一轮对话
func (m *Manager) AppendHistory(sessionID string, role entity.Role, content string) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if ok {
		s.AppendTurn(role, content, m.cfg.HistoryLimit)
	}
}

// Destroy 销毁会话：索引分桶、摘要缓存与会话记录一并清理
func (m *Manager) Destroy(ctx context.Context, id string) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	total := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return
	}
	metrics.ActiveSessions.Set(float64(total))

	if err := m.index.DropSession(ctx, id); err != nil {
		logger.Error(ctx, "failed to drop session index", err, "session_id", id)
	}
	if m.cache != nil {
		if err := m.cache.InvalidateSession(ctx, id); err != nil {
			logger.Warn(ctx, "failed to invalidate session cache", "session_id", id, "error", err)
		}
	}
	logger.Info(ctx, "session destroyed", "session_id", id)
}

// StartJanitor 启动过期会话回收循环，ctx 取消时退出
func (m *Manager) StartJanitor(ctx context.Context) {
	interval := m.cfg.JanitorInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep(ctx)
			}
		}
	}()
}

func (m *Manager) sweep(ctx context.Context) {
	now := time.Now()

	m.mu.RLock()
	var expired []string
	for id, s := range m.sessions {
		if s.IsExpired(m.cfg.TTL, now) {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range expired {
		m.Destroy(ctx, id)
	}
	if len(expired) > 0 {
		logger.Info(ctx, "expired sessions swept", "count", len(expired))
	}
}

// Count 当前活跃会话数
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
