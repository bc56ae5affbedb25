// Package entity 定义领域实体
package entity

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// Role 对话角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrVideoLimit 会话挂载的视频数已达上限
var ErrVideoLimit = errors.New("session video limit reached")

// ChatTurn 一轮对话记录
type ChatTurn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session 会话实体
//
// 会话持有视频记录与对话历史，向量数据按 session_id 隔离存放在
// 索引后端。摄取与问答在不同 goroutine 上并发访问同一会话，
// Videos 与 History 的读写都必须经由带锁方法。
type Session struct {
	mu sync.RWMutex

	ID        string                  `json:"id"`
	Videos    map[string]*VideoRecord `json:"videos"`
	History   []ChatTurn              `json:"history"`
	CreatedAt time.Time               `json:"created_at"`
	// LastActiveAt 最近访问时间，TTL 过期判定以此为准
	LastActiveAt time.Time `json:"last_active_at"`
}

// NewSession 创建会话
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Videos:       make(map[string]*VideoRecord),
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// Touch 刷新活跃时间
func (s *Session) Touch() {
	s.mu.Lock()
	s.LastActiveAt = time.Now()
	s.mu.Unlock()
}

// IsExpired 会话是否超出空闲 TTL
func (s *Session) IsExpired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	s.mu.RLock()
	last := s.LastActiveAt
	s.mu.RUnlock()
	return now.Sub(last) > ttl
}

// AttachVideo 挂载视频记录
// 同一视频重复挂载返回已有记录；超出 maxVideos 返回 ErrVideoLimit。
func (s *Session) AttachVideo(videoID, url string, maxVideos int) (*VideoRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.Videos[videoID]; ok {
		return rec, false, nil
	}
	if maxVideos > 0 && len(s.Videos) >= maxVideos {
		return nil, false, ErrVideoLimit
	}

	rec := NewVideoRecord(videoID, url)
	s.Videos[videoID] = rec
	return rec, true, nil
}

// Video 查找视频记录，不存在返回 nil
func (s *Session) Video(videoID string) *VideoRecord {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Videos[videoID]
}

// AttachedVideos 全部视频记录，按挂载时间升序
func (s *Session) AttachedVideos() []*VideoRecord {
	s.mu.RLock()
	out := make([]*VideoRecord, 0, len(s.Videos))
	for _, v := range s.Videos {
		out = append(out, v)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ReadyVideos 所有处于 ready 状态的视频记录，按挂载时间升序
func (s *Session) ReadyVideos() []*VideoRecord {
	var out []*VideoRecord
	for _, v := range s.AttachedVideos() {
		if v.IsReady() {
			out = append(out, v)
		}
	}
	return out
}

// AppendTurn 追加一轮对话，超出 limit 时淘汰最早的记录
func (s *Session) AppendTurn(role Role, content string, limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.History = append(s.History, ChatTurn{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	if limit > 0 && len(s.History) > limit {
		s.History = s.History[len(s.History)-limit:]
	}
}

// HistoryLen 当前对话轮数
func (s *Session) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.History)
}

// RecentHistory 最近 n 轮对话的副本
func (s *Session) RecentHistory(n int) []ChatTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.History
	if n > 0 && len(h) > n {
		h = h[len(h)-n:]
	}
	out := make([]ChatTurn, len(h))
	copy(out, h)
	return out
}
