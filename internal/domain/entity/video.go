// Package entity 定义领域实体
package entity

import (
	"fmt"
	"sync"
	"time"
)

// VideoStatus 视频处理状态
type VideoStatus string

const (
	VideoStatusPending            VideoStatus = "pending"
	VideoStatusTranscriptFetching VideoStatus = "transcript_fetching"
	VideoStatusChunking           VideoStatus = "chunking"
	VideoStatusEmbedding          VideoStatus = "embedding"
	VideoStatusReady              VideoStatus = "ready"
	VideoStatusNoTranscript       VideoStatus = "no_transcript"
	VideoStatusFailed             VideoStatus = "failed"
)

// validTransitions 状态机合法迁移表
var validTransitions = map[VideoStatus][]VideoStatus{
	VideoStatusPending:            {VideoStatusTranscriptFetching, VideoStatusFailed},
	VideoStatusTranscriptFetching: {VideoStatusChunking, VideoStatusNoTranscript, VideoStatusFailed},
	// 清洗后无有效文本时，分块阶段仍可落到 no_transcript
	VideoStatusChunking:  {VideoStatusEmbedding, VideoStatusNoTranscript, VideoStatusFailed},
	VideoStatusEmbedding: {VideoStatusReady, VideoStatusFailed},
}

// IsTerminal 是否终态
func (s VideoStatus) IsTerminal() bool {
	switch s {
	case VideoStatusReady, VideoStatusNoTranscript, VideoStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo 检查状态迁移是否合法
func (s VideoStatus) CanTransitionTo(target VideoStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// VideoMeta 视频元数据
// API 密钥缺失时使用占位数据，Title 以视频 ID 兜底
type VideoMeta struct {
	VideoID      string        `json:"video_id"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	Channel      string        `json:"channel,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	PublishedAt  string        `json:"published_at,omitempty"`
	ThumbnailURL string        `json:"thumbnail_url,omitempty"`
	Placeholder  bool          `json:"placeholder,omitempty"`
}

// TranscriptSegment 原始字幕片段
type TranscriptSegment struct {
	Text     string  `json:"text"`
	StartSec float64 `json:"start_sec"`
	Duration float64 `json:"duration"`
}

// Chunk 带时间范围的转录分块
type Chunk struct {
	ID       string  `json:"id"`
	VideoID  string  `json:"video_id"`
	Position int     `json:"position"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
}

// Timestamp 分块起始时间的 mm:ss（超过一小时为 h:mm:ss）展示形式
func (c *Chunk) Timestamp() string {
	return FormatTimestamp(c.StartSec)
}

// FormatTimestamp 秒数转 mm:ss / h:mm:ss
func FormatTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int(sec)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// VideoRecord 会话内的视频记录
//
// 摄取流水线推进状态时，问答路径可能正在读取同一条记录。
// 跨 goroutine 的读取走 CurrentStatus / IsReady / Title / Snapshot，
// 写入走 Transition 与 Set* 方法。
type VideoRecord struct {
	mu sync.RWMutex

	VideoID    string      `json:"video_id"`
	URL        string      `json:"url"`
	Status     VideoStatus `json:"status"`
	Meta       *VideoMeta  `json:"meta,omitempty"`
	Language   string      `json:"language,omitempty"`
	ChunkCount int         `json:"chunk_count"`
	// FailReason 终态为 failed / no_transcript 时的原因说明
	FailReason string    `json:"fail_reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewVideoRecord 创建处于 pending 状态的视频记录
func NewVideoRecord(videoID, url string) *VideoRecord {
	now := time.Now()
	return &VideoRecord{
		VideoID:   videoID,
		URL:       url,
		Status:    VideoStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition 执行状态迁移，非法迁移返回错误
func (v *VideoRecord) Transition(target VideoStatus) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.Status.CanTransitionTo(target) {
		return fmt.Errorf("invalid video status transition: %s -> %s", v.Status, target)
	}
	v.Status = target
	v.UpdatedAt = time.Now()
	return nil
}

// CurrentStatus 当前状态
func (v *VideoRecord) CurrentStatus() VideoStatus {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.Status
}

// IsReady 视频是否可用于检索
func (v *VideoRecord) IsReady() bool {
	return v.CurrentStatus() == VideoStatusReady
}

// SetMeta 写入视频元数据
func (v *VideoRecord) SetMeta(meta *VideoMeta) {
	v.mu.Lock()
	v.Meta = meta
	v.mu.Unlock()
}

// SetLanguage 记录所用字幕语言
func (v *VideoRecord) SetLanguage(lang string) {
	v.mu.Lock()
	v.Language = lang
	v.mu.Unlock()
}

// SetChunkCount 记录已索引分块数
func (v *VideoRecord) SetChunkCount(n int) {
	v.mu.Lock()
	v.ChunkCount = n
	v.mu.Unlock()
}

// SetFailReason 记录失败原因
func (v *VideoRecord) SetFailReason(reason string) {
	v.mu.Lock()
	v.FailReason = reason
	v.mu.Unlock()
}

// Snapshot 记录字段的一致性副本，供序列化等跨 goroutine 读取使用
func (v *VideoRecord) Snapshot() VideoRecord {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return VideoRecord{
		VideoID:    v.VideoID,
		URL:        v.URL,
		Status:     v.Status,
		Meta:       v.Meta,
		Language:   v.Language,
		ChunkCount: v.ChunkCount,
		FailReason: v.FailReason,
		CreatedAt:  v.CreatedAt,
		UpdatedAt:  v.UpdatedAt,
	}
}

// Title 元数据标题，缺失时回退到视频 ID
func (v *VideoRecord) Title() string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.Meta != nil && v.Meta.Title != "" {
		return v.Meta.Title
	}
	return v.VideoID
}
