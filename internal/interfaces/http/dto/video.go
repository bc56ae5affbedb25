package dto

import (
	"time"

	"clipiq-api/internal/domain/entity"
)

// ProcessVideoRequest 视频摄取请求
type ProcessVideoRequest struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url" binding:"required"`
}

// VideoView 视频记录视图
type VideoView struct {
	VideoID      string    `json:"video_id"`
	Status       string    `json:"status"`
	Title        string    `json:"title,omitempty"`
	Description  string    `json:"description,omitempty"`
	Channel      string    `json:"channel,omitempty"`
	DurationSec  float64   `json:"duration_sec,omitempty"`
	PublishedAt  string    `json:"published_at,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Language     string    `json:"language,omitempty"`
	ChunkCount   int       `json:"chunk_count,omitempty"`
	FailReason   string    `json:"fail_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProcessVideoResponse 视频摄取响应
type ProcessVideoResponse struct {
	SessionID string    `json:"session_id"`
	Video     VideoView `json:"video"`
}

// NewVideoView 从领域记录构造视图
// 记录可能仍在被摄取流水线更新，读取基于一致性快照
func NewVideoView(rec *entity.VideoRecord) VideoView {
	snap := rec.Snapshot()
	v := VideoView{
		VideoID:    snap.VideoID,
		Status:     string(snap.Status),
		Language:   snap.Language,
		ChunkCount: snap.ChunkCount,
		FailReason: snap.FailReason,
		CreatedAt:  snap.CreatedAt,
		UpdatedAt:  snap.UpdatedAt,
	}
	if snap.Meta != nil && !snap.Meta.Placeholder {
		v.Title = snap.Meta.Title
		v.Description = snap.Meta.Description
		v.Channel = snap.Meta.Channel
		v.DurationSec = snap.Meta.Duration.Seconds()
		v.PublishedAt = snap.Meta.PublishedAt
		v.ThumbnailURL = snap.Meta.ThumbnailURL
	}
	return v
}
