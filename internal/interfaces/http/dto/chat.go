package dto

import (
	"clipiq-api/internal/application/chat"
)

// ChatRequest 对话请求
type ChatRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	VideoID   string `json:"video_id"`
	Query     string `json:"query" binding:"required"`
	// Intent 显式意图，省略时由路由器判定
	Intent string `json:"intent"`
}

// Citation 时间戳引用
type Citation struct {
	VideoID   string  `json:"video_id"`
	Timestamp string  `json:"timestamp"`
	StartSec  float64 `json:"start_sec"`
}

// ChatResponse 对话响应
type ChatResponse struct {
	SessionID    string     `json:"session_id"`
	VideoID      string     `json:"video_id,omitempty"`
	Intent       string     `json:"intent"`
	IntentSource string     `json:"intent_source"`
	Answer       string     `json:"answer"`
	Citations    []Citation `json:"citations,omitempty"`
	Evidence     []string   `json:"evidence,omitempty"`
	Degraded     bool       `json:"degraded,omitempty"`
}

// SummaryRequest 摘要请求
type SummaryRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	VideoID   string `json:"video_id" binding:"required"`
}

// SummaryResponse 摘要响应
type SummaryResponse struct {
	SessionID string `json:"session_id"`
	VideoID   string `json:"video_id"`
	Summary   string `json:"summary"`
	Cached    bool   `json:"cached,omitempty"`
}

// CompareRequest 双视频对比请求
type CompareRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Query     string `json:"query" binding:"required"`
}

// CompareResponse 双视频对比响应
type CompareResponse struct {
	SessionID string     `json:"session_id"`
	VideoA    string     `json:"video_a"`
	VideoB    string     `json:"video_b"`
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations,omitempty"`
	Degraded  bool       `json:"degraded,omitempty"`
}

// NewCitations 从应用层引用构造视图
func NewCitations(cs []chat.Citation) []Citation {
	if len(cs) == 0 {
		return nil
	}
	out := make([]Citation, 0, len(cs))
	for _, c := range cs {
		out = append(out, Citation{VideoID: c.VideoID, Timestamp: c.Timestamp, StartSec: c.StartSec})
	}
	return out
}

// NewChatResponse 从应用层结果构造响应
func NewChatResponse(r *chat.ChatResult) ChatResponse {
	return ChatResponse{
		SessionID:    r.SessionID,
		VideoID:      r.VideoID,
		Intent:       string(r.Intent),
		IntentSource: r.IntentSource,
		Answer:       r.Answer,
		Citations:    NewCitations(r.Citations),
		Evidence:     r.Evidence,
		Degraded:     r.Degraded,
	}
}
