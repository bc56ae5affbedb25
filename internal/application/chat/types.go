package chat

import (
	"clipiq-api/internal/domain/entity"
)

// Intent 对话意图
type Intent string

const (
	IntentRAG         Intent = "rag"
	IntentSummary     Intent = "summary"
	IntentCompare     Intent = "compare"
	IntentDualSummary Intent = "dual_summary"
)

// IsValid 是否为已知意图
func (i Intent) IsValid() bool {
	switch i {
	case IntentRAG, IntentSummary, IntentCompare, IntentDualSummary:
		return true
	}
	return false
}

// ProcessVideoInput 视频摄取输入
type ProcessVideoInput struct {
	// SessionID 为空时创建新会话
	SessionID string
	URL       string
}

// ProcessVideoResult 视频摄取结果
type ProcessVideoResult struct {
	SessionID string
	Video     *entity.VideoRecord
}

// ChatInput 对话输入
type ChatInput struct {
	SessionID string
	// VideoID 可选；会话内只有一个就绪视频时可省略
	VideoID string
	Query   string
	// Intent 显式指定意图，留空时自动路由
	Intent Intent
}

// Citation 时间戳引用，归属到具体视频
type Citation struct {
	VideoID   string  `json:"video_id"`
	Timestamp string  `json:"timestamp"`
	StartSec  float64 `json:"start_sec"`
}

// ChatResult 对话结果
type ChatResult struct {
	SessionID string
	VideoID   string
	Intent    Intent
	// IntentSource 意图来源：explicit / heuristic / llm
	IntentSource string
	Answer       string
	Citations    []Citation
	Evidence     []string
	// Degraded 检索证据不完整（如对比时一侧无证据）
	Degraded bool
}

// SummaryResult 摘要结果
type SummaryResult struct {
	SessionID string
	VideoID   string
	Summary   string
	Cached    bool
}

// CompareResult 双视频对比结果
type CompareResult struct {
	SessionID string
	VideoA    string
	VideoB    string
	Answer    string
	Citations []Citation
	Degraded  bool
}
