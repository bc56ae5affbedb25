package retrieval

import (
	"context"

	"clipiq-api/internal/domain/entity"
)

// VectorIndex 定义应用层对“向量存储/检索”的最小依赖（port）。
// 由基础设施层提供具体实现（内存索引或 Milvus）。
type VectorIndex interface {
	// Insert 按 session 隔离写入分块向量，同一视频按 position 顺序追加
	Insert(ctx context.Context, sessionID string, items []*ChunkVector) error
	// Search 在指定 session（可限定 video）内检索
	Search(ctx context.Context, params *SearchParams) ([]*ScoredChunk, error)
	// CountChunks 返回某视频已索引的分块数
	CountChunks(ctx context.Context, sessionID, videoID string) (int, error)
	// ListChunks 按 position 升序返回某视频全部分块（摘要采样用）
	ListChunks(ctx context.Context, sessionID, videoID string) ([]entity.Chunk, error)
	// DeleteVideo 删除某视频的全部分块
	DeleteVideo(ctx context.Context, sessionID, videoID string) error
	// DropSession 销毁 session 的全部向量数据
	DropSession(ctx context.Context, sessionID string) error
	// Backend 后端名称，用于指标标签
	Backend() string
}

// ChunkVector 待入库的分块向量
type ChunkVector struct {
	Chunk  entity.Chunk
	Vector []float32
}

// TimeWindow 时间过滤窗口，按与分块时间范围的重叠判定
type TimeWindow struct {
	FromSec float64
	ToSec   float64
	HasFrom bool
	HasTo   bool
}

// IsZero 窗口未设置任何边界
func (w *TimeWindow) IsZero() bool {
	return w == nil || (!w.HasFrom && !w.HasTo)
}

// Overlaps 分块 [startSec, endSec] 是否与窗口有交集
func (w *TimeWindow) Overlaps(startSec, endSec float64) bool {
	if w.IsZero() {
		return true
	}
	if w.HasFrom && endSec < w.FromSec {
		return false
	}
	if w.HasTo && startSec > w.ToSec {
		return false
	}
	return true
}

// SearchParams 向量检索参数
type SearchParams struct {
	SessionID   string
	VideoID     string
	QueryVector []float32
	TopK        int
	Window      *TimeWindow
}

// ScoredChunk 带相似度的检索结果
// Score 为余弦相似度，越大越相似
type ScoredChunk struct {
	Chunk entity.Chunk
	Score float32
}
