// Package memvec 提供进程内向量索引实现
//
// 数据按 session 分桶持有，会话销毁即整桶释放。检索为暴力余弦
// 相似度扫描，对单会话百级分块规模足够快，且无任何外部依赖。
package memvec

import (
	"context"
	"math"
	"sort"
	"sync"

	"clipiq-api/internal/application/retrieval"
	"clipiq-api/internal/domain/entity"
)

type storedChunk struct {
	chunk  entity.Chunk
	vector []float32
	norm   float64
}

type sessionBucket struct {
	// byVideo 保持插入顺序（即 position 顺序）
	byVideo map[string][]*storedChunk
}

// Index 进程内向量索引
type Index struct {
	mu       sync.RWMutex
	sessions map[string]*sessionBucket
}

var _ retrieval.VectorIndex = (*Index)(nil)

// NewIndex 创建空索引
func NewIndex() *Index {
	return &Index{
		sessions: make(map[string]*sessionBucket),
	}
}

// Backend 后端名称
func (x *Index) Backend() string {
	return "memory"
}

// Insert 写入分块向量
func (x *Index) Insert(_ context.Context, sessionID string, items []*retrieval.ChunkVector) error {
	if len(items) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	bucket, ok := x.sessions[sessionID]
	if !ok {
		bucket = &sessionBucket{byVideo: make(map[string][]*storedChunk)}
		x.sessions[sessionID] = bucket
	}

	for _, item := range items {
		bucket.byVideo[item.Chunk.VideoID] = append(bucket.byVideo[item.Chunk.VideoID], &storedChunk{
			chunk:  item.Chunk,
			vector: item.Vector,
			norm:   vectorNorm(item.Vector),
		})
	}
	return nil
}

// Search 会话内暴力余弦检索
func (x *Index) Search(_ context.Context, params *retrieval.SearchParams) ([]*retrieval.ScoredChunk, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	bucket, ok := x.sessions[params.SessionID]
	if !ok {
		return []*retrieval.ScoredChunk{}, nil
	}
	stored := bucket.byVideo[params.VideoID]
	if len(stored) == 0 {
		return []*retrieval.ScoredChunk{}, nil
	}

	queryNorm := vectorNorm(params.QueryVector)

	scored := make([]*retrieval.ScoredChunk, 0, len(stored))
	for _, s := range stored {
		if !params.Window.Overlaps(s.chunk.StartSec, s.chunk.EndSec) {
			continue
		}
		scored = append(scored, &retrieval.ScoredChunk{
			Chunk: s.chunk,
			Score: cosine(params.QueryVector, queryNorm, s.vector, s.norm),
		})
	}

	// 相似度降序；同分按 position 升序，保证确定性
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.Position < scored[j].Chunk.Position
	})

	if params.TopK > 0 && len(scored) > params.TopK {
		scored = scored[:params.TopK]
	}
	return scored, nil
}

// CountChunks 某视频已索引的分块数
func (x *Index) CountChunks(_ context.Context, sessionID, videoID string) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	bucket, ok := x.sessions[sessionID]
	if !ok {
		return 0, nil
	}
	return len(bucket.byVideo[videoID]), nil
}

// ListChunks 按 position 升序返回某视频全部分块
func (x *Index) ListChunks(_ context.Context, sessionID, videoID string) ([]entity.Chunk, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	bucket, ok := x.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	stored := bucket.byVideo[videoID]
	chunks := make([]entity.Chunk, 0, len(stored))
	for _, s := range stored {
		chunks = append(chunks, s.chunk)
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Position < chunks[j].Position
	})
	return chunks, nil
}

// DeleteVideo 删除某视频的全部分块
func (x *Index) DeleteVideo(_ context.Context, sessionID, videoID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if bucket, ok := x.sessions[sessionID]; ok {
		delete(bucket.byVideo, videoID)
	}
	return nil
}

// DropSession 销毁会话全部向量数据
func (x *Index) DropSession(_ context.Context, sessionID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	delete(x.sessions, sessionID)
	return nil
}

func vectorNorm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// cosine 余弦相似度；零向量与任何向量的相似度为 0
func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float32 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (aNorm * bNorm))
}
