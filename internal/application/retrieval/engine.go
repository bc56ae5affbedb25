// Package retrieval 提供会话内转录分块的向量检索能力
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"clipiq-api/internal/config"
	"clipiq-api/internal/domain/entity"
	"clipiq-api/pkg/metrics"
)

var tracer = otel.Tracer("application.retrieval")

type Engine struct {
	embedder embedding.Embedder
	index    VectorIndex
	cfg      *config.RetrievalConfig
}

func NewEngine(embedder embedding.Embedder, index VectorIndex, cfg *config.RetrievalConfig) *Engine {
	return &Engine{
		embedder: embedder,
		index:    index,
		cfg:      cfg,
	}
}

func (e *Engine) Enabled() bool {
	return e != nil && e.embedder != nil && e.index != nil
}

// Retrieve 在会话内对单个视频做语义检索
//
// 流程：自查询解析 -> 查询向量化 -> 过滤检索 -> 排序 -> 证据拼装。
// 候选按 2 倍 TopK 超量召回，剔除低质量分块后再截断，避免
// 噪声字幕挤占证据位。
func (e *Engine) Retrieve(ctx context.Context, in RetrieveInput) (*RetrieveOutput, error) {
	if !e.Enabled() {
		return nil, ErrIndexUnavailable
	}
	in.Query = strings.TrimSpace(in.Query)
	if in.SessionID == "" || in.VideoID == "" {
		return nil, fmt.Errorf("session_id and video_id are required")
	}
	if in.Query == "" {
		return nil, fmt.Errorf("query is required")
	}

	ctx, span := tracer.Start(ctx, "retrieval.Retrieve", trace.WithAttributes(
		attribute.String("session.id", in.SessionID),
		attribute.String("video.id", in.VideoID),
	))
	defer span.End()

	parsed := ParseSelfQuery(in.Query)

	count, err := e.index.CountChunks(ctx, in.SessionID, in.VideoID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if count == 0 {
		return nil, ErrNoChunks
	}

	topK := in.TopK
	if topK <= 0 {
		topK = dynamicTopK(count)
	}
	if e.cfg.MaxTopK > 0 && topK > e.cfg.MaxTopK {
		topK = e.cfg.MaxTopK
	}
	span.SetAttributes(
		attribute.Int("retrieval.top_k", topK),
		attribute.Int("retrieval.chunk_count", count),
		attribute.Bool("retrieval.time_filtered", parsed.Window != nil),
	)

	queryVec, err := e.embedQuery(ctx, parsed.Query)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// 超量召回，留出低质量过滤的余量
	fetchK := topK * 2
	if fetchK > count {
		fetchK = count
	}

	start := time.Now()
	results, err := e.index.Search(ctx, &SearchParams{
		SessionID:   in.SessionID,
		VideoID:     in.VideoID,
		QueryVector: queryVec,
		TopK:        fetchK,
		Window:      parsed.Window,
	})
	metrics.VectorSearchDuration.WithLabelValues(e.index.Backend()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.VectorSearchTotal.WithLabelValues(e.index.Backend(), "error").Inc()
		span.RecordError(err)
		return nil, err
	}
	metrics.VectorSearchTotal.WithLabelValues(e.index.Backend(), "ok").Inc()

	filtered := 0
	kept := make([]*ScoredChunk, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		if IsLowQualityText(r.Chunk.Text) {
			filtered++
			continue
		}
		kept = append(kept, r)
	}

	// 相似度降序；同分按时间顺序，保证结果确定性
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].Chunk.Position < kept[j].Chunk.Position
	})
	if len(kept) > topK {
		kept = kept[:topK]
	}

	return &RetrieveOutput{
		Chunks:        kept,
		Evidence:      e.buildEvidence(kept),
		SemanticQuery: parsed.Query,
		Window:        parsed.Window,
		TopK:          topK,
		Filtered:      filtered,
	}, nil
}

// buildEvidence 将检索结果转换为 “[mm:ss] 文本” 证据行
func (e *Engine) buildEvidence(chunks []*ScoredChunk) []string {
	maxRunes := e.cfg.MaxEvidenceRunes
	if maxRunes <= 0 {
		maxRunes = 280
	}
	lines := make([]string, 0, len(chunks))
	for _, c := range chunks {
		lines = append(lines, FormatEvidence(&c.Chunk, maxRunes))
	}
	return lines
}

// FormatEvidence 单条证据行，超长文本按 rune 截断
func FormatEvidence(c *entity.Chunk, maxRunes int) string {
	text := strings.TrimSpace(c.Text)
	runes := []rune(text)
	if maxRunes > 0 && len(runes) > maxRunes {
		text = strings.TrimSpace(string(runes[:maxRunes])) + "..."
	}
	return fmt.Sprintf("[%s] %s", c.Timestamp(), text)
}

func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	v64, err := e.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(v64) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return ToFloat32(v64[0]), nil
}

// ToFloat32 向量精度转换，索引后端统一使用 float32
func ToFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, x := range vec {
		out[i] = float32(x)
	}
	return out
}
