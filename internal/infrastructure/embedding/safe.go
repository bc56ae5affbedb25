package embedding

import (
	"context"
	"math"
	"strings"
	"time"

	"clipiq-api/internal/config"
	"clipiq-api/pkg/logger"
	"clipiq-api/pkg/metrics"
	"clipiq-api/pkg/retry"

	"github.com/cloudwego/eino/components/embedding"
)

// placeholderText 空输入的占位文本，保证上游 API 不会因空串报错
const placeholderText = " "

// SafeEmbedder 包装底层 Embedder，保证输出始终可用
//
// 三条防线：
//  1. 输入清洗：空文本替换为占位符
//  2. 有界重试：调用失败按指数退避重试
//  3. 降级兜底：重试耗尽或返回非有限值时以零向量代替，不中断摄取
type SafeEmbedder struct {
	inner     embedding.Embedder
	dimension int
	batchSize int
	policy    retry.Policy
}

var _ embedding.Embedder = (*SafeEmbedder)(nil)

// NewSafeEmbedder 创建安全 Embedder
func NewSafeEmbedder(inner embedding.Embedder, cfg *config.EmbeddingConfig) *SafeEmbedder {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	policy := retry.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	return &SafeEmbedder{
		inner:     inner,
		dimension: cfg.Dimension,
		batchSize: batchSize,
		policy:    policy,
	}
}

// EmbedStrings 批量向量化
// 永远返回与输入等长的向量切片；只有 context 取消才返回错误
func (s *SafeEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	sanitized := make([]string, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			sanitized[i] = placeholderText
		} else {
			sanitized[i] = t
		}
	}

	all := make([][]float64, 0, len(sanitized))
	for i := 0; i < len(sanitized); i += s.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := i + s.batchSize
		if end > len(sanitized) {
			end = len(sanitized)
		}
		batch := sanitized[i:end]

		vectors, err := s.embedBatch(ctx, batch, opts...)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// 降级：整批以零向量代替，摄取继续
			logger.Error(ctx, "embedding batch failed, falling back to zero vectors", err,
				"batch_size", len(batch))
			metrics.EmbeddingFallbackTotal.WithLabelValues("call_failed").Add(float64(len(batch)))
			vectors = s.zeroBatch(len(batch))
		}
		all = append(all, s.sanitizeVectors(ctx, vectors, len(batch))...)
	}

	return all, nil
}

func (s *SafeEmbedder) embedBatch(ctx context.Context, batch []string, opts ...embedding.Option) ([][]float64, error) {
	return retry.Do(ctx, s.policy, func() ([][]float64, error) {
		start := time.Now()
		vectors, err := s.inner.EmbedStrings(ctx, batch, opts...)
		metrics.EmbeddingCallDuration.Observe(time.Since(start).Seconds())
		return vectors, err
	})
}

// sanitizeVectors 逐向量检查维度与有限性，异常向量替换为零向量
func (s *SafeEmbedder) sanitizeVectors(ctx context.Context, vectors [][]float64, want int) [][]float64 {
	if len(vectors) != want {
		logger.Warn(ctx, "embedding returned unexpected vector count",
			"want", want, "got", len(vectors))
		metrics.EmbeddingFallbackTotal.WithLabelValues("call_failed").Add(float64(want))
		return s.zeroBatch(want)
	}

	out := make([][]float64, want)
	for i, vec := range vectors {
		if len(vec) == 0 || !isFinite(vec) {
			metrics.EmbeddingFallbackTotal.WithLabelValues("non_finite").Inc()
			out[i] = s.zeroVector(len(vec))
			continue
		}
		out[i] = vec
	}
	return out
}

func isFinite(vec []float64) bool {
	for _, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s *SafeEmbedder) zeroVector(hint int) []float64 {
	dim := s.dimension
	if dim <= 0 {
		dim = hint
	}
	if dim <= 0 {
		dim = 1536
	}
	return make([]float64, dim)
}

func (s *SafeEmbedder) zeroBatch(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = s.zeroVector(0)
	}
	return out
}
