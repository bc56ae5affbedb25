package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"clipiq-api/internal/application/retrieval"
	"clipiq-api/internal/domain/entity"
	pkgerrors "clipiq-api/pkg/errors"
	"clipiq-api/pkg/logger"
	"clipiq-api/pkg/metrics"
)

var tracer = otel.Tracer("application.ingest")

// TranscriptSource 字幕与元数据来源（port）
type TranscriptSource interface {
	FetchMetadata(ctx context.Context, videoID string) (*entity.VideoMeta, error)
	FetchTranscript(ctx context.Context, videoID string) ([]entity.TranscriptSegment, string, error)
}

// Pipeline 摄取流水线：字幕 -> 清洗 -> 分块 -> 向量化 -> 入索引
//
// 每一步完成后推进视频状态机；任何失败都会把记录落到对应终态，
// 不会留下中间状态。
type Pipeline struct {
	source   TranscriptSource
	embedder embedding.Embedder
	index    retrieval.VectorIndex
	chunker  *Chunker
}

// NewPipeline 创建摄取流水线
func NewPipeline(source TranscriptSource, embedder embedding.Embedder, index retrieval.VectorIndex, chunker *Chunker) *Pipeline {
	return &Pipeline{
		source:   source,
		embedder: embedder,
		index:    index,
		chunker:  chunker,
	}
}

// Run 处理单个视频，结束时 rec 必处于终态
//
// 返回错误时终态为 no_transcript 或 failed，调用方据此映射响应；
// 返回 nil 时终态为 ready。
func (p *Pipeline) Run(ctx context.Context, sessionID string, rec *entity.VideoRecord) error {
	ctx = logger.WithContext(ctx, logger.VideoIDKey, rec.VideoID)
	ctx, span := tracer.Start(ctx, "ingest.Run", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("video.id", rec.VideoID),
	))
	defer span.End()

	start := time.Now()
	err := p.run(ctx, sessionID, rec)
	metrics.IngestTotal.WithLabelValues(string(rec.CurrentStatus())).Inc()
	metrics.IngestDuration.WithLabelValues(string(rec.CurrentStatus())).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("video.status", string(rec.CurrentStatus())))
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (p *Pipeline) run(ctx context.Context, sessionID string, rec *entity.VideoRecord) error {
	if err := rec.Transition(entity.VideoStatusTranscriptFetching); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeIngestFailed, "ingest failed")
	}

	// 元数据为辅助信息，失败不阻断摄取
	meta, err := p.source.FetchMetadata(ctx, rec.VideoID)
	if err != nil {
		logger.Warn(ctx, "metadata fetch failed", "error", err)
	} else {
		rec.SetMeta(meta)
	}

	segments, lang, err := p.source.FetchTranscript(ctx, rec.VideoID)
	if err != nil {
		var appErr *pkgerrors.AppError
		if errors.As(err, &appErr) && appErr.Code == pkgerrors.CodeNoTranscript {
			return p.finish(ctx, rec, entity.VideoStatusNoTranscript, appErr.Error(), err)
		}
		return p.fail(ctx, rec, "transcript fetch failed", err)
	}
	rec.SetLanguage(lang)

	if err := rec.Transition(entity.VideoStatusChunking); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeIngestFailed, "ingest failed")
	}

	segments = NormalizeSegments(segments)
	chunks := p.chunker.Chunk(rec.VideoID, segments)
	if len(chunks) == 0 {
		return p.finish(ctx, rec, entity.VideoStatusNoTranscript,
			"transcript empty after normalization", pkgerrors.ErrNoTranscript)
	}

	if err := rec.Transition(entity.VideoStatusEmbedding); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeIngestFailed, "ingest failed")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return p.fail(ctx, rec, "embedding failed", err)
	}
	if len(vectors) != len(chunks) {
		return p.fail(ctx, rec, "embedding count mismatch", pkgerrors.ErrEmbeddingFailed)
	}

	// 按 position 顺序整批入库
	items := make([]*retrieval.ChunkVector, len(chunks))
	for i, c := range chunks {
		items[i] = &retrieval.ChunkVector{
			Chunk:  c,
			Vector: retrieval.ToFloat32(vectors[i]),
		}
	}
	if err := p.index.Insert(ctx, sessionID, items); err != nil {
		return p.fail(ctx, rec, "vector insert failed", err)
	}

	rec.SetChunkCount(len(chunks))
	metrics.ChunksPerVideo.Observe(float64(len(chunks)))

	if err := rec.Transition(entity.VideoStatusReady); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeIngestFailed, "ingest failed")
	}
	logger.Info(ctx, "video ingested",
		"chunks", len(chunks), "language", lang)
	return nil
}

// finish 落到非 failed 的终态
func (p *Pipeline) finish(ctx context.Context, rec *entity.VideoRecord, status entity.VideoStatus, reason string, err error) error {
	if terr := rec.Transition(status); terr != nil {
		logger.Warn(ctx, "status transition rejected", "target", status, "error", terr)
	}
	rec.SetFailReason(reason)
	logger.Info(ctx, "video ingestion stopped", "status", string(status), "reason", reason)
	return err
}

// fail 落到 failed 终态并包装错误
func (p *Pipeline) fail(ctx context.Context, rec *entity.VideoRecord, reason string, err error) error {
	if terr := rec.Transition(entity.VideoStatusFailed); terr != nil {
		logger.Warn(ctx, "status transition rejected", "target", entity.VideoStatusFailed, "error", terr)
	}
	rec.SetFailReason(reason)
	logger.Error(ctx, "video ingestion failed", err, "reason", reason)
	return pkgerrors.Wrap(err, pkgerrors.CodeIngestFailed, reason)
}
