// Package milvus 提供 Milvus 向量索引后端实现
package milvus

import (
	"context"
	"fmt"
	"sort"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"clipiq-api/internal/application/retrieval"
	"clipiq-api/internal/domain/entity"
)

// Index 基于 Milvus 的向量索引实现
type Index struct {
	client    *Client
	dimension int
}

var _ retrieval.VectorIndex = (*Index)(nil)

// NewIndex 创建 Milvus 向量索引
func NewIndex(client *Client, dimension int) *Index {
	return &Index{
		client:    client,
		dimension: dimension,
	}
}

// Backend 后端名称
func (x *Index) Backend() string {
	return "milvus"
}

func (x *Index) ready() error {
	if x == nil || x.client == nil || x.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	return nil
}

// EnsureCollection 确保 video_chunks 集合与索引可用（不存在则创建）。
// 约束：不会做 drop/rebuild 等破坏性操作。
func (x *Index) EnsureCollection(ctx context.Context) error {
	if err := x.ready(); err != nil {
		return err
	}

	exists, err := x.client.HasCollection(ctx, CollectionVideoChunks)
	if err != nil {
		return err
	}
	if !exists {
		schema := VideoChunksSchema(x.dimension)
		schema.CollectionName = x.client.CollectionName(CollectionVideoChunks)
		if err := x.client.milvus.CreateCollection(ctx, schema, milvusentity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		// 新建集合时创建索引；若失败，允许后续由运维介入。
		_ = x.createVectorIndex(ctx)
	}

	return x.client.LoadCollection(ctx, CollectionVideoChunks)
}

func (x *Index) createVectorIndex(ctx context.Context) error {
	idx, err := milvusentity.NewIndexHNSW(
		milvusentity.COSINE,
		x.client.config.HNSWM,
		x.client.config.HNSWEfConstruction,
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	collName := x.client.CollectionName(CollectionVideoChunks)
	if err := x.client.milvus.CreateIndex(ctx, collName, "vector", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

func (x *Index) ensurePartition(ctx context.Context, sessionID string) (string, error) {
	collName := x.client.CollectionName(CollectionVideoChunks)
	partition := PartitionName(sessionID)

	has, err := x.client.milvus.HasPartition(ctx, collName, partition)
	if err != nil {
		return "", fmt.Errorf("failed to check partition: %w", err)
	}
	if !has {
		if err := x.client.milvus.CreatePartition(ctx, collName, partition); err != nil {
			return "", fmt.Errorf("failed to create partition: %w", err)
		}
	}
	return partition, nil
}

// Insert 写入分块向量
func (x *Index) Insert(ctx context.Context, sessionID string, items []*retrieval.ChunkVector) error {
	if err := x.ready(); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "milvus.Insert",
		trace.WithAttributes(
			attribute.String("session_id", sessionID),
			attribute.Int("count", len(items)),
		))
	defer span.End()

	if err := x.EnsureCollection(ctx); err != nil {
		span.RecordError(err)
		return err
	}
	partition, err := x.ensurePartition(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	ids := make([]string, len(items))
	vectors := make([][]float32, len(items))
	sessionIDs := make([]string, len(items))
	videoIDs := make([]string, len(items))
	positions := make([]int64, len(items))
	startSecs := make([]float64, len(items))
	endSecs := make([]float64, len(items))
	texts := make([]string, len(items))

	for i, item := range items {
		ids[i] = item.Chunk.ID
		vectors[i] = item.Vector
		sessionIDs[i] = sessionID
		videoIDs[i] = item.Chunk.VideoID
		positions[i] = int64(item.Chunk.Position)
		startSecs[i] = item.Chunk.StartSec
		endSecs[i] = item.Chunk.EndSec
		texts[i] = item.Chunk.Text
	}

	collName := x.client.CollectionName(CollectionVideoChunks)
	_, err = x.client.milvus.Insert(ctx, collName, partition,
		milvusentity.NewColumnVarChar("id", ids),
		milvusentity.NewColumnFloatVector("vector", x.dimension, vectors),
		milvusentity.NewColumnVarChar("session_id", sessionIDs),
		milvusentity.NewColumnVarChar("video_id", videoIDs),
		milvusentity.NewColumnInt64("position", positions),
		milvusentity.NewColumnDouble("start_sec", startSecs),
		milvusentity.NewColumnDouble("end_sec", endSecs),
		milvusentity.NewColumnVarChar("text_content", texts),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	return nil
}

// Search 会话内向量检索
func (x *Index) Search(ctx context.Context, params *retrieval.SearchParams) ([]*retrieval.ScoredChunk, error) {
	if err := x.ready(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "milvus.Search",
		trace.WithAttributes(
			attribute.String("session_id", params.SessionID),
			attribute.String("video_id", params.VideoID),
			attribute.Int("top_k", params.TopK),
		))
	defer span.End()

	collName := x.client.CollectionName(CollectionVideoChunks)
	partition := PartitionName(params.SessionID)

	// 分区尚未创建（会话无数据）时直接返回空结果
	if has, err := x.client.milvus.HasPartition(ctx, collName, partition); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return []*retrieval.ScoredChunk{}, nil
	}

	filter := fmt.Sprintf(`session_id == "%s" && video_id == "%s"`, params.SessionID, params.VideoID)
	if w := params.Window; !w.IsZero() {
		if w.HasFrom {
			filter += fmt.Sprintf(` && end_sec >= %f`, w.FromSec)
		}
		if w.HasTo {
			filter += fmt.Sprintf(` && start_sec <= %f`, w.ToSec)
		}
	}

	sp, err := milvusentity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := x.client.milvus.Search(ctx,
		collName,
		[]string{partition},
		filter,
		[]string{"id", "video_id", "position", "start_sec", "end_sec", "text_content"},
		[]milvusentity.Vector{milvusentity.FloatVector(params.QueryVector)},
		"vector",
		milvusentity.COSINE,
		params.TopK,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	out := scoredChunksFromResults(results)
	span.SetAttributes(attribute.Int("result_count", len(out)))
	return out, nil
}

// scoredChunksFromResults 将检索命中转换为带分的分块
//
// COSINE 度量下 Milvus 返回的即相似度（越大越相近），直接透传，
// 与进程内后端的打分方向保持一致。
func scoredChunksFromResults(results []client.SearchResult) []*retrieval.ScoredChunk {
	var out []*retrieval.ScoredChunk
	for _, result := range results {
		idCol, _ := result.Fields.GetColumn("id").(*milvusentity.ColumnVarChar)
		videoCol, _ := result.Fields.GetColumn("video_id").(*milvusentity.ColumnVarChar)
		posCol, _ := result.Fields.GetColumn("position").(*milvusentity.ColumnInt64)
		startCol, _ := result.Fields.GetColumn("start_sec").(*milvusentity.ColumnDouble)
		endCol, _ := result.Fields.GetColumn("end_sec").(*milvusentity.ColumnDouble)
		textCol, _ := result.Fields.GetColumn("text_content").(*milvusentity.ColumnVarChar)

		for i := 0; i < result.ResultCount; i++ {
			sc := &retrieval.ScoredChunk{
				Score: result.Scores[i],
			}
			if idCol != nil {
				sc.Chunk.ID = idCol.Data()[i]
			}
			if videoCol != nil {
				sc.Chunk.VideoID = videoCol.Data()[i]
			}
			if posCol != nil {
				sc.Chunk.Position = int(posCol.Data()[i])
			}
			if startCol != nil {
				sc.Chunk.StartSec = startCol.Data()[i]
			}
			if endCol != nil {
				sc.Chunk.EndSec = endCol.Data()[i]
			}
			if textCol != nil {
				sc.Chunk.Text = textCol.Data()[i]
			}
			out = append(out, sc)
		}
	}
	return out
}

// queryChunks 按表达式取回分块字段
func (x *Index) queryChunks(ctx context.Context, sessionID, expr string, outputFields []string) (client.ResultSet, error) {
	collName := x.client.CollectionName(CollectionVideoChunks)
	partition := PartitionName(sessionID)

	if has, err := x.client.milvus.HasPartition(ctx, collName, partition); err != nil {
		return nil, fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return nil, nil
	}

	rs, err := x.client.milvus.Query(ctx, collName, []string{partition}, expr, outputFields)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	return rs, nil
}

// CountChunks 某视频已索引的分块数
func (x *Index) CountChunks(ctx context.Context, sessionID, videoID string) (int, error) {
	if err := x.ready(); err != nil {
		return 0, err
	}

	expr := fmt.Sprintf(`session_id == "%s" && video_id == "%s"`, sessionID, videoID)
	rs, err := x.queryChunks(ctx, sessionID, expr, []string{"id"})
	if err != nil {
		return 0, err
	}
	if rs == nil {
		return 0, nil
	}
	if idCol, ok := rs.GetColumn("id").(*milvusentity.ColumnVarChar); ok {
		return idCol.Len(), nil
	}
	return 0, nil
}

// ListChunks 按 position 升序返回某视频全部分块
func (x *Index) ListChunks(ctx context.Context, sessionID, videoID string) ([]entity.Chunk, error) {
	if err := x.ready(); err != nil {
		return nil, err
	}

	expr := fmt.Sprintf(`session_id == "%s" && video_id == "%s"`, sessionID, videoID)
	rs, err := x.queryChunks(ctx, sessionID, expr,
		[]string{"id", "video_id", "position", "start_sec", "end_sec", "text_content"})
	if err != nil {
		return nil, err
	}
	if rs == nil {
		return nil, nil
	}

	idCol, _ := rs.GetColumn("id").(*milvusentity.ColumnVarChar)
	videoCol, _ := rs.GetColumn("video_id").(*milvusentity.ColumnVarChar)
	posCol, _ := rs.GetColumn("position").(*milvusentity.ColumnInt64)
	startCol, _ := rs.GetColumn("start_sec").(*milvusentity.ColumnDouble)
	endCol, _ := rs.GetColumn("end_sec").(*milvusentity.ColumnDouble)
	textCol, _ := rs.GetColumn("text_content").(*milvusentity.ColumnVarChar)
	if idCol == nil {
		return nil, nil
	}

	chunks := make([]entity.Chunk, 0, idCol.Len())
	for i := 0; i < idCol.Len(); i++ {
		c := entity.Chunk{ID: idCol.Data()[i]}
		if videoCol != nil {
			c.VideoID = videoCol.Data()[i]
		}
		if posCol != nil {
			c.Position = int(posCol.Data()[i])
		}
		if startCol != nil {
			c.StartSec = startCol.Data()[i]
		}
		if endCol != nil {
			c.EndSec = endCol.Data()[i]
		}
		if textCol != nil {
			c.Text = textCol.Data()[i]
		}
		chunks = append(chunks, c)
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Position < chunks[j].Position
	})
	return chunks, nil
}

// DeleteVideo 删除某视频的全部分块
func (x *Index) DeleteVideo(ctx context.Context, sessionID, videoID string) error {
	if err := x.ready(); err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "milvus.DeleteVideo",
		trace.WithAttributes(
			attribute.String("session_id", sessionID),
			attribute.String("video_id", videoID),
		))
	defer span.End()

	collName := x.client.CollectionName(CollectionVideoChunks)
	partition := PartitionName(sessionID)

	if has, err := x.client.milvus.HasPartition(ctx, collName, partition); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return nil
	}

	filter := fmt.Sprintf(`video_id == "%s"`, videoID)
	if err := x.client.milvus.Delete(ctx, collName, partition, filter); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// DropSession 销毁会话分区及其全部向量数据
func (x *Index) DropSession(ctx context.Context, sessionID string) error {
	if err := x.ready(); err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "milvus.DropSession",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	collName := x.client.CollectionName(CollectionVideoChunks)
	partition := PartitionName(sessionID)

	if has, err := x.client.milvus.HasPartition(ctx, collName, partition); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return nil
	}

	if err := x.client.milvus.DropPartition(ctx, collName, partition); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to drop partition: %w", err)
	}
	return nil
}
