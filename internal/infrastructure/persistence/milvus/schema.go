// Package milvus 提供 Milvus 向量索引后端实现
package milvus

import (
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionVideoChunks 转录分块集合
	CollectionVideoChunks = "video_chunks"
)

// VideoChunksSchema 转录分块 Collection Schema
func VideoChunksSchema(dimension int) *entity.Schema {
	return &entity.Schema{
		CollectionName: CollectionVideoChunks,
		Description:    "Video transcript chunks for semantic search",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(dimension),
				},
			},
			{
				Name:     "session_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "video_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "32",
				},
			},
			{
				Name:     "position",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "start_sec",
				DataType: entity.FieldTypeDouble,
			},
			{
				Name:     "end_sec",
				DataType: entity.FieldTypeDouble,
			},
			{
				Name:     "text_content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
		},
	}
}

// PartitionName 会话分区名称
// Milvus 分区名不允许连字符，统一替换为下划线
func PartitionName(sessionID string) string {
	return "sess_" + strings.ReplaceAll(sessionID, "-", "_")
}
