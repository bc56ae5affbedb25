package retrieval

import "errors"

var (
	// ErrIndexUnavailable 表示向量检索能力未配置（索引后端或 Embedder 不可用）。
	ErrIndexUnavailable = errors.New("vector retrieval is unavailable")

	// ErrNoChunks 表示目标视频没有已索引的分块。
	ErrNoChunks = errors.New("no indexed chunks for video")
)
