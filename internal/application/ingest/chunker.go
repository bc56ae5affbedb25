package ingest

import (
	"strings"

	"github.com/google/uuid"

	"clipiq-api/internal/config"
	"clipiq-api/internal/domain/entity"
)

// Chunker 自适应分块器
//
// 目标块时长随视频总长伸缩：短视频切得细以保留定位精度，长视频
// 切得粗以控制块总数。单块还受最大字符数约束，避免超长字幕段
// 撑爆嵌入输入。
type Chunker struct {
	cfg *config.ChunkingConfig
}

// NewChunker 创建分块器
func NewChunker(cfg *config.ChunkingConfig) *Chunker {
	return &Chunker{cfg: cfg}
}

// targetChunkSeconds 按视频总时长推导目标块时长
func (c *Chunker) targetChunkSeconds(totalSec float64) float64 {
	minChunks := c.cfg.MinChunks
	if minChunks <= 0 {
		minChunks = 4
	}
	maxChunks := c.cfg.MaxChunks
	if maxChunks <= 0 {
		maxChunks = 120
	}
	minSec := float64(c.cfg.MinChunkSeconds)
	if minSec <= 0 {
		minSec = 20
	}
	maxSec := float64(c.cfg.MaxChunkSeconds)
	if maxSec <= 0 {
		maxSec = 180
	}

	// 约一分钟一块，再按块数上下限收敛
	target := totalSec / 60
	if target < float64(minChunks) {
		target = float64(minChunks)
	}
	if target > float64(maxChunks) {
		target = float64(maxChunks)
	}

	chunkSec := totalSec / target
	if chunkSec < minSec {
		chunkSec = minSec
	}
	if chunkSec > maxSec {
		chunkSec = maxSec
	}

	// 块时长夹取可能把块数推出 [minChunks, maxChunks]，块数约束
	// 优先，按块数回算时长
	if implied := totalSec / chunkSec; implied > float64(maxChunks) {
		chunkSec = totalSec / float64(maxChunks)
	} else if implied < float64(minChunks) {
		chunkSec = totalSec / float64(minChunks)
	}
	return chunkSec
}

// Chunk 将清洗后的字幕片段聚合为带时间范围的分块
//
// 片段只会整段归属某个分块，不做跨片段切割，保证每个分块的
// 时间范围与其文本严格对应。
func (c *Chunker) Chunk(videoID string, segments []entity.TranscriptSegment) []entity.Chunk {
	if len(segments) == 0 {
		return nil
	}

	last := segments[len(segments)-1]
	totalSec := last.StartSec + last.Duration
	chunkSec := c.targetChunkSeconds(totalSec)

	maxChars := c.cfg.MaxChunkChars
	if maxChars <= 0 {
		maxChars = 1200
	}

	var chunks []entity.Chunk
	var texts []string
	var chars int
	var startSec, endSec float64
	open := false

	flush := func() {
		if !open {
			return
		}
		chunks = append(chunks, entity.Chunk{
			ID:       uuid.NewString(),
			VideoID:  videoID,
			Position: len(chunks),
			StartSec: startSec,
			EndSec:   endSec,
			Text:     strings.Join(texts, " "),
		})
		texts = texts[:0]
		chars = 0
		open = false
	}

	for _, seg := range segments {
		segEnd := seg.StartSec + seg.Duration
		if !open {
			startSec = seg.StartSec
			endSec = segEnd
			open = true
		}

		texts = append(texts, seg.Text)
		chars += len([]rune(seg.Text)) + 1
		if segEnd > endSec {
			endSec = segEnd
		}

		if endSec-startSec >= chunkSec || chars >= maxChars {
			flush()
		}
	}
	flush()

	return chunks
}
