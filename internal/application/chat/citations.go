package chat

import (
	"regexp"
	"strconv"
	"strings"

	"clipiq-api/internal/application/retrieval"
)

var (
	reCitation  = regexp.MustCompile(`\[(\d{1,2}:\d{2}(?::\d{2})?)\]`)
	reDupSpaces = regexp.MustCompile(` {2,}`)
)

// parseCitationSeconds 将 mm:ss / h:mm:ss 形式的引用转换为秒
func parseCitationSeconds(ts string) float64 {
	parts := strings.Split(ts, ":")
	sec := 0
	for _, p := range parts {
		n, _ := strconv.Atoi(p)
		sec = sec*60 + n
	}
	return float64(sec)
}

// validateCitations 校验回答中的时间戳引用
//
// 引用的时间点必须落在某个证据分块的时间范围内才被保留；LLM
// 幻觉出的时间戳从回答文本中剥离。同一时间点可能命中多个视频的
// 分块（对比场景），每个命中的视频各记一条引用。返回清洗后的
// 回答与按出现顺序去重的引用列表。
func validateCitations(answer string, chunks []*retrieval.ScoredChunk) (string, []Citation) {
	var citations []Citation
	seen := make(map[string]bool)

	cleaned := reCitation.ReplaceAllStringFunc(answer, func(match string) string {
		ts := strings.Trim(match, "[]")
		sec := parseCitationSeconds(ts)

		matched := false
		for _, c := range chunks {
			if sec < c.Chunk.StartSec || sec > c.Chunk.EndSec {
				continue
			}
			matched = true
			key := c.Chunk.VideoID + "|" + ts
			if !seen[key] {
				seen[key] = true
				citations = append(citations, Citation{
					VideoID:   c.Chunk.VideoID,
					Timestamp: ts,
					StartSec:  sec,
				})
			}
		}
		if !matched {
			return ""
		}
		return match
	})

	// 剥离引用后可能留下连续空格
	cleaned = reDupSpaces.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned), citations
}
