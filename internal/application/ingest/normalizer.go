// Package ingest 提供视频转录的摄取流水线
package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"clipiq-api/internal/domain/entity"
)

// NormalizeText 清洗单段文本
//
// NFKC 归一化统一全角/兼容字符，剔除控制字符（保留换行当作空格），
// 折叠连续空白。嵌入与提示词都只见到清洗后的文本。
func NormalizeText(s string) string {
	s = norm.NFKC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(' ')
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeSegments 清洗字幕片段，丢弃清洗后为空的片段
func NormalizeSegments(segments []entity.TranscriptSegment) []entity.TranscriptSegment {
	out := make([]entity.TranscriptSegment, 0, len(segments))
	for _, seg := range segments {
		text := NormalizeText(seg.Text)
		if text == "" {
			continue
		}
		seg.Text = text
		out = append(out, seg)
	}
	return out
}
