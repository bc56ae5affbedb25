package retrieval

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

var rePunctRun = regexp.MustCompile(`[,.?!]{3,}`)

// IsLowQualityText 判定分块文本是否为低质量噪声
//
// 自动生成的字幕常见退化形态：过短片段、逐字符拆散的 token、
// 标点连打、纯数字串。命中任一条即过滤，不进入证据与提示词。
func IsLowQualityText(text string) bool {
	t := strings.TrimSpace(text)
	if len([]rune(t)) < 15 {
		return true
	}

	tokens := strings.Fields(t)
	if len(tokens) > 0 {
		single := 0
		for _, tok := range tokens {
			if len([]rune(tok)) == 1 {
				single++
			}
		}
		if float64(single)/float64(len(tokens)) > 0.25 {
			return true
		}
	}

	runes := []rune(t)
	nonAlnum := 0
	digits := 0
	for _, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			nonAlnum++
		}
		if unicode.IsDigit(r) {
			digits++
		}
	}
	total := float64(len(runes))
	if float64(nonAlnum)/total > 0.4 {
		return true
	}
	if rePunctRun.MatchString(t) {
		return true
	}
	if float64(digits)/total > 0.6 {
		return true
	}

	return false
}

// dynamicTopK 按视频分块总数自适应选择检索条数
//
// 短视频直接取全部分块上限 5；长视频按 log2(n)*1.5 取整并
// 收敛到 [5, 10]。
func dynamicTopK(chunkCount int) int {
	if chunkCount <= 0 {
		return 0
	}
	if chunkCount < 20 {
		if chunkCount < 5 {
			return chunkCount
		}
		return 5
	}
	k := int(math.Round(math.Log2(float64(chunkCount)) * 1.5))
	if k < 5 {
		k = 5
	}
	if k > 10 {
		k = 10
	}
	return k
}
