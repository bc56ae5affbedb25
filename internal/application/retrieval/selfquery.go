package retrieval

import (
	"regexp"
	"strconv"
	"strings"
)

// atWindowSlackSec “at X”类查询在目标时间点两侧放宽的秒数
const atWindowSlackSec = 45.0

// timeToken 匹配 mm:ss、h:mm:ss 或 “N minutes / N seconds”写法
const timeToken = `(\d{1,2}:\d{2}(?::\d{2})?|\d+(?:\.\d+)?\s*(?:minutes?|mins?|seconds?|secs?))`

var (
	reBetween = regexp.MustCompile(`(?i)\bbetween\s+` + timeToken + `\s+and\s+` + timeToken)
	reAfter   = regexp.MustCompile(`(?i)\b(?:after|since|starting\s+(?:at|from)|from)\s+` + timeToken)
	reBefore  = regexp.MustCompile(`(?i)\b(?:before|until|till)\s+` + timeToken)
	reAt      = regexp.MustCompile(`(?i)\b(?:at|around)\s+` + timeToken)
	reMinute  = regexp.MustCompile(`(?i)\b(?:in\s+)?(?:the\s+)?minute\s+(\d+)\b`)

	reClock  = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	reAmount = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(minutes?|mins?|seconds?|secs?)$`)
	reSpaces = regexp.MustCompile(`\s+`)
)

// SelfQuery 自查询解析结果
type SelfQuery struct {
	// Query 剥离时间短语后的语义查询
	Query string
	// Window 时间过滤窗口，nil 表示查询未携带时间约束
	Window *TimeWindow
}

// ParseSelfQuery 从自然语言查询中提取时间过滤短语
//
// 解析是确定性的正则匹配，不依赖 LLM。支持的形态：
//
//	between 1:30 and 4:00
//	after 2:15 / since 10 minutes
//	before 12:00 / until 90 seconds
//	at 3:45 / around 7:00（目标点两侧各放宽 45 秒）
//	minute 5（第 5 分钟，即 [300, 360)）
//
// 命中的短语会从语义查询中剥离，避免干扰向量召回。
func ParseSelfQuery(raw string) SelfQuery {
	q := strings.TrimSpace(raw)
	if q == "" {
		return SelfQuery{Query: ""}
	}

	window := &TimeWindow{}
	rest := q

	// between 优先，避免其中的 and 前后片段被 after/before 二次命中
	if m := reBetween.FindStringSubmatch(rest); len(m) == 3 {
		from, okFrom := parseTimeToken(m[1])
		to, okTo := parseTimeToken(m[2])
		if okFrom && okTo {
			if from > to {
				from, to = to, from
			}
			window.FromSec, window.HasFrom = from, true
			window.ToSec, window.HasTo = to, true
			rest = strings.Replace(rest, m[0], " ", 1)
		}
	}

	if !window.HasFrom {
		if m := reAfter.FindStringSubmatch(rest); len(m) == 2 {
			if sec, ok := parseTimeToken(m[1]); ok {
				window.FromSec, window.HasFrom = sec, true
				rest = strings.Replace(rest, m[0], " ", 1)
			}
		}
	}

	if !window.HasTo {
		if m := reBefore.FindStringSubmatch(rest); len(m) == 2 {
			if sec, ok := parseTimeToken(m[1]); ok {
				window.ToSec, window.HasTo = sec, true
				rest = strings.Replace(rest, m[0], " ", 1)
			}
		}
	}

	if window.IsZero() {
		if m := reAt.FindStringSubmatch(rest); len(m) == 2 {
			if sec, ok := parseTimeToken(m[1]); ok {
				from := sec - atWindowSlackSec
				if from < 0 {
					from = 0
				}
				window.FromSec, window.HasFrom = from, true
				window.ToSec, window.HasTo = sec+atWindowSlackSec, true
				rest = strings.Replace(rest, m[0], " ", 1)
			}
		}
	}

	if window.IsZero() {
		if m := reMinute.FindStringSubmatch(rest); len(m) == 2 {
			if n, err := strconv.Atoi(m[1]); err == nil {
				window.FromSec, window.HasFrom = float64(n)*60, true
				window.ToSec, window.HasTo = float64(n+1)*60, true
				rest = strings.Replace(rest, m[0], " ", 1)
			}
		}
	}

	rest = strings.TrimSpace(reSpaces.ReplaceAllString(rest, " "))
	rest = strings.Trim(rest, " ,;")
	if rest == "" {
		// 纯时间查询保留原文，避免空查询进入向量召回
		rest = q
	}

	out := SelfQuery{Query: rest}
	if !window.IsZero() {
		out.Window = window
	}
	return out
}

// parseTimeToken 将时间写法转换为秒
func parseTimeToken(token string) (float64, bool) {
	t := strings.TrimSpace(token)

	if m := reClock.FindStringSubmatch(t); m != nil {
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[2])
		if m[3] != "" {
			third, _ := strconv.Atoi(m[3])
			return float64(first*3600 + second*60 + third), true
		}
		return float64(first*60 + second), true
	}

	if m := reAmount.FindStringSubmatch(t); m != nil {
		amount, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		unit := strings.ToLower(m[2])
		if strings.HasPrefix(unit, "min") {
			return amount * 60, true
		}
		return amount, true
	}

	return 0, false
}
