package chat

import (
	"context"
	"regexp"
	"strings"

	"clipiq-api/pkg/logger"
	"clipiq-api/pkg/metrics"

	"github.com/cloudwego/eino/schema"
)

// 意图来源标签
const (
	sourceExplicit  = "explicit"
	sourceHeuristic = "heuristic"
	sourceLLM       = "llm"
)

var (
	reSummary  = regexp.MustCompile(`(?i)\b(summar(?:y|ize|ise|ies)|overview|recap|tl;?dr)\b`)
	reCompare  = regexp.MustCompile(`(?i)\b(compare|comparison|versus|vs\.?|difference|differences|differ)\b|\bboth\s+videos\b|\bwhich\s+video\b`)
	reAllBoth  = regexp.MustCompile(`(?i)\b(both|all|each|two)\b`)
	reIntentTk = regexp.MustCompile(`(?i)\b(rag|compare|summary|dual_summary)\b`)
)

// Router 意图路由器
//
// 三级路由：显式意图 > 关键词启发式 > LLM 分类。LLM 只在会话
// 持有两个就绪视频且启发式无法区分时介入，失败时回退 RAG。
type Router struct {
	generator textGenerator
}

// NewRouter 创建路由器
func NewRouter(generator textGenerator) *Router {
	return &Router{generator: generator}
}

// Route 决定查询意图，返回意图与来源标签
func (r *Router) Route(ctx context.Context, query string, readyVideos int, explicit Intent) (Intent, string) {
	intent, source := r.route(ctx, query, readyVideos, explicit)
	metrics.IntentRoutedTotal.WithLabelValues(string(intent), source).Inc()
	return intent, source
}

func (r *Router) route(ctx context.Context, query string, readyVideos int, explicit Intent) (Intent, string) {
	if explicit.IsValid() {
		return explicit, sourceExplicit
	}

	q := strings.TrimSpace(query)

	// 摘要关键词优先判定，"summarize both videos" 归入双摘要而非对比
	if reSummary.MatchString(q) {
		if readyVideos >= 2 && reAllBoth.MatchString(q) {
			return IntentDualSummary, sourceHeuristic
		}
		return IntentSummary, sourceHeuristic
	}
	if reCompare.MatchString(q) && readyVideos >= 2 {
		return IntentCompare, sourceHeuristic
	}

	// 双视频会话下启发式无法区分时，交给 LLM 分类
	if readyVideos >= 2 && r.generator != nil {
		if intent, ok := r.classify(ctx, q); ok {
			return intent, sourceLLM
		}
	}

	return IntentRAG, sourceHeuristic
}

const classifySystem = `You are an intent classifier for a video Q&A assistant.
The user has loaded two videos. Classify the query into exactly one label:
rag - a question about the content of one video
compare - asks to contrast or relate the two videos
summary - asks for a summary of one video
dual_summary - asks for summaries of both videos
Reply with only the label.`

// classify 用一次轻量 LLM 调用分类意图
func (r *Router) classify(ctx context.Context, query string) (Intent, bool) {
	out, err := r.generator.Generate(ctx, "", []*schema.Message{
		schema.SystemMessage(classifySystem),
		schema.UserMessage(query),
	})
	if err != nil {
		logger.Warn(ctx, "intent classification failed, falling back to rag", "error", err)
		return IntentRAG, false
	}

	m := reIntentTk.FindString(strings.ToLower(out))
	intent := Intent(m)
	if !intent.IsValid() {
		return IntentRAG, false
	}
	return intent, true
}
