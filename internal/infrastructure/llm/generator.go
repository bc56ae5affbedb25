package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"clipiq-api/internal/config"
	einoobs "clipiq-api/internal/observability/eino"
	pkgerrors "clipiq-api/pkg/errors"
	"clipiq-api/pkg/logger"
	"clipiq-api/pkg/metrics"
	"clipiq-api/pkg/retry"

	"github.com/cloudwego/eino/schema"
)

// Generator 统一的文本生成入口
// 在 ChatModel 之上叠加超时、有界重试与错误分类
type Generator struct {
	factory *EinoFactory
	llmCfg  *config.LLMConfig
	genCfg  *config.GenerationConfig
}

// NewGenerator 创建 Generator
func NewGenerator(factory *EinoFactory, cfg *config.Config) *Generator {
	return &Generator{
		factory: factory,
		llmCfg:  &cfg.LLM,
		genCfg:  &cfg.Generation,
	}
}

// Generate 执行一次生成调用
// provider 为空时使用默认提供商
func (g *Generator) Generate(ctx context.Context, provider string, messages []*schema.Message) (string, error) {
	if provider == "" {
		provider = g.llmCfg.DefaultProvider
	}
	modelName := ""
	if p, ok := g.llmCfg.Providers[provider]; ok {
		modelName = p.Model
	}

	chatModel, err := g.factory.Get(ctx, provider)
	if err != nil {
		return "", pkgerrors.ErrLLMCallFailed.WithError(err)
	}

	timeout := g.genCfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	// 供全局回调上报 Token 指标时读取
	callCtx = einoobs.WithProvider(callCtx, provider)

	policy := retry.DefaultPolicy()
	if g.genCfg.MaxAttempts > 0 {
		policy.MaxAttempts = g.genCfg.MaxAttempts
	}

	start := time.Now()
	msg, err := retry.Do(callCtx, policy, func() (*schema.Message, error) {
		out, callErr := chatModel.Generate(callCtx, messages)
		if callErr != nil && isQuotaError(callErr) {
			// 配额耗尽不重试
			return nil, retry.Permanent(callErr)
		}
		return out, callErr
	})
	elapsed := time.Since(start)
	metrics.LLMCallDuration.WithLabelValues(provider, modelName).Observe(elapsed.Seconds())

	if err != nil {
		status := classify(callCtx, err)
		metrics.LLMCallTotal.WithLabelValues(provider, modelName, string(status.Code)).Inc()
		logger.Error(ctx, "llm call failed", err,
			"provider", provider, "model", modelName, "elapsed", elapsed.String())
		return "", status.WithError(err)
	}

	metrics.LLMCallTotal.WithLabelValues(provider, modelName, "ok").Inc()

	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", pkgerrors.ErrLLMCallFailed.WithDetail("empty completion")
	}
	return msg.Content, nil
}

// classify 将底层错误映射为应用错误
func classify(callCtx context.Context, err error) *pkgerrors.AppError {
	switch {
	case isQuotaError(err):
		return pkgerrors.ErrQuotaExceeded
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return pkgerrors.ErrGenerationTimeout
	default:
		return pkgerrors.ErrLLMCallFailed
	}
}

// isQuotaError 识别配额/限流类错误
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") ||
		strings.Contains(s, "quota") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "rate_limit")
}
