package chat

import (
	"context"
	"encoding/json"

	"clipiq-api/internal/application/retrieval"
	"clipiq-api/internal/domain/entity"
	"clipiq-api/internal/infrastructure/persistence/redis"
	pkgerrors "clipiq-api/pkg/errors"
	"clipiq-api/pkg/logger"
)

// summaryCharBudget 摘要提示词的转录字符预算
const summaryCharBudget = 6000

// answerSummary 摘要意图的对话编排
func (s *Service) answerSummary(ctx context.Context, sess *entity.Session, ready []*entity.VideoRecord, in ChatInput) (*ChatResult, error) {
	rec, err := s.targetVideo(sess, ready, in.VideoID)
	if err != nil {
		return nil, err
	}

	summary, err := s.Summarize(ctx, sess.ID, rec.VideoID)
	if err != nil {
		return nil, err
	}
	return &ChatResult{
		VideoID: rec.VideoID,
		Answer:  summary.Summary,
	}, nil
}

// Summarize 生成（或取缓存的）单视频摘要
//
// 摘要与对话历史无关，可跨请求复用，因此走 Redis 读穿缓存；
// 缓存未启用时每次现生成。
func (s *Service) Summarize(ctx context.Context, sessionID, videoID string) (*SummaryResult, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rec := sess.Video(videoID)
	if rec == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("video not in session: " + videoID)
	}
	if !rec.IsReady() {
		return nil, pkgerrors.ErrVideoNotReady.WithDetail("video status: " + string(rec.CurrentStatus()))
	}

	if s.cache == nil {
		summary, err := s.generateSummary(ctx, sessionID, rec)
		if err != nil {
			return nil, err
		}
		return &SummaryResult{SessionID: sessionID, VideoID: videoID, Summary: summary}, nil
	}

	key := redis.SummaryKey(sessionID, videoID)

	// 先探缓存以区分命中；未命中走 singleflight 读穿
	if raw, err := s.cache.Get(ctx, key); err == nil {
		var summary string
		if jerr := json.Unmarshal(raw, &summary); jerr == nil {
			return &SummaryResult{SessionID: sessionID, VideoID: videoID, Summary: summary, Cached: true}, nil
		}
	}

	raw, err := s.cache.GetOrLoadSafe(ctx, key, s.cfg.Cache.SummaryTTL, func() (interface{}, error) {
		return s.generateSummary(ctx, sessionID, rec)
	})
	if err != nil {
		// 缓存后端故障时降级为直接生成
		if !pkgerrors.IsAppError(err) {
			logger.Warn(ctx, "summary cache unavailable, generating directly", "error", err)
			summary, gerr := s.generateSummary(ctx, sessionID, rec)
			if gerr != nil {
				return nil, gerr
			}
			return &SummaryResult{SessionID: sessionID, VideoID: videoID, Summary: summary}, nil
		}
		return nil, err
	}

	var summary string
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeCacheError, "corrupted summary cache entry")
	}
	return &SummaryResult{SessionID: sessionID, VideoID: videoID, Summary: summary}, nil
}

// generateSummary 采样转录分块并生成摘要
func (s *Service) generateSummary(ctx context.Context, sessionID string, rec *entity.VideoRecord) (string, error) {
	chunks, err := s.index.ListChunks(ctx, sessionID, rec.VideoID)
	if err != nil {
		return "", pkgerrors.ErrRetrievalFailed.WithError(err)
	}
	if len(chunks) == 0 {
		return "", pkgerrors.ErrVideoNotReady.WithDetail("video has no indexed chunks")
	}

	sampled := s.sampleChunks(chunks)
	messages := buildSummaryMessages(rec.Title(), sampled)
	return s.generator.Generate(ctx, "", messages)
}

// sampleChunks 在字符预算内等距采样分块
//
// 预算够就全量；超出预算时每 k 块取一块（k 向上取整），保持
// 时间轴均匀覆盖而不是截断尾部。
func (s *Service) sampleChunks(chunks []entity.Chunk) []string {
	kept := make([]entity.Chunk, 0, len(chunks))
	total := 0
	for _, c := range chunks {
		if retrieval.IsLowQualityText(c.Text) {
			continue
		}
		kept = append(kept, c)
		total += len([]rune(c.Text))
	}
	if len(kept) == 0 {
		// 全部被过滤时退回原始分块，摘要聊胜于无
		kept = chunks
		total = 0
		for _, c := range chunks {
			total += len([]rune(c.Text))
		}
	}

	step := 1
	if total > summaryCharBudget {
		step = (total + summaryCharBudget - 1) / summaryCharBudget
	}

	maxRunes := s.cfg.Retrieval.MaxEvidenceRunes
	if maxRunes <= 0 {
		maxRunes = 280
	}

	lines := make([]string, 0, len(kept)/step+1)
	for i := 0; i < len(kept); i += step {
		lines = append(lines, retrieval.FormatEvidence(&kept[i], maxRunes))
	}
	return lines
}
