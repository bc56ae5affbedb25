package chat

import (
	"context"
	"errors"

	"clipiq-api/internal/application/retrieval"
	"clipiq-api/internal/domain/entity"
	pkgerrors "clipiq-api/pkg/errors"
	"clipiq-api/pkg/logger"
)

// answerRAG 单视频问答编排
//
// 检索证据 -> 拼装提示词（含最近对话轮） -> 生成 -> 引用校验。
// 无证据时不调用 LLM，直接返回固定答复，避免无依据生成。
func (s *Service) answerRAG(ctx context.Context, sess *entity.Session, ready []*entity.VideoRecord, in ChatInput) (*ChatResult, error) {
	rec, err := s.targetVideo(sess, ready, in.VideoID)
	if err != nil {
		return nil, err
	}

	out, err := s.engine.Retrieve(ctx, retrieval.RetrieveInput{
		SessionID: sess.ID,
		VideoID:   rec.VideoID,
		Query:     in.Query,
	})
	if err != nil {
		if errors.Is(err, retrieval.ErrNoChunks) {
			return nil, pkgerrors.ErrVideoNotReady.WithDetail("video has no indexed chunks")
		}
		return nil, pkgerrors.ErrRetrievalFailed.WithError(err)
	}

	if len(out.Chunks) == 0 {
		logger.Info(ctx, "no evidence retrieved", "video_id", rec.VideoID,
			"time_filtered", out.Window != nil)
		return &ChatResult{
			VideoID:  rec.VideoID,
			Answer:   "I could not find anything about that in the video" + windowSuffix(out.Window),
			Degraded: true,
		}, nil
	}

	messages := buildRAGMessages(rec.Title(), out.Evidence, sess.RecentHistory(historyTurnsInPrompt), in.Query)
	answer, err := s.generator.Generate(ctx, "", messages)
	if err != nil {
		return nil, err
	}

	cleaned, citations := validateCitations(answer, out.Chunks)

	return &ChatResult{
		VideoID:   rec.VideoID,
		Answer:    cleaned,
		Citations: citations,
		Evidence:  out.Evidence,
	}, nil
}

// windowSuffix 无证据答复中标注时间窗口
func windowSuffix(w *retrieval.TimeWindow) string {
	if w.IsZero() {
		return "."
	}
	switch {
	case w.HasFrom && w.HasTo:
		return " in the requested time range."
	case w.HasFrom:
		return " after the requested time."
	default:
		return " before the requested time."
	}
}
