package chat

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"clipiq-api/internal/application/retrieval"
	"clipiq-api/internal/domain/entity"
	pkgerrors "clipiq-api/pkg/errors"
	"clipiq-api/pkg/logger"
)

// comparePair 确定对比的两个视频
//
// 挂载顺序决定 A/B，保证同一会话内对比结果稳定。一侧处于
// no_transcript / failed 等不可用状态时不报错，由编排层降级为
// 单边回答；两侧都不可用才算失败。
func comparePair(sess *entity.Session) (*entity.VideoRecord, *entity.VideoRecord, error) {
	videos := sess.AttachedVideos()
	if len(videos) < 2 {
		return nil, nil, pkgerrors.ErrVideoNotReady.WithDetail("comparison requires two videos in the session")
	}
	a, b := videos[0], videos[1]
	if !a.IsReady() && !b.IsReady() {
		return nil, nil, pkgerrors.ErrVideoNotReady.WithDetail("neither video is ready for comparison")
	}
	return a, b, nil
}

// unavailableNote 不可用一侧在证据块中的说明
func unavailableNote(rec *entity.VideoRecord) string {
	switch rec.CurrentStatus() {
	case entity.VideoStatusNoTranscript:
		return "(this video has no transcript and cannot be compared)"
	case entity.VideoStatusFailed:
		return "(this video failed to process and cannot be compared)"
	default:
		return "(this video is still processing and cannot be compared yet)"
	}
}

// compareSide 单侧检索；不可用的一侧跳过检索，证据为空
func (s *Service) compareSide(ctx context.Context, sessionID string, rec *entity.VideoRecord, query string) (*retrieval.RetrieveOutput, error) {
	if !rec.IsReady() {
		return &retrieval.RetrieveOutput{}, nil
	}
	return s.engine.Retrieve(ctx, retrieval.RetrieveInput{
		SessionID: sessionID, VideoID: rec.VideoID, Query: query,
	})
}

// answerCompare 双视频对比编排
//
// 两路检索并行执行。一侧不可用或无证据时进入降级模式，提示词
// 明确标注该侧缺失而不是静默丢弃，回答仍基于可用一侧给出。
func (s *Service) answerCompare(ctx context.Context, sess *entity.Session, query string) (*ChatResult, error) {
	a, b, err := comparePair(sess)
	if err != nil {
		return nil, err
	}

	var outA, outB *retrieval.RetrieveOutput
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var rerr error
		outA, rerr = s.compareSide(gctx, sess.ID, a, query)
		return rerr
	})
	g.Go(func() error {
		var rerr error
		outB, rerr = s.compareSide(gctx, sess.ID, b, query)
		return rerr
	})
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.ErrRetrievalFailed.WithError(err)
	}

	degraded := !a.IsReady() || !b.IsReady() || len(outA.Chunks) == 0 || len(outB.Chunks) == 0
	if len(outA.Chunks) == 0 && len(outB.Chunks) == 0 {
		return &ChatResult{
			Answer:   "I could not find anything about that in either video.",
			Degraded: true,
		}, nil
	}
	if degraded {
		logger.Info(ctx, "comparison degraded, one side is unavailable or has no evidence",
			"video_a", a.VideoID, "video_b", b.VideoID)
	}

	evidenceA := outA.Evidence
	if !a.IsReady() {
		evidenceA = []string{unavailableNote(a)}
	}
	evidenceB := outB.Evidence
	if !b.IsReady() {
		evidenceB = []string{unavailableNote(b)}
	}

	messages := buildCompareMessages(
		a.Title(), evidenceA,
		b.Title(), evidenceB,
		sess.RecentHistory(historyTurnsInPrompt), query)
	answer, err := s.generator.Generate(ctx, "", messages)
	if err != nil {
		return nil, err
	}

	allChunks := append(append([]*retrieval.ScoredChunk{}, outA.Chunks...), outB.Chunks...)
	cleaned, citations := validateCitations(answer, allChunks)

	return &ChatResult{
		Answer:    cleaned,
		Citations: citations,
		Evidence:  append(append([]string{}, outA.Evidence...), outB.Evidence...),
		Degraded:  degraded,
	}, nil
}

// answerDualSummary 双视频摘要编排，两路摘要并行生成
//
// 一侧不可用时降级为单边摘要并标注缺失侧。
func (s *Service) answerDualSummary(ctx context.Context, sess *entity.Session) (*ChatResult, error) {
	a, b, err := comparePair(sess)
	if err != nil {
		return nil, err
	}

	if !a.IsReady() || !b.IsReady() {
		ready, missing := a, b
		if !a.IsReady() {
			ready, missing = b, a
		}
		sum, serr := s.Summarize(ctx, sess.ID, ready.VideoID)
		if serr != nil {
			return nil, serr
		}
		answer := fmt.Sprintf("## %s\n\n%s\n\n## %s\n\n%s",
			ready.Title(), sum.Summary, missing.Title(), unavailableNote(missing))
		return &ChatResult{Answer: answer, Degraded: true}, nil
	}

	var sumA, sumB *SummaryResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var serr error
		sumA, serr = s.Summarize(gctx, sess.ID, a.VideoID)
		return serr
	})
	g.Go(func() error {
		var serr error
		sumB, serr = s.Summarize(gctx, sess.ID, b.VideoID)
		return serr
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	answer := fmt.Sprintf("## %s\n\n%s\n\n## %s\n\n%s",
		a.Title(), sumA.Summary, b.Title(), sumB.Summary)

	return &ChatResult{Answer: answer}, nil
}

// Compare 双视频对比入口（独立端点用）
func (s *Service) Compare(ctx context.Context, sessionID, query string) (*CompareResult, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	a, b, err := comparePair(sess)
	if err != nil {
		return nil, err
	}

	result, err := s.answerCompare(ctx, sess, query)
	if err != nil {
		return nil, err
	}

	return &CompareResult{
		SessionID: sessionID,
		VideoA:    a.VideoID,
		VideoB:    b.VideoID,
		Answer:    result.Answer,
		Citations: result.Citations,
		Degraded:  result.Degraded,
	}, nil
}
