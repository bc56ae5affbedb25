// Package chat 提供对话编排：意图路由、问答、摘要与双视频对比
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"clipiq-api/internal/application/ingest"
	"clipiq-api/internal/application/retrieval"
	"clipiq-api/internal/application/session"
	"clipiq-api/internal/config"
	"clipiq-api/internal/domain/entity"
	"clipiq-api/internal/infrastructure/persistence/redis"
	"clipiq-api/internal/infrastructure/youtube"
	pkgerrors "clipiq-api/pkg/errors"
	"clipiq-api/pkg/logger"
)

var tracer = otel.Tracer("application.chat")

// textGenerator 文本生成端口，由 llm.Generator 实现
type textGenerator interface {
	Generate(ctx context.Context, provider string, messages []*schema.Message) (string, error)
}

// Service 对话服务门面
type Service struct {
	sessions  *session.Manager
	pipeline  *ingest.Pipeline
	engine    *retrieval.Engine
	index     retrieval.VectorIndex
	generator textGenerator
	router    *Router
	// cache 摘要缓存，未启用时为 nil
	cache *redis.Cache
	cfg   *config.Config

	// ingestGroup 合并同一 session+video 的并发摄取请求
	ingestGroup singleflight.Group
}

// NewService 创建对话服务
func NewService(
	sessions *session.Manager,
	pipeline *ingest.Pipeline,
	engine *retrieval.Engine,
	index retrieval.VectorIndex,
	generator textGenerator,
	router *Router,
	cache *redis.Cache,
	cfg *config.Config,
) *Service {
	return &Service{
		sessions:  sessions,
		pipeline:  pipeline,
		engine:    engine,
		index:     index,
		generator: generator,
		router:    router,
		cache:     cache,
		cfg:       cfg,
	}
}

// ProcessVideo 摄取视频到会话
//
// 同一会话对同一视频的并发请求通过 singleflight 合并，后到的
// 请求等待在途摄取完成后共享结果。已处于终态的视频直接返回
// 当前状态，摄取是幂等的。
func (s *Service) ProcessVideo(ctx context.Context, in ProcessVideoInput) (*ProcessVideoResult, error) {
	videoID, err := youtube.ExtractVideoID(in.URL)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.GetOrCreate(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithContext(ctx, logger.SessionIDKey, sess.ID)

	ctx, span := tracer.Start(ctx, "chat.ProcessVideo", trace.WithAttributes(
		attribute.String("session.id", sess.ID),
		attribute.String("video.id", videoID),
	))
	defer span.End()

	rec, isNew, err := s.sessions.AttachVideo(ctx, sess.ID, videoID, in.URL)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if !isNew && rec.CurrentStatus().IsTerminal() {
		return &ProcessVideoResult{SessionID: sess.ID, Video: rec}, nil
	}

	// 摄取与请求生命周期解耦：客户端断开不应把记录打进 failed 终态，
	// 后续请求直接复用摄取结果。日志与追踪上下文的键值保留。
	runCtx := context.WithoutCancel(ctx)
	key := sess.ID + ":" + videoID
	_, err, shared := s.ingestGroup.Do(key, func() (interface{}, error) {
		return nil, s.pipeline.Run(runCtx, sess.ID, rec)
	})
	span.SetAttributes(attribute.Bool("ingest.shared", shared))
	if err != nil {
		span.RecordError(err)
		return &ProcessVideoResult{SessionID: sess.ID, Video: rec}, err
	}

	return &ProcessVideoResult{SessionID: sess.ID, Video: rec}, nil
}

// Chat 处理一轮对话：路由意图并分发到对应编排
func (s *Service) Chat(ctx context.Context, in ChatInput) (*ChatResult, error) {
	in.Query = strings.TrimSpace(in.Query)
	if in.Query == "" {
		return nil, pkgerrors.ErrInvalidParam.WithDetail("query is required")
	}

	sess, err := s.sessions.Get(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithContext(ctx, logger.SessionIDKey, sess.ID)

	ready := sess.ReadyVideos()
	if len(ready) == 0 {
		return nil, pkgerrors.ErrVideoNotReady.WithDetail("no ready videos in session")
	}

	intent, source := s.router.Route(ctx, in.Query, len(ready), in.Intent)

	ctx, span := tracer.Start(ctx, "chat.Chat", trace.WithAttributes(
		attribute.String("session.id", sess.ID),
		attribute.String("chat.intent", string(intent)),
		attribute.String("chat.intent_source", source),
	))
	defer span.End()

	var result *ChatResult
	switch intent {
	case IntentRAG:
		result, err = s.answerRAG(ctx, sess, ready, in)
	case IntentSummary:
		result, err = s.answerSummary(ctx, sess, ready, in)
	case IntentCompare:
		result, err = s.answerCompare(ctx, sess, in.Query)
	case IntentDualSummary:
		result, err = s.answerDualSummary(ctx, sess)
	default:
		err = pkgerrors.ErrInvalidParam.WithDetail(fmt.Sprintf("unknown intent: %s", intent))
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result.SessionID = sess.ID
	result.Intent = intent
	result.IntentSource = source

	s.sessions.AppendHistory(sess.ID, entity.RoleUser, in.Query)
	s.sessions.AppendHistory(sess.ID, entity.RoleAssistant, result.Answer)

	return result, nil
}

// targetVideo 确定操作目标视频
// 显式 video_id 优先；单就绪视频时可省略；多视频下缺省是错误。
func (s *Service) targetVideo(sess *entity.Session, ready []*entity.VideoRecord, videoID string) (*entity.VideoRecord, error) {
	if videoID != "" {
		rec := sess.Video(videoID)
		if rec == nil {
			return nil, pkgerrors.ErrNotFound.WithDetail("video not in session: " + videoID)
		}
		if !rec.IsReady() {
			return nil, pkgerrors.ErrVideoNotReady.WithDetail("video status: " + string(rec.CurrentStatus()))
		}
		return rec, nil
	}
	if len(ready) == 1 {
		return ready[0], nil
	}
	return nil, pkgerrors.ErrInvalidParam.WithDetail("video_id is required when multiple videos are loaded")
}

// ClearSession 销毁会话及其全部派生数据
func (s *Service) ClearSession(ctx context.Context, sessionID string) error {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return err
	}
	s.sessions.Destroy(ctx, sessionID)
	return nil
}
