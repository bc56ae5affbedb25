package chat

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/schema"

	"clipiq-api/internal/application/ingest"
	"clipiq-api/internal/application/retrieval"
	"clipiq-api/internal/application/session"
	"clipiq-api/internal/config"
	"clipiq-api/internal/domain/entity"
	"clipiq-api/internal/infrastructure/persistence/memvec"
	pkgerrors "clipiq-api/pkg/errors"
)

type stubGenerator struct {
	reply string
	calls int
}

func (g *stubGenerator) Generate(ctx context.Context, provider string, messages []*schema.Message) (string, error) {
	g.calls++
	return g.reply, nil
}

// stubSource 按视频 ID 返回预置字幕；取消的 ctx 会让抓取失败，
// 用于验证摄取不随请求生命周期终止
type stubSource struct {
	transcripts map[string][]entity.TranscriptSegment
}

func (s *stubSource) FetchMetadata(ctx context.Context, videoID string) (*entity.VideoMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &entity.VideoMeta{VideoID: videoID, Title: "video " + videoID}, nil
}

func (s *stubSource) FetchTranscript(ctx context.Context, videoID string) ([]entity.TranscriptSegment, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	segs, ok := s.transcripts[videoID]
	if !ok {
		return nil, "", pkgerrors.ErrNoTranscript
	}
	return segs, "en", nil
}

type stubEmbedder struct{}

func (stubEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range out {
		out[i] = []float64{1, 0, 0}
	}
	return out, nil
}

func talkSegments() []entity.TranscriptSegment {
	segs := make([]entity.TranscriptSegment, 4)
	for i := range segs {
		segs[i] = entity.TranscriptSegment{
			Text:     "the speaker keeps explaining the topic in detail here",
			StartSec: float64(i * 30),
			Duration: 30,
		}
	}
	return segs
}

func newTestService(src ingest.TranscriptSource, gen *stubGenerator) *Service {
	index := memvec.NewIndex()
	sessions := session.NewManager(index, nil, &config.SessionConfig{
		TTL:          time.Hour,
		MaxVideos:    2,
		HistoryLimit: 8,
	})
	pipeline := ingest.NewPipeline(src, stubEmbedder{}, index, ingest.NewChunker(&config.ChunkingConfig{}))
	engine := retrieval.NewEngine(stubEmbedder{}, index, &config.RetrievalConfig{})
	return NewService(sessions, pipeline, engine, index, gen, NewRouter(gen), nil, &config.Config{})
}

func TestProcessVideoSurvivesRequestCancellation(t *testing.T) {
	src := &stubSource{transcripts: map[string][]entity.TranscriptSegment{
		"dQw4w9WgXcQ": talkSegments(),
	}}
	svc := newTestService(src, &stubGenerator{})

	// 客户端在摄取开始前就断开了连接
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.ProcessVideo(ctx, ProcessVideoInput{URL: "https://youtu.be/dQw4w9WgXcQ"})
	if err != nil {
		t.Fatalf("ProcessVideo: %v", err)
	}
	if got := result.Video.CurrentStatus(); got != entity.VideoStatusReady {
		t.Errorf("status = %s, want ready despite cancelled request", got)
	}
}

func TestComparePairToleratesOneUnavailableSide(t *testing.T) {
	sess := entity.NewSession("sess-1")
	a, _, _ := sess.AttachVideo("aaaaaaaaaaa", "url-a", 2)
	b, _, _ := sess.AttachVideo("bbbbbbbbbbb", "url-b", 2)
	a.Transition(entity.VideoStatusTranscriptFetching)
	a.Transition(entity.VideoStatusChunking)
	a.Transition(entity.VideoStatusEmbedding)
	a.Transition(entity.VideoStatusReady)
	b.Transition(entity.VideoStatusTranscriptFetching)
	b.Transition(entity.VideoStatusNoTranscript)

	gotA, gotB, err := comparePair(sess)
	if err != nil {
		t.Fatalf("one unavailable side must not block comparison: %v", err)
	}
	if gotA != a || gotB != b {
		t.Errorf("pair = (%s, %s), want attach order", gotA.VideoID, gotB.VideoID)
	}

	// 两侧都不可用才算失败
	neither := entity.NewSession("sess-2")
	neither.AttachVideo("aaaaaaaaaaa", "url-a", 2)
	neither.AttachVideo("bbbbbbbbbbb", "url-b", 2)
	if _, _, err := comparePair(neither); err == nil {
		t.Error("comparison with no ready video must fail")
	} else if pkgerrors.AsAppError(err).Code != pkgerrors.CodeVideoNotReady {
		t.Errorf("error code = %s, want video not ready", pkgerrors.AsAppError(err).Code)
	}
}

func TestCompareDegradesWhenOneSideHasNoTranscript(t *testing.T) {
	src := &stubSource{transcripts: map[string][]entity.TranscriptSegment{
		"dQw4w9WgXcQ": talkSegments(),
		// 第二个视频没有任何字幕
	}}
	gen := &stubGenerator{reply: "Only the first video covers this topic."}
	svc := newTestService(src, gen)
	ctx := context.Background()

	first, err := svc.ProcessVideo(ctx, ProcessVideoInput{URL: "https://youtu.be/dQw4w9WgXcQ"})
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	sessionID := first.SessionID

	second, err := svc.ProcessVideo(ctx, ProcessVideoInput{SessionID: sessionID, URL: "https://youtu.be/aaaaaaaaaaa"})
	if err == nil {
		t.Fatal("missing transcript must surface an ingest error")
	}
	if got := second.Video.CurrentStatus(); got != entity.VideoStatusNoTranscript {
		t.Fatalf("second video status = %s, want no_transcript", got)
	}

	result, err := svc.Compare(ctx, sessionID, "how do the two videos differ on this topic")
	if err != nil {
		t.Fatalf("Compare must degrade instead of failing: %v", err)
	}
	if !result.Degraded {
		t.Error("one-sided comparison must be marked degraded")
	}
	if result.Answer != gen.reply {
		t.Errorf("answer = %q", result.Answer)
	}
	if result.VideoA != "dQw4w9WgXcQ" || result.VideoB != "aaaaaaaaaaa" {
		t.Errorf("pair = (%s, %s)", result.VideoA, result.VideoB)
	}
	if gen.calls == 0 {
		t.Error("degraded comparison must still consult the generator")
	}
}
