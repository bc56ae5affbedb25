package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/embedding"

	"clipiq-api/internal/config"
	"clipiq-api/internal/domain/entity"
	"clipiq-api/internal/infrastructure/persistence/memvec"
	pkgerrors "clipiq-api/pkg/errors"
)

type fakeSource struct {
	meta          *entity.VideoMeta
	metaErr       error
	segments      []entity.TranscriptSegment
	lang          string
	transcriptErr error
}

func (f *fakeSource) FetchMetadata(ctx context.Context, videoID string) (*entity.VideoMeta, error) {
	return f.meta, f.metaErr
}

func (f *fakeSource) FetchTranscript(ctx context.Context, videoID string) ([]entity.TranscriptSegment, string, error) {
	return f.segments, f.lang, f.transcriptErr
}

type unitEmbedder struct {
	short bool
}

func (u *unitEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	n := len(texts)
	if u.short && n > 0 {
		n--
	}
	out := make([][]float64, n)
	for i := range out {
		out[i] = []float64{1, 0, 0}
	}
	return out, nil
}

func testSegments() []entity.TranscriptSegment {
	segs := make([]entity.TranscriptSegment, 4)
	for i := range segs {
		segs[i] = entity.TranscriptSegment{
			Text:     "segment text with enough substance to keep",
			StartSec: float64(i * 30),
			Duration: 30,
		}
	}
	return segs
}

func newTestPipeline(src TranscriptSource, emb embedding.Embedder) (*Pipeline, *memvec.Index) {
	index := memvec.NewIndex()
	p := NewPipeline(src, emb, index, NewChunker(&config.ChunkingConfig{}))
	return p, index
}

func TestPipelineReady(t *testing.T) {
	src := &fakeSource{
		meta:     &entity.VideoMeta{VideoID: "dQw4w9WgXcQ", Title: "talk"},
		segments: testSegments(),
		lang:     "en",
	}
	p, index := newTestPipeline(src, &unitEmbedder{})
	rec := entity.NewVideoRecord("dQw4w9WgXcQ", "https://youtu.be/dQw4w9WgXcQ")

	if err := p.Run(context.Background(), "sess-1", rec); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Status != entity.VideoStatusReady {
		t.Errorf("status = %s, want ready", rec.Status)
	}
	if rec.Language != "en" || rec.Meta == nil || rec.Meta.Title != "talk" {
		t.Errorf("record = %+v", rec)
	}
	if rec.ChunkCount == 0 {
		t.Error("chunk count not recorded")
	}
	if n, _ := index.CountChunks(context.Background(), "sess-1", "dQw4w9WgXcQ"); n != rec.ChunkCount {
		t.Errorf("index holds %d chunks, record says %d", n, rec.ChunkCount)
	}
}

func TestPipelineMetadataFailureNonBlocking(t *testing.T) {
	src := &fakeSource{
		metaErr:  errors.New("metadata api unavailable"),
		segments: testSegments(),
		lang:     "en",
	}
	p, _ := newTestPipeline(src, &unitEmbedder{})
	rec := entity.NewVideoRecord("dQw4w9WgXcQ", "u")

	if err := p.Run(context.Background(), "sess-1", rec); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Status != entity.VideoStatusReady || rec.Meta != nil {
		t.Errorf("status = %s, meta = %v", rec.Status, rec.Meta)
	}
}

func TestPipelineNoTranscript(t *testing.T) {
	src := &fakeSource{transcriptErr: pkgerrors.ErrNoTranscript}
	p, _ := newTestPipeline(src, &unitEmbedder{})
	rec := entity.NewVideoRecord("dQw4w9WgXcQ", "u")

	err := p.Run(context.Background(), "sess-1", rec)
	if err == nil {
		t.Fatal("missing transcript must surface an error")
	}
	if rec.Status != entity.VideoStatusNoTranscript {
		t.Errorf("status = %s, want no_transcript", rec.Status)
	}
	if rec.FailReason == "" {
		t.Error("fail reason not recorded")
	}
}

func TestPipelineEmptyAfterNormalization(t *testing.T) {
	src := &fakeSource{
		segments: []entity.TranscriptSegment{
			{Text: "   ", StartSec: 0, Duration: 5},
			{Text: "\u0000\u0007", StartSec: 5, Duration: 5},
		},
		lang: "en",
	}
	p, _ := newTestPipeline(src, &unitEmbedder{})
	rec := entity.NewVideoRecord("dQw4w9WgXcQ", "u")

	err := p.Run(context.Background(), "sess-1", rec)
	if err == nil {
		t.Fatal("empty transcript must surface an error")
	}
	if rec.Status != entity.VideoStatusNoTranscript {
		t.Errorf("status = %s, want no_transcript", rec.Status)
	}
	if rec.FailReason != "transcript empty after normalization" {
		t.Errorf("fail reason = %q", rec.FailReason)
	}
}

func TestPipelineEmbeddingCountMismatch(t *testing.T) {
	src := &fakeSource{segments: testSegments(), lang: "en"}
	p, index := newTestPipeline(src, &unitEmbedder{short: true})
	rec := entity.NewVideoRecord("dQw4w9WgXcQ", "u")

	err := p.Run(context.Background(), "sess-1", rec)
	if err == nil {
		t.Fatal("vector count mismatch must fail the ingest")
	}
	if rec.Status != entity.VideoStatusFailed {
		t.Errorf("status = %s, want failed", rec.Status)
	}
	if pkgerrors.AsAppError(err).Code != pkgerrors.CodeIngestFailed {
		t.Errorf("error code = %s", pkgerrors.AsAppError(err).Code)
	}
	if n, _ := index.CountChunks(context.Background(), "sess-1", "dQw4w9WgXcQ"); n != 0 {
		t.Errorf("failed ingest must not leave vectors, found %d", n)
	}
}
