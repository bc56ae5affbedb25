package retrieval_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/embedding"

	"clipiq-api/internal/application/retrieval"
	"clipiq-api/internal/config"
	"clipiq-api/internal/domain/entity"
	"clipiq-api/internal/infrastructure/persistence/memvec"
)

type queryEmbedder struct {
	vec []float64
}

func (q *queryEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range out {
		out[i] = q.vec
	}
	return out, nil
}

func seedEngine(t *testing.T, items []*retrieval.ChunkVector) *retrieval.Engine {
	t.Helper()
	index := memvec.NewIndex()
	if err := index.Insert(context.Background(), "sess-1", items); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return retrieval.NewEngine(&queryEmbedder{vec: []float64{1, 0}}, index, &config.RetrievalConfig{})
}

func chunkAt(pos int, text string, vec []float32) *retrieval.ChunkVector {
	start := float64(pos * 60)
	return &retrieval.ChunkVector{
		Chunk: entity.Chunk{
			ID:       text,
			VideoID:  "dQw4w9WgXcQ",
			Position: pos,
			StartSec: start,
			EndSec:   start + 60,
			Text:     text,
		},
		Vector: vec,
	}
}

func TestRetrieveRanksAndFiltersLowQuality(t *testing.T) {
	e := seedEngine(t, []*retrieval.ChunkVector{
		chunkAt(0, "the speaker opens with the roadmap for the quarter", []float32{1, 0}),
		chunkAt(1, "a b c d e f g h i j k l m n o p", []float32{1, 0.01}),
		chunkAt(2, "pricing changes take effect at the end of the talk", []float32{0.5, 0.5}),
		chunkAt(3, "questions from the audience close out the session", []float32{0, 1}),
	})

	out, err := e.Retrieve(context.Background(), retrieval.RetrieveInput{
		SessionID: "sess-1",
		VideoID:   "dQw4w9WgXcQ",
		Query:     "what is the roadmap",
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if out.Filtered != 1 {
		t.Errorf("filtered = %d, want 1 low quality chunk", out.Filtered)
	}
	if len(out.Chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(out.Chunks))
	}
	if out.Chunks[0].Chunk.Position != 0 {
		t.Errorf("best match position = %d, want 0", out.Chunks[0].Chunk.Position)
	}
	if len(out.Evidence) != 3 {
		t.Fatalf("evidence lines = %d", len(out.Evidence))
	}
	if out.Evidence[0] != "[00:00] the speaker opens with the roadmap for the quarter" {
		t.Errorf("evidence[0] = %q", out.Evidence[0])
	}
}

func TestRetrieveTimeWindow(t *testing.T) {
	e := seedEngine(t, []*retrieval.ChunkVector{
		chunkAt(0, "introduction and context for the whole discussion", []float32{1, 0}),
		chunkAt(1, "the architecture deep dive begins in earnest here", []float32{1, 0}),
		chunkAt(2, "benchmarks and closing thoughts wrap everything up", []float32{1, 0}),
	})

	out, err := e.Retrieve(context.Background(), retrieval.RetrieveInput{
		SessionID: "sess-1",
		VideoID:   "dQw4w9WgXcQ",
		Query:     "what happens between 1:10 and 1:30",
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if out.Window == nil || out.Window.FromSec != 70 || out.Window.ToSec != 90 {
		t.Fatalf("window = %+v", out.Window)
	}
	if len(out.Chunks) != 1 || out.Chunks[0].Chunk.Position != 1 {
		t.Errorf("chunks = %+v", out.Chunks)
	}
	if strings.Contains(out.SemanticQuery, "1:10") {
		t.Errorf("time phrase must be stripped from the semantic query, got %q", out.SemanticQuery)
	}
}

func TestRetrieveExplicitTopK(t *testing.T) {
	items := make([]*retrieval.ChunkVector, 6)
	for i := range items {
		items[i] = chunkAt(i, "a steadily descending relevance chunk number", []float32{1, float32(i) / 10})
	}
	e := seedEngine(t, items)

	out, err := e.Retrieve(context.Background(), retrieval.RetrieveInput{
		SessionID: "sess-1",
		VideoID:   "dQw4w9WgXcQ",
		Query:     "relevance",
		TopK:      2,
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(out.Chunks) != 2 || out.TopK != 2 {
		t.Errorf("got %d chunks, topK %d", len(out.Chunks), out.TopK)
	}
}

func TestRetrieveNoChunks(t *testing.T) {
	e := retrieval.NewEngine(&queryEmbedder{vec: []float64{1, 0}}, memvec.NewIndex(), &config.RetrievalConfig{})

	_, err := e.Retrieve(context.Background(), retrieval.RetrieveInput{
		SessionID: "sess-1",
		VideoID:   "dQw4w9WgXcQ",
		Query:     "anything",
	})
	if !errors.Is(err, retrieval.ErrNoChunks) {
		t.Errorf("err = %v, want retrieval.ErrNoChunks", err)
	}
}

func TestRetrieveDisabledEngine(t *testing.T) {
	var e *retrieval.Engine
	if e.Enabled() {
		t.Error("nil engine must report disabled")
	}

	_, err := e.Retrieve(context.Background(), retrieval.RetrieveInput{SessionID: "s", VideoID: "v", Query: "q"})
	if !errors.Is(err, retrieval.ErrIndexUnavailable) {
		t.Errorf("err = %v, want retrieval.ErrIndexUnavailable", err)
	}
}
