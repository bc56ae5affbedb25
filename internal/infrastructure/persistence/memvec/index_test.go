package memvec

import (
	"context"
	"testing"

	"clipiq-api/internal/application/retrieval"
	"clipiq-api/internal/domain/entity"
)

func seedIndex(t *testing.T, x *Index, sessionID, videoID string, vectors [][]float32) {
	t.Helper()
	items := make([]*retrieval.ChunkVector, len(vectors))
	for i, v := range vectors {
		items[i] = &retrieval.ChunkVector{
			Chunk: entity.Chunk{
				ID:       videoID + "-" + string(rune('a'+i)),
				VideoID:  videoID,
				Position: i,
				StartSec: float64(i) * 60,
				EndSec:   float64(i+1) * 60,
				Text:     "chunk",
			},
			Vector: v,
		}
	}
	if err := x.Insert(context.Background(), sessionID, items); err != nil {
		t.Fatalf("Insert: %v", err)
	}
}

func TestSearchRanksByCosine(t *testing.T) {
	x := NewIndex()
	seedIndex(t, x, "s1", "vidAAAAAAAA", [][]float32{
		{0, 1},      // 正交
		{1, 0},      // 完全一致
		{0.9, 0.45}, // 接近
	})

	results, err := x.Search(context.Background(), &retrieval.SearchParams{
		SessionID:   "s1",
		VideoID:     "vidAAAAAAAA",
		QueryVector: []float32{1, 0},
		TopK:        2,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Chunk.Position != 1 || results[1].Chunk.Position != 2 {
		t.Errorf("ranking wrong: positions %d, %d", results[0].Chunk.Position, results[1].Chunk.Position)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not descending: %v, %v", results[0].Score, results[1].Score)
	}
}

func TestSearchTieBreakByPosition(t *testing.T) {
	x := NewIndex()
	// 三个同向向量，分数完全相同
	seedIndex(t, x, "s1", "vidAAAAAAAA", [][]float32{
		{1, 0}, {1, 0}, {1, 0},
	})

	results, err := x.Search(context.Background(), &retrieval.SearchParams{
		SessionID:   "s1",
		VideoID:     "vidAAAAAAAA",
		QueryVector: []float32{1, 0},
		TopK:        3,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for i, r := range results {
		if r.Chunk.Position != i {
			t.Errorf("tie break must follow position order, got %d at rank %d", r.Chunk.Position, i)
		}
	}
}

func TestSearchTimeWindow(t *testing.T) {
	x := NewIndex()
	// 分块时间范围 [0,60) [60,120) [120,180)
	seedIndex(t, x, "s1", "vidAAAAAAAA", [][]float32{
		{1, 0}, {1, 0}, {1, 0},
	})

	w := &retrieval.TimeWindow{FromSec: 70, HasFrom: true, ToSec: 110, HasTo: true}
	results, err := x.Search(context.Background(), &retrieval.SearchParams{
		SessionID:   "s1",
		VideoID:     "vidAAAAAAAA",
		QueryVector: []float32{1, 0},
		TopK:        10,
		Window:      w,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.Position != 1 {
		t.Errorf("window filter wrong, got %+v", results)
	}
}

func TestSearchZeroVectorScoresZero(t *testing.T) {
	x := NewIndex()
	seedIndex(t, x, "s1", "vidAAAAAAAA", [][]float32{
		{0, 0}, // 降级的零向量
		{1, 0},
	})

	results, err := x.Search(context.Background(), &retrieval.SearchParams{
		SessionID:   "s1",
		VideoID:     "vidAAAAAAAA",
		QueryVector: []float32{1, 0},
		TopK:        2,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results[0].Chunk.Position != 1 {
		t.Error("zero vector must rank last")
	}
	if results[1].Score != 0 {
		t.Errorf("zero vector score = %v, want 0", results[1].Score)
	}
}

func TestSessionIsolation(t *testing.T) {
	x := NewIndex()
	seedIndex(t, x, "s1", "vidAAAAAAAA", [][]float32{{1, 0}})
	seedIndex(t, x, "s2", "vidAAAAAAAA", [][]float32{{1, 0}, {0, 1}})

	n1, _ := x.CountChunks(context.Background(), "s1", "vidAAAAAAAA")
	n2, _ := x.CountChunks(context.Background(), "s2", "vidAAAAAAAA")
	if n1 != 1 || n2 != 2 {
		t.Fatalf("session isolation broken: %d, %d", n1, n2)
	}

	results, _ := x.Search(context.Background(), &retrieval.SearchParams{
		SessionID:   "s3",
		VideoID:     "vidAAAAAAAA",
		QueryVector: []float32{1, 0},
		TopK:        5,
	})
	if len(results) != 0 {
		t.Errorf("unknown session must return no results, got %d", len(results))
	}
}

func TestListChunksOrdered(t *testing.T) {
	x := NewIndex()
	seedIndex(t, x, "s1", "vidAAAAAAAA", [][]float32{{1, 0}, {0, 1}, {1, 1}})

	chunks, err := x.ListChunks(context.Background(), "s1", "vidAAAAAAAA")
	if err != nil {
		t.Fatalf("ListChunks: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	for i, c := range chunks {
		if c.Position != i {
			t.Errorf("chunks not position ordered: %d at index %d", c.Position, i)
		}
	}
}

func TestDeleteVideoAndDropSession(t *testing.T) {
	x := NewIndex()
	seedIndex(t, x, "s1", "vidAAAAAAAA", [][]float32{{1, 0}})
	seedIndex(t, x, "s1", "vidBBBBBBBB", [][]float32{{1, 0}})

	if err := x.DeleteVideo(context.Background(), "s1", "vidAAAAAAAA"); err != nil {
		t.Fatalf("DeleteVideo: %v", err)
	}
	if n, _ := x.CountChunks(context.Background(), "s1", "vidAAAAAAAA"); n != 0 {
		t.Errorf("deleted video still has %d chunks", n)
	}
	if n, _ := x.CountChunks(context.Background(), "s1", "vidBBBBBBBB"); n != 1 {
		t.Errorf("other video affected, %d chunks", n)
	}

	if err := x.DropSession(context.Background(), "s1"); err != nil {
		t.Fatalf("DropSession: %v", err)
	}
	if n, _ := x.CountChunks(context.Background(), "s1", "vidBBBBBBBB"); n != 0 {
		t.Errorf("dropped session still has %d chunks", n)
	}
}
