package milvus

import (
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
)

func searchResultFixture() []client.SearchResult {
	fields := client.ResultSet{
		milvusentity.NewColumnVarChar("id", []string{"c1", "c2"}),
		milvusentity.NewColumnVarChar("video_id", []string{"dQw4w9WgXcQ", "dQw4w9WgXcQ"}),
		milvusentity.NewColumnInt64("position", []int64{0, 3}),
		milvusentity.NewColumnDouble("start_sec", []float64{0, 180}),
		milvusentity.NewColumnDouble("end_sec", []float64{60, 240}),
		milvusentity.NewColumnVarChar("text_content", []string{"first", "fourth"}),
	}
	return []client.SearchResult{
		{
			ResultCount: 2,
			Fields:      fields,
			// COSINE 相似度，最相近的命中在前
			Scores: []float32{0.93, 0.41},
		},
	}
}

func TestScoredChunksFromResultsKeepsSimilarityOrder(t *testing.T) {
	out := scoredChunksFromResults(searchResultFixture())
	if len(out) != 2 {
		t.Fatalf("got %d chunks, want 2", len(out))
	}

	// 相似度原样透传，不做距离换算；否则最相近的命中反而得最低分
	if out[0].Score != 0.93 || out[1].Score != 0.41 {
		t.Errorf("scores = [%v, %v], want [0.93, 0.41]", out[0].Score, out[1].Score)
	}
	if out[0].Score <= out[1].Score {
		t.Error("best hit must carry the highest score")
	}
}

func TestScoredChunksFromResultsFieldMapping(t *testing.T) {
	out := scoredChunksFromResults(searchResultFixture())
	if len(out) != 2 {
		t.Fatalf("got %d chunks, want 2", len(out))
	}

	c := out[1].Chunk
	if c.ID != "c2" || c.VideoID != "dQw4w9WgXcQ" || c.Position != 3 {
		t.Errorf("chunk identity = %+v", c)
	}
	if c.StartSec != 180 || c.EndSec != 240 || c.Text != "fourth" {
		t.Errorf("chunk content = %+v", c)
	}
}

func TestScoredChunksFromResultsEmpty(t *testing.T) {
	if out := scoredChunksFromResults(nil); len(out) != 0 {
		t.Errorf("got %d chunks from empty results", len(out))
	}
}
