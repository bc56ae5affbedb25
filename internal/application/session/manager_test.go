package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"clipiq-api/internal/application/retrieval"
	"clipiq-api/internal/config"
	"clipiq-api/internal/domain/entity"
	"clipiq-api/internal/infrastructure/persistence/memvec"
	pkgerrors "clipiq-api/pkg/errors"
)

func newTestManager() (*Manager, *memvec.Index) {
	index := memvec.NewIndex()
	cfg := &config.SessionConfig{
		TTL:          time.Hour,
		MaxVideos:    2,
		HistoryLimit: 4,
	}
	return NewManager(index, nil, cfg), index
}

func TestManagerCreateAndGet(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	s := m.Create(ctx)
	if s.ID == "" {
		t.Fatal("created session has empty id")
	}

	got, err := m.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != s.ID {
		t.Errorf("Get returned %s, want %s", got.ID, s.ID)
	}

	if _, err := m.Get(ctx, "missing"); err == nil {
		t.Error("unknown session must return error")
	}
}

func TestManagerGetOrCreate(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	s, err := m.GetOrCreate(ctx, "")
	if err != nil || s == nil {
		t.Fatalf("GetOrCreate with empty id: %v", err)
	}

	same, err := m.GetOrCreate(ctx, s.ID)
	if err != nil || same.ID != s.ID {
		t.Errorf("GetOrCreate with known id: %v", err)
	}
}

func TestManagerExpiredSessionDestroyed(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	s := m.Create(ctx)
	s.LastActiveAt = time.Now().Add(-2 * time.Hour)

	_, err := m.Get(ctx, s.ID)
	if err == nil {
		t.Fatal("expired session must be rejected")
	}
	appErr := pkgerrors.AsAppError(err)
	if appErr.Code != pkgerrors.CodeSessionNotFound {
		t.Errorf("error code = %s, want session not found", appErr.Code)
	}
	if m.Count() != 0 {
		t.Errorf("expired session still tracked, count = %d", m.Count())
	}
}

func TestManagerAttachVideoLimit(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()
	s := m.Create(ctx)

	rec, isNew, err := m.AttachVideo(ctx, s.ID, "aaaaaaaaaaa", "url-a")
	if err != nil || !isNew || rec == nil {
		t.Fatalf("first attach: rec=%v isNew=%v err=%v", rec, isNew, err)
	}

	// 重复挂载返回已有记录
	again, isNew, err := m.AttachVideo(ctx, s.ID, "aaaaaaaaaaa", "url-a")
	if err != nil || isNew || again != rec {
		t.Errorf("duplicate attach: isNew=%v err=%v", isNew, err)
	}

	if _, _, err := m.AttachVideo(ctx, s.ID, "bbbbbbbbbbb", "url-b"); err != nil {
		t.Fatalf("second attach: %v", err)
	}

	_, _, err = m.AttachVideo(ctx, s.ID, "ccccccccccc", "url-c")
	if err == nil {
		t.Fatal("third attach must hit the limit")
	}
	if pkgerrors.AsAppError(err).Code != pkgerrors.CodeSessionVideoLimit {
		t.Errorf("error code = %s, want video limit", pkgerrors.AsAppError(err).Code)
	}
}

func TestManagerAppendHistoryTrims(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()
	s := m.Create(ctx)

	for i := 0; i < 6; i++ {
		m.AppendHistory(s.ID, entity.RoleUser, "q")
	}
	if len(s.History) != 4 {
		t.Errorf("history length = %d, want limit 4", len(s.History))
	}
}

func TestManagerConcurrentIngestAndChat(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()
	s := m.Create(ctx)

	var wg sync.WaitGroup
	wg.Add(2)

	// 摄取侧：挂载视频、推进状态机、写入历史
	go func() {
		defer wg.Done()
		rec, _, err := m.AttachVideo(ctx, s.ID, "aaaaaaaaaaa", "url-a")
		if err != nil {
			t.Errorf("AttachVideo: %v", err)
			return
		}
		for _, st := range []entity.VideoStatus{
			entity.VideoStatusTranscriptFetching,
			entity.VideoStatusChunking,
			entity.VideoStatusEmbedding,
			entity.VideoStatusReady,
		} {
			if err := rec.Transition(st); err != nil {
				t.Errorf("Transition: %v", err)
				return
			}
			rec.SetChunkCount(7)
		}
		for i := 0; i < 50; i++ {
			m.AppendHistory(s.ID, entity.RoleUser, "question")
			m.AppendHistory(s.ID, entity.RoleAssistant, "answer")
		}
	}()

	// 问答侧：与摄取并发的只读访问，-race 下验证无竞争
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.ReadyVideos()
			s.RecentHistory(6)
			if rec := s.Video("aaaaaaaaaaa"); rec != nil {
				rec.CurrentStatus()
				rec.Title()
				rec.Snapshot()
			}
		}
	}()

	wg.Wait()

	if rec := s.Video("aaaaaaaaaaa"); rec == nil || !rec.IsReady() {
		t.Error("video must end up ready")
	}
	if s.HistoryLen() != 4 {
		t.Errorf("history length = %d, want limit 4", s.HistoryLen())
	}
}

func TestManagerDestroyDropsIndexData(t *testing.T) {
	m, index := newTestManager()
	ctx := context.Background()
	s := m.Create(ctx)

	err := index.Insert(ctx, s.ID, []*retrieval.ChunkVector{
		{Chunk: entity.Chunk{ID: "c1", VideoID: "aaaaaaaaaaa", Position: 0}, Vector: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	m.Destroy(ctx, s.ID)

	if _, err := m.Get(ctx, s.ID); err == nil {
		t.Error("destroyed session still retrievable")
	}
	if n, _ := index.CountChunks(ctx, s.ID, "aaaaaaaaaaa"); n != 0 {
		t.Errorf("index bucket survived destroy, %d chunks", n)
	}
}
