package entity

import (
	"testing"
	"time"
)

func TestSessionExpiry(t *testing.T) {
	s := NewSession("s1")
	now := time.Now()

	if s.IsExpired(time.Hour, now) {
		t.Error("fresh session should not be expired")
	}
	if !s.IsExpired(time.Hour, now.Add(2*time.Hour)) {
		t.Error("idle session past ttl should be expired")
	}
	if s.IsExpired(0, now.Add(100*time.Hour)) {
		t.Error("zero ttl disables expiry")
	}

	s.LastActiveAt = now.Add(-2 * time.Hour)
	s.Touch()
	if s.IsExpired(time.Hour, now) {
		t.Error("Touch should reset the idle clock")
	}
}

func TestSessionAppendTurn(t *testing.T) {
	s := NewSession("s1")
	for i := 0; i < 6; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		s.AppendTurn(role, string(rune('a'+i)), 4)
	}

	if len(s.History) != 4 {
		t.Fatalf("history length = %d, want 4", len(s.History))
	}
	if s.History[0].Content != "c" {
		t.Errorf("eldest turns should be evicted, got first = %q", s.History[0].Content)
	}

	recent := s.RecentHistory(2)
	if len(recent) != 2 || recent[1].Content != "f" {
		t.Errorf("RecentHistory(2) = %+v", recent)
	}
	if got := s.RecentHistory(100); len(got) != 4 {
		t.Errorf("RecentHistory larger than history should return all, got %d", len(got))
	}
}

func TestSessionReadyVideos(t *testing.T) {
	s := NewSession("s1")
	a := NewVideoRecord("aaaaaaaaaaa", "")
	b := NewVideoRecord("bbbbbbbbbbb", "")
	b.Status = VideoStatusReady
	s.Videos[a.VideoID] = a
	s.Videos[b.VideoID] = b

	ready := s.ReadyVideos()
	if len(ready) != 1 || ready[0].VideoID != "bbbbbbbbbbb" {
		t.Errorf("ReadyVideos() = %+v, want only the ready record", ready)
	}

	if s.Video("aaaaaaaaaaa") != a {
		t.Error("Video lookup failed")
	}
	if s.Video("missing") != nil {
		t.Error("missing video should be nil")
	}
}
