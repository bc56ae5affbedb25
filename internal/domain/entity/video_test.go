package entity

import (
	"testing"
)

func TestVideoStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from VideoStatus
		to   VideoStatus
		ok   bool
	}{
		{"pending to fetching", VideoStatusPending, VideoStatusTranscriptFetching, true},
		{"pending to failed", VideoStatusPending, VideoStatusFailed, true},
		{"pending to ready", VideoStatusPending, VideoStatusReady, false},
		{"fetching to chunking", VideoStatusTranscriptFetching, VideoStatusChunking, true},
		{"fetching to no transcript", VideoStatusTranscriptFetching, VideoStatusNoTranscript, true},
		{"chunking to embedding", VideoStatusChunking, VideoStatusEmbedding, true},
		{"chunking to no transcript", VideoStatusChunking, VideoStatusNoTranscript, true},
		{"embedding to ready", VideoStatusEmbedding, VideoStatusReady, true},
		{"embedding to no transcript", VideoStatusEmbedding, VideoStatusNoTranscript, false},
		{"ready is terminal", VideoStatusReady, VideoStatusPending, false},
		{"failed is terminal", VideoStatusFailed, VideoStatusTranscriptFetching, false},
		{"no transcript is terminal", VideoStatusNoTranscript, VideoStatusChunking, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
			}
		})
	}
}

func TestVideoStatusIsTerminal(t *testing.T) {
	terminal := []VideoStatus{VideoStatusReady, VideoStatusNoTranscript, VideoStatusFailed}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	active := []VideoStatus{VideoStatusPending, VideoStatusTranscriptFetching, VideoStatusChunking, VideoStatusEmbedding}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestVideoRecordTransition(t *testing.T) {
	rec := NewVideoRecord("dQw4w9WgXcQ", "https://youtu.be/dQw4w9WgXcQ")
	if rec.Status != VideoStatusPending {
		t.Fatalf("new record status = %s, want pending", rec.Status)
	}

	if err := rec.Transition(VideoStatusTranscriptFetching); err != nil {
		t.Fatalf("valid transition rejected: %v", err)
	}
	if err := rec.Transition(VideoStatusReady); err == nil {
		t.Fatal("fetching -> ready should be rejected")
	}
	if rec.Status != VideoStatusTranscriptFetching {
		t.Errorf("status changed on rejected transition: %s", rec.Status)
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		sec  float64
		want string
	}{
		{0, "00:00"},
		{-3, "00:00"},
		{59.9, "00:59"},
		{90, "01:30"},
		{600, "10:00"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{3700, "1:01:40"},
		{7325, "2:02:05"},
	}

	for _, tt := range tests {
		if got := FormatTimestamp(tt.sec); got != tt.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.sec, got, tt.want)
		}
	}
}

func TestVideoRecordTitleFallback(t *testing.T) {
	rec := NewVideoRecord("dQw4w9WgXcQ", "")
	if got := rec.Title(); got != "dQw4w9WgXcQ" {
		t.Errorf("Title() = %q, want video id fallback", got)
	}

	rec.Meta = &VideoMeta{Title: "Some Video"}
	if got := rec.Title(); got != "Some Video" {
		t.Errorf("Title() = %q, want %q", got, "Some Video")
	}
}
