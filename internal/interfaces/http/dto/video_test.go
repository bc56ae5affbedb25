package dto

import (
	"testing"
	"time"

	"clipiq-api/internal/domain/entity"
)

func TestNewVideoViewCarriesMetadata(t *testing.T) {
	rec := entity.NewVideoRecord("dQw4w9WgXcQ", "https://youtu.be/dQw4w9WgXcQ")
	rec.SetMeta(&entity.VideoMeta{
		VideoID:      "dQw4w9WgXcQ",
		Title:        "conference talk",
		Description:  "a deep dive into the subject",
		Channel:      "the channel",
		Duration:     2 * time.Minute,
		PublishedAt:  "2024-03-01T10:00:00Z",
		ThumbnailURL: "https://img.example/1.jpg",
	})
	rec.SetLanguage("en")
	rec.SetChunkCount(4)

	v := NewVideoView(rec)
	if v.VideoID != "dQw4w9WgXcQ" || v.Status != "pending" {
		t.Errorf("identity = %+v", v)
	}
	if v.Title != "conference talk" || v.Description != "a deep dive into the subject" {
		t.Errorf("title/description = %q / %q", v.Title, v.Description)
	}
	if v.PublishedAt != "2024-03-01T10:00:00Z" || v.DurationSec != 120 {
		t.Errorf("published/duration = %q / %v", v.PublishedAt, v.DurationSec)
	}
	if v.Language != "en" || v.ChunkCount != 4 {
		t.Errorf("language/chunks = %q / %d", v.Language, v.ChunkCount)
	}
}

func TestNewVideoViewHidesPlaceholderMeta(t *testing.T) {
	rec := entity.NewVideoRecord("dQw4w9WgXcQ", "u")
	rec.SetMeta(&entity.VideoMeta{VideoID: "dQw4w9WgXcQ", Title: "dQw4w9WgXcQ", Placeholder: true})

	v := NewVideoView(rec)
	if v.Title != "" || v.Description != "" || v.PublishedAt != "" {
		t.Errorf("placeholder meta must not leak into the view: %+v", v)
	}
}
