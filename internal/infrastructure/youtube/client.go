// Package youtube 提供视频元数据与字幕获取客户端
package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"clipiq-api/internal/config"
	"clipiq-api/internal/domain/entity"
	pkgerrors "clipiq-api/pkg/errors"
	"clipiq-api/pkg/logger"
)

type Client struct {
	apiKey            string
	dataAPIEndpoint   string
	timedTextEndpoint string
	languages         []string
	httpClient        *http.Client
}

func NewClient(cfg *config.YouTubeConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		apiKey:            cfg.APIKey,
		dataAPIEndpoint:   strings.TrimRight(cfg.DataAPIEndpoint, "/"),
		timedTextEndpoint: cfg.TimedTextEndpoint,
		languages:         cfg.Languages,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// videosResponse Data API v3 videos.list 响应片段
type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
			Thumbnails   struct {
				Medium struct {
					URL string `json:"url"`
				} `json:"medium"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// FetchMetadata 获取视频元数据
// 未配置 API 密钥时返回占位元数据，不视为错误
func (c *Client) FetchMetadata(ctx context.Context, videoID string) (*entity.VideoMeta, error) {
	if c.apiKey == "" {
		logger.Debug(ctx, "youtube api key missing, using placeholder metadata", "video_id", videoID)
		return placeholderMeta(videoID), nil
	}

	q := url.Values{}
	q.Set("id", videoID)
	q.Set("part", "snippet,contentDetails")
	q.Set("key", c.apiKey)
	endpoint := c.dataAPIEndpoint + "/videos?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// 元数据为辅助信息，上游不可达时降级为占位数据
		logger.Warn(ctx, "metadata fetch failed, using placeholder", "video_id", videoID, "error", err)
		return placeholderMeta(videoID), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn(ctx, "metadata fetch returned non-200, using placeholder",
			"video_id", videoID, "status", resp.StatusCode)
		return placeholderMeta(videoID), nil
	}

	var vr videosResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("failed to decode metadata response: %w", err)
	}
	if len(vr.Items) == 0 {
		return placeholderMeta(videoID), nil
	}

	item := vr.Items[0]
	meta := &entity.VideoMeta{
		VideoID:      videoID,
		Title:        item.Snippet.Title,
		Description:  item.Snippet.Description,
		Channel:      item.Snippet.ChannelTitle,
		PublishedAt:  item.Snippet.PublishedAt,
		ThumbnailURL: item.Snippet.Thumbnails.Medium.URL,
		Duration:     parseISODuration(item.ContentDetails.Duration),
	}
	if meta.Title == "" {
		meta.Title = videoID
	}
	return meta, nil
}

func placeholderMeta(videoID string) *entity.VideoMeta {
	return &entity.VideoMeta{
		VideoID:     videoID,
		Title:       videoID,
		Placeholder: true,
	}
}

// parseISODuration 解析 PT#H#M#S 形式的时长，解析失败返回 0
func parseISODuration(s string) time.Duration {
	s = strings.TrimPrefix(s, "PT")
	if s == "" {
		return 0
	}
	normalized := strings.NewReplacer("H", "h", "M", "m", "S", "s").Replace(s)
	d, err := time.ParseDuration(strings.ToLower(normalized))
	if err != nil {
		return 0
	}
	return d
}

// trackList timedtext 字幕轨列表
type trackList struct {
	Tracks []struct {
		LangCode string `xml:"lang_code,attr"`
		Name     string `xml:"name,attr"`
		Kind     string `xml:"kind,attr"`
	} `xml:"track"`
}

// timedText timedtext 字幕内容
type timedText struct {
	Texts []struct {
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
		Body  string  `xml:",chardata"`
	} `xml:"text"`
}

// FetchTranscript 获取字幕，按配置语言优先级选择轨道
// 返回所用语言代码；无可用字幕时返回 ErrNoTranscript
func (c *Client) FetchTranscript(ctx context.Context, videoID string) ([]entity.TranscriptSegment, string, error) {
	tracks, err := c.listTracks(ctx, videoID)
	if err != nil {
		return nil, "", err
	}
	if len(tracks.Tracks) == 0 {
		return nil, "", pkgerrors.ErrNoTranscript.WithDetail("no caption tracks for " + videoID)
	}

	lang := c.pickLanguage(tracks)
	segments, err := c.fetchTrack(ctx, videoID, lang)
	if err != nil {
		return nil, "", err
	}
	if len(segments) == 0 {
		return nil, "", pkgerrors.ErrNoTranscript.WithDetail("caption track is empty for " + videoID)
	}

	// 按起始时间稳定排序，上游偶发乱序
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartSec < segments[j].StartSec
	})

	return segments, lang, nil
}

func (c *Client) listTracks(ctx context.Context, videoID string) (*trackList, error) {
	q := url.Values{}
	q.Set("type", "list")
	q.Set("v", videoID)

	body, err := c.get(ctx, c.timedTextEndpoint+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var list trackList
	if err := xml.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to parse caption track list: %w", err)
	}
	return &list, nil
}

// pickLanguage 优先返回配置语言列表中最靠前的轨道语言
// 无匹配时退回第一条轨道
func (c *Client) pickLanguage(tracks *trackList) string {
	available := make(map[string]bool, len(tracks.Tracks))
	for _, t := range tracks.Tracks {
		available[t.LangCode] = true
	}
	for _, lang := range c.languages {
		if available[lang] {
			return lang
		}
	}
	return tracks.Tracks[0].LangCode
}

func (c *Client) fetchTrack(ctx context.Context, videoID, lang string) ([]entity.TranscriptSegment, error) {
	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", lang)

	body, err := c.get(ctx, c.timedTextEndpoint+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("failed to parse caption track: %w", err)
	}

	segments := make([]entity.TranscriptSegment, 0, len(tt.Texts))
	for _, t := range tt.Texts {
		text := strings.TrimSpace(html.UnescapeString(t.Body))
		if text == "" {
			continue
		}
		segments = append(segments, entity.TranscriptSegment{
			Text:     text,
			StartSec: t.Start,
			Duration: t.Dur,
		})
	}
	return segments, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeUpstreamError, "caption request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeUpstreamError,
			fmt.Sprintf("caption request failed: status=%d", resp.StatusCode))
	}

	return io.ReadAll(resp.Body)
}
