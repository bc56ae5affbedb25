package youtube

import (
	"regexp"
	"strings"

	pkgerrors "clipiq-api/pkg/errors"
)

// videoIDPattern 匹配标准 11 位视频 ID
var videoIDPattern = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)

// urlPatterns 支持的链接形态，按优先级排列
var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:v=)([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`(?:youtu\.be/)([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`(?:embed/)([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`(?:shorts/)([0-9A-Za-z_-]{11})`),
}

// ExtractVideoID 从链接或裸 ID 中解析视频 ID
func ExtractVideoID(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", pkgerrors.ErrInvalidVideoURL.WithDetail("empty video url")
	}

	// 裸 ID 直接通过
	if videoIDPattern.MatchString(s) {
		return s, nil
	}

	for _, p := range urlPatterns {
		if m := p.FindStringSubmatch(s); len(m) == 2 {
			return m[1], nil
		}
	}

	return "", pkgerrors.ErrInvalidVideoURL.WithDetail("unrecognized video url: " + s)
}
