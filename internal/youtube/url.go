// Package youtube resolves YouTube URLs to video IDs, fetches caption
// transcripts, and downloads media through yt-dlp.
package youtube

import (
	"net/url"
	"strings"
)

// VideoID extracts the video ID from a YouTube URL. It understands
// youtu.be short links and youtube.com/watch URLs. An empty string is
// returned when the URL does not identify a video.
func VideoID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	host := strings.ToLower(u.Hostname())
	switch host {
	case "youtu.be":
		return strings.TrimPrefix(u.Path, "/")
	case "youtube.com", "www.youtube.com", "m.youtube.com":
		switch {
		case u.Path == "/watch":
			return u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/shorts/"):
			return strings.TrimPrefix(u.Path, "/shorts/")
		case strings.HasPrefix(u.Path, "/embed/"):
			return strings.TrimPrefix(u.Path, "/embed/")
		}
	}

	return ""
}

// IsYouTubeURL reports whether the URL points at a YouTube video.
func IsYouTubeURL(raw string) bool {
	return VideoID(raw) != ""
}
