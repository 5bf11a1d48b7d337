package youtube

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrNoTranscript is returned when a video has no captions in the
// requested language. Callers typically fall back to audio processing.
var ErrNoTranscript = errors.New("no transcript available")

const defaultTimedTextURL = "https://video.google.com/timedtext"

// TranscriptClient fetches caption tracks from the YouTube timedtext
// endpoint and flattens them into plain text.
type TranscriptClient struct {
	httpClient *http.Client
	baseURL    string
	language   string

	// Rate limiting to avoid being blocked
	limiter *rate.Limiter
}

// TranscriptConfig holds configuration for the transcript client.
type TranscriptConfig struct {
	// Language code for the caption track - defaults to "en"
	Language string

	// Timeout per request - defaults to 15s
	Timeout time.Duration

	// RequestsPerMinute limits fetch frequency - defaults to 30
	RequestsPerMinute int

	// BaseURL overrides the timedtext endpoint (used in tests)
	BaseURL string
}

// NewTranscriptClient creates a transcript client.
func NewTranscriptClient(config TranscriptConfig) *TranscriptClient {
	if config.Language == "" {
		config.Language = "en"
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 30
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultTimedTextURL
	}

	return &TranscriptClient{
		httpClient: &http.Client{Timeout: config.Timeout},
		baseURL:    config.BaseURL,
		language:   config.Language,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1),
	}
}

// timedText mirrors the timedtext XML document.
type timedText struct {
	XMLName xml.Name        `xml:"transcript"`
	Lines   []timedTextLine `xml:"text"`
}

type timedTextLine struct {
	Start float64 `xml:"start,attr"`
	Dur   float64 `xml:"dur,attr"`
	Text  string  `xml:",chardata"`
}

// Fetch retrieves the transcript for a video ID and joins all caption
// lines into a single string. ErrNoTranscript is returned when the video
// has no captions.
func (c *TranscriptClient) Fetch(ctx context.Context, videoID string) (string, error) {
	if videoID == "" {
		return "", errors.New("video ID cannot be empty")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	q := url.Values{}
	q.Set("lang", c.language)
	q.Set("v", videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("unable to build transcript request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcript request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNoTranscript
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcript request failed: HTTP status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("unable to read transcript body: %w", err)
	}

	// The endpoint answers 200 with an empty body for videos without
	// captions in the requested language.
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", ErrNoTranscript
	}

	text, err := flattenTimedText(body)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrNoTranscript
	}

	return text, nil
}

// flattenTimedText parses a timedtext XML document and joins the caption
// lines with single spaces, unescaping HTML entities.
func flattenTimedText(body []byte) (string, error) {
	var doc timedText
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("unable to parse transcript XML: %w", err)
	}

	parts := make([]string, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		t := strings.TrimSpace(html.UnescapeString(line.Text))
		if t == "" {
			continue
		}
		parts = append(parts, t)
	}

	return strings.Join(parts, " "), nil
}
