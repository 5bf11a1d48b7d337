package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleTimedText = `<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0.0" dur="2.5">Welcome to the lecture.</text>
  <text start="2.5" dur="3.1">Today we cover B-trees &amp; hashing.</text>
  <text start="5.6" dur="1.0">   </text>
  <text start="6.6" dur="2.0">Let&#39;s begin.</text>
</transcript>`

func newTestTranscriptClient(baseURL string) *TranscriptClient {
	return NewTranscriptClient(TranscriptConfig{
		BaseURL:           baseURL,
		RequestsPerMinute: 60000,
	})
}

func TestTranscriptFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("v"); got != "vid123" {
			t.Errorf("unexpected video ID in request: %q", got)
		}
		if got := r.URL.Query().Get("lang"); got != "en" {
			t.Errorf("unexpected language in request: %q", got)
		}
		_, _ = w.Write([]byte(sampleTimedText))
	}))
	defer srv.Close()

	c := newTestTranscriptClient(srv.URL)
	got, err := c.Fetch(context.Background(), "vid123")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	want := "Welcome to the lecture. Today we cover B-trees & hashing. Let's begin."
	if got != want {
		t.Errorf("Fetch() = %q, want %q", got, want)
	}
}

func TestTranscriptFetchNoCaptions(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "404",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name:    "empty body",
			handler: func(http.ResponseWriter, *http.Request) {},
		},
		{
			name: "document without lines",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`<transcript></transcript>`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := newTestTranscriptClient(srv.URL)
			_, err := c.Fetch(context.Background(), "vid123")
			if !errors.Is(err, ErrNoTranscript) {
				t.Errorf("Fetch() error = %v, want ErrNoTranscript", err)
			}
		})
	}
}

func TestTranscriptFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestTranscriptClient(srv.URL)
	_, err := c.Fetch(context.Background(), "vid123")
	if err == nil {
		t.Fatal("expected an error for HTTP 500")
	}
	if errors.Is(err, ErrNoTranscript) {
		t.Error("HTTP 500 must not be reported as a missing transcript")
	}
}

func TestTranscriptFetchEmptyID(t *testing.T) {
	c := newTestTranscriptClient("http://127.0.0.1:0")
	if _, err := c.Fetch(context.Background(), ""); err == nil {
		t.Fatal("expected an error for an empty video ID")
	}
}

func TestFlattenTimedText(t *testing.T) {
	got, err := flattenTimedText([]byte(sampleTimedText))
	if err != nil {
		t.Fatalf("flattenTimedText() error = %v", err)
	}
	if strings.Contains(got, "&amp;") || strings.Contains(got, "&#39;") {
		t.Errorf("entities not unescaped: %q", got)
	}

	if _, err := flattenTimedText([]byte("not xml at all <<<")); err == nil {
		t.Error("expected an error for malformed XML")
	}
}

func TestDownloadArgs(t *testing.T) {
	args := downloadArgs("https://youtu.be/vid123", audioFormat, "/tmp/out.m4a")

	joined := strings.Join(args, " ")
	for _, want := range []string{"--format", audioFormat, "--output", "/tmp/out.m4a", "--no-playlist"} {
		if !strings.Contains(joined, want) {
			t.Errorf("downloadArgs() missing %q in %q", want, joined)
		}
	}
	if args[len(args)-1] != "https://youtu.be/vid123" {
		t.Errorf("URL must be the final argument, got %q", args[len(args)-1])
	}
}
