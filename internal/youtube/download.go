package youtube

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/MONKEYM4N9/notesai3.0/internal/media"
)

// DownloadMode selects whether a video or an audio-only track is fetched.
type DownloadMode string

const (
	// ModeAudio downloads the best audio-only track.
	ModeAudio DownloadMode = "audio"

	// ModeVideo downloads an mp4 capped at 720p.
	ModeVideo DownloadMode = "video"
)

// format strings passed to yt-dlp per mode.
const (
	audioFormat = "bestaudio[ext=m4a]/bestaudio"
	videoFormat = "best[ext=mp4][height<=720]"
)

// Downloader fetches YouTube media through the yt-dlp binary.
type Downloader struct {
	runner *media.Runner
	binary string
	outDir string
}

// DownloaderConfig holds configuration for the downloader.
type DownloaderConfig struct {
	// Binary name or path for yt-dlp - defaults to "yt-dlp"
	Binary string

	// OutDir for downloaded files - defaults to the system temp dir
	OutDir string

	// Timeout for a download - defaults to 10m
	Timeout time.Duration
}

// NewDownloader creates a yt-dlp backed downloader.
func NewDownloader(config DownloaderConfig) *Downloader {
	if config.Binary == "" {
		config.Binary = "yt-dlp"
	}
	if config.OutDir == "" {
		config.OutDir = os.TempDir()
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Minute
	}

	return &Downloader{
		runner: media.NewRunner(config.Timeout),
		binary: config.Binary,
		outDir: config.OutDir,
	}
}

// Validate checks that the yt-dlp binary is available.
func (d *Downloader) Validate() error {
	return media.CheckBinary(d.binary)
}

// Download fetches the media for a URL and returns the path of the
// downloaded file. The caller owns the file and must remove it.
func (d *Downloader) Download(ctx context.Context, url string, mode DownloadMode) (string, error) {
	ext := "m4a"
	format := audioFormat
	if mode == ModeVideo {
		ext = "mp4"
		format = videoFormat
	}

	outPath := filepath.Join(d.outDir, fmt.Sprintf("yt_%s_%s.%s", mode, uuid.NewString(), ext))

	args := downloadArgs(url, format, outPath)
	if _, err := d.runner.Run(ctx, d.binary, args...); err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}

	// yt-dlp exits zero even for some soft failures, so confirm the file
	// actually landed.
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("download failed: no output file: %w", err)
	}

	return outPath, nil
}

func downloadArgs(url, format, outPath string) []string {
	return []string{
		"--format", format,
		"--output", outPath,
		"--quiet",
		"--no-warnings",
		"--no-playlist",
		url,
	}
}
