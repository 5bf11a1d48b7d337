package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidMedia is returned when a file cannot be probed as audio or
// video, or reports a zero duration.
var ErrInvalidMedia = errors.New("invalid media file")

// Tools runs ffmpeg and ffprobe against lecture media.
type Tools struct {
	runner  *Runner
	ffmpeg  string
	ffprobe string
}

// ToolsConfig holds configuration for the media tools.
type ToolsConfig struct {
	// FFmpeg binary name or path - defaults to "ffmpeg"
	FFmpeg string

	// FFprobe binary name or path - defaults to "ffprobe"
	FFprobe string

	// Timeout for subprocess operations - defaults to 2m
	Timeout time.Duration
}

// NewTools creates media tools backed by a subprocess runner.
func NewTools(config ToolsConfig) *Tools {
	if config.FFmpeg == "" {
		config.FFmpeg = "ffmpeg"
	}
	if config.FFprobe == "" {
		config.FFprobe = "ffprobe"
	}

	return &Tools{
		runner:  NewRunner(config.Timeout),
		ffmpeg:  config.FFmpeg,
		ffprobe: config.FFprobe,
	}
}

// Validate checks that the ffmpeg and ffprobe binaries are available.
func (t *Tools) Validate() error {
	if err := CheckBinary(t.ffmpeg); err != nil {
		return err
	}
	return CheckBinary(t.ffprobe)
}

// Duration probes the duration of a media file in seconds.
func (t *Tools) Duration(ctx context.Context, path string) (float64, error) {
	out, err := t.runner.Run(ctx, t.ffprobe, probeArgs(path)...)
	if err != nil {
		return 0, fmt.Errorf("duration probe failed: %w", err)
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unparseable duration %q", ErrInvalidMedia, strings.TrimSpace(string(out)))
	}
	if dur <= 0 {
		return 0, ErrInvalidMedia
	}

	return dur, nil
}

// Cut copies the [start, end) window of inputPath into outputPath using
// stream copy, so no re-encoding takes place.
func (t *Tools) Cut(ctx context.Context, inputPath, outputPath string, start, end float64) error {
	if _, err := t.runner.Run(ctx, t.ffmpeg, cutArgs(inputPath, outputPath, start, end)...); err != nil {
		return fmt.Errorf("cut failed: %w", err)
	}
	return nil
}

func probeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

func cutArgs(inputPath, outputPath string, start, end float64) []string {
	return []string{
		"-y",
		"-i", inputPath,
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-c", "copy",
		outputPath,
	}
}

// formatSeconds renders a chunk boundary for the ffmpeg command line,
// dropping the fraction for whole seconds.
func formatSeconds(s float64) string {
	if s == math.Trunc(s) {
		return strconv.FormatInt(int64(s), 10)
	}
	return strconv.FormatFloat(s, 'f', 3, 64)
}

// ChunkWindow is a [Start, End) slice of a longer recording.
type ChunkWindow struct {
	Index int
	Start float64
	End   float64
}

// PlanChunks splits a duration into windows of at most chunkSeconds.
func PlanChunks(duration, chunkSeconds float64) []ChunkWindow {
	if duration <= 0 || chunkSeconds <= 0 {
		return nil
	}

	count := int(math.Ceil(duration / chunkSeconds))
	windows := make([]ChunkWindow, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * chunkSeconds
		end := math.Min(start+chunkSeconds, duration)
		windows = append(windows, ChunkWindow{Index: i, Start: start, End: end})
	}

	return windows
}
