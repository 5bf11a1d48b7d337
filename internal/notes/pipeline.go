package notes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	lldomain "github.com/lexlapax/go-llms/pkg/llm/domain"

	"github.com/MONKEYM4N9/notesai3.0/internal/cache"
	"github.com/MONKEYM4N9/notesai3.0/internal/llm"
	"github.com/MONKEYM4N9/notesai3.0/internal/media"
	"github.com/MONKEYM4N9/notesai3.0/internal/queue"
	"github.com/MONKEYM4N9/notesai3.0/internal/youtube"
)

// SourceMode selects how a lecture source is ingested.
type SourceMode string

const (
	// ModeTranscript fetches captions and skips media processing.
	ModeTranscript SourceMode = "transcript"

	// ModeAudio processes the audio track.
	ModeAudio SourceMode = "audio"

	// ModeVideo processes the full video.
	ModeVideo SourceMode = "video"
)

// ErrDownloadFailed is returned when YouTube media cannot be fetched.
var ErrDownloadFailed = errors.New("download failed")

// Request describes one lecture to process. Exactly one of URL or
// FilePath is set.
type Request struct {
	URL      string
	FilePath string
	FileName string

	Mode        SourceMode
	Detail      DetailLevel
	CustomFocus string

	// APIKey is the already-resolved key for this request.
	APIKey string
}

// Pipeline orchestrates transcript fetching, media slicing and note
// generation.
type Pipeline struct {
	llm         *llm.Client
	tools       *media.Tools
	transcripts *youtube.TranscriptClient
	downloader  *youtube.Downloader
	store       *cache.Store
	jobs        *queue.Queue

	chunkSeconds float64
	tempDir      string
}

// PipelineConfig holds the pipeline's collaborators and tuning.
type PipelineConfig struct {
	LLM         *llm.Client
	Tools       *media.Tools
	Transcripts *youtube.TranscriptClient
	Downloader  *youtube.Downloader

	// Store is optional; without it nothing is cached.
	Store *cache.Store

	// Jobs is optional; without it chunk work runs inline.
	Jobs *queue.Queue

	// ChunkSeconds bounds each media slice - defaults to 2400 (40 min)
	ChunkSeconds float64

	// TempDir for chunk files - defaults to the system temp dir
	TempDir string
}

// NewPipeline creates a pipeline.
func NewPipeline(config PipelineConfig) *Pipeline {
	if config.ChunkSeconds <= 0 {
		config.ChunkSeconds = 2400
	}
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}

	return &Pipeline{
		llm:          config.LLM,
		tools:        config.Tools,
		transcripts:  config.Transcripts,
		downloader:   config.Downloader,
		store:        config.Store,
		jobs:         config.Jobs,
		chunkSeconds: config.ChunkSeconds,
		tempDir:      config.TempDir,
	}
}

// Process generates study notes for a request.
func (p *Pipeline) Process(ctx context.Context, req Request) (string, error) {
	if req.URL != "" {
		return p.processURL(ctx, req)
	}
	if req.FilePath != "" {
		return p.processFile(ctx, req, req.FilePath)
	}
	return "", errors.New("no lecture source provided")
}

func (p *Pipeline) processURL(ctx context.Context, req Request) (string, error) {
	videoID := youtube.VideoID(req.URL)

	if cached, ok := p.cachedNotes(videoID, req); ok {
		log.Debug("notes cache hit", "video", videoID, "mode", req.Mode)
		return cached, nil
	}

	if req.Mode == ModeTranscript {
		text, err := p.fetchTranscript(ctx, videoID)
		if err == nil {
			result, genErr := p.generateFromText(ctx, req, "transcript", text)
			if genErr != nil {
				return "", genErr
			}
			p.storeNotes(videoID, req, result)
			return result, nil
		}
		if !errors.Is(err, youtube.ErrNoTranscript) {
			log.Warn("transcript fetch failed, falling back to audio", "err", err)
		}

		// No captions: process the audio track instead. The fallback is
		// keyed like a plain audio request so either path can serve it.
		req.Mode = ModeAudio
		if cached, ok := p.cachedNotes(videoID, req); ok {
			log.Debug("notes cache hit", "video", videoID, "mode", req.Mode)
			return cached, nil
		}
	}

	dlMode := youtube.ModeAudio
	if req.Mode == ModeVideo {
		dlMode = youtube.ModeVideo
	}

	path, err := p.downloader.Download(ctx, req.URL, dlMode)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer os.Remove(path)

	result, err := p.processFile(ctx, req, path)
	if err != nil {
		return "", err
	}
	p.storeNotes(videoID, req, result)
	return result, nil
}

func (p *Pipeline) fetchTranscript(ctx context.Context, videoID string) (string, error) {
	if videoID == "" {
		return "", youtube.ErrNoTranscript
	}

	key := cache.Key("transcript", videoID)
	if p.store != nil {
		if data, ok := p.store.Get(key); ok {
			return string(data), nil
		}
	}

	text, err := p.transcripts.Fetch(ctx, videoID)
	if err != nil {
		return "", err
	}

	if p.store != nil {
		if err := p.store.Put(key, []byte(text)); err != nil {
			log.Debug("transcript cache write failed", "err", err)
		}
	}

	return text, nil
}

// processFile handles uploaded or downloaded media. Plain text uploads
// go straight to generation; everything else is probed and chunked.
func (p *Pipeline) processFile(ctx context.Context, req Request, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if req.FileName != "" {
		ext = strings.ToLower(filepath.Ext(req.FileName))
	}

	if ext == ".txt" || ext == ".md" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("unable to read upload: %w", err)
		}
		return p.generateFromText(ctx, req, "transcript", string(data))
	}

	duration, err := p.tools.Duration(ctx, path)
	if err != nil {
		return "", err
	}

	windows := media.PlanChunks(duration, p.chunkSeconds)
	parts, err := p.processChunks(ctx, req, path, ext, windows)
	if err != nil {
		return "", err
	}

	if len(parts) > 1 {
		return p.synthesize(ctx, req, parts), nil
	}
	return parts[0], nil
}

// processChunks cuts each window out of the recording and generates notes
// per chunk, batch priority, keeping results in window order.
func (p *Pipeline) processChunks(ctx context.Context, req Request, path, ext string, windows []media.ChunkWindow) ([]string, error) {
	contextType := "audio"
	if req.Mode == ModeVideo {
		contextType = "video"
	}

	results := make([]string, len(windows))
	errs := make([]error, len(windows))
	var wg sync.WaitGroup

	for _, w := range windows {
		w := w
		run := func() {
			defer wg.Done()
			results[w.Index], errs[w.Index] = p.processOneChunk(ctx, req, path, ext, contextType, w, len(windows))
		}

		wg.Add(1)
		if p.jobs != nil {
			if err := p.jobs.Submit(ctx, false, run); err != nil {
				wg.Done()
				return nil, err
			}
		} else {
			run()
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

func (p *Pipeline) processOneChunk(ctx context.Context, req Request, path, ext, contextType string, w media.ChunkWindow, total int) (string, error) {
	chunkPath := filepath.Join(p.tempDir, fmt.Sprintf("chunk_%s%s", uuid.NewString(), ext))
	if err := p.tools.Cut(ctx, path, chunkPath, w.Start, w.End); err != nil {
		return "", err
	}
	defer os.Remove(chunkPath)

	data, err := os.ReadFile(chunkPath)
	if err != nil {
		return "", fmt.Errorf("unable to read chunk: %w", err)
	}

	partInfo := ""
	if total > 1 {
		partInfo = fmt.Sprintf("Part %d/%d", w.Index+1, total)
	}
	prompt := SystemPrompt(req.Detail, contextType, partInfo, req.CustomFocus)

	var msg lldomain.Message
	if contextType == "video" {
		msg = lldomain.NewVideoMessage(lldomain.RoleUser, data, mimeTypeFor(ext), prompt)
	} else {
		msg = lldomain.NewAudioMessage(lldomain.RoleUser, data, mimeTypeFor(ext), prompt)
	}

	return p.llm.Complete(ctx, req.APIKey, []lldomain.Message{msg})
}

func (p *Pipeline) generateFromText(ctx context.Context, req Request, contextType, content string) (string, error) {
	messages := []lldomain.Message{
		lldomain.NewTextMessage(lldomain.RoleSystem, SystemPrompt(req.Detail, contextType, "", req.CustomFocus)),
		lldomain.NewTextMessage(lldomain.RoleUser, content),
	}
	return p.llm.Complete(ctx, req.APIKey, messages)
}

// synthesize merges multi-part notes into one guide. Failure is not
// fatal: the raw parts are joined instead.
func (p *Pipeline) synthesize(ctx context.Context, req Request, parts []string) string {
	prompt := SynthesisPrompt(req.CustomFocus, parts)
	messages := []lldomain.Message{lldomain.NewTextMessage(lldomain.RoleUser, prompt)}

	var merged string
	var err error
	if p.jobs != nil {
		err = p.jobs.Do(ctx, true, func() error {
			var cerr error
			merged, cerr = p.llm.Complete(ctx, req.APIKey, messages)
			return cerr
		})
	} else {
		merged, err = p.llm.Complete(ctx, req.APIKey, messages)
	}

	if err != nil || merged == "" {
		log.Warn("synthesis pass failed, joining parts", "err", err)
		return strings.Join(parts, "\n\n")
	}
	return merged
}

func (p *Pipeline) cachedNotes(videoID string, req Request) (string, bool) {
	if p.store == nil || videoID == "" {
		return "", false
	}
	data, ok := p.store.Get(notesKey(videoID, req))
	return string(data), ok
}

func (p *Pipeline) storeNotes(videoID string, req Request, result string) {
	if p.store == nil || videoID == "" {
		return
	}
	if err := p.store.Put(notesKey(videoID, req), []byte(result)); err != nil {
		log.Debug("notes cache write failed", "err", err)
	}
}

func notesKey(videoID string, req Request) string {
	return cache.Key("notes", videoID, string(req.Detail), req.CustomFocus, string(req.Mode))
}

// mimeTypeFor maps a media file extension to a MIME type for the
// multimodal message payload.
func mimeTypeFor(ext string) string {
	switch strings.ToLower(ext) {
	case ".m4a":
		return "audio/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	default:
		return "application/octet-stream"
	}
}
