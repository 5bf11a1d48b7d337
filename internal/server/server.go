// Package server exposes the lecture-to-notes HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/MONKEYM4N9/notesai3.0/internal/notes"
	"github.com/MONKEYM4N9/notesai3.0/internal/queue"
)

// NotesProcessor runs the lecture pipeline.
type NotesProcessor interface {
	Process(ctx context.Context, req notes.Request) (string, error)
}

// Completer produces LLM completions for the interactive endpoints.
type Completer interface {
	Complete(ctx context.Context, apiKey string, messages []Message) (string, error)
	CompleteQuiz(ctx context.Context, apiKey string, messages []Message) (string, error)
}

// KeyResolver resolves request API keys against the server key.
type KeyResolver interface {
	Resolve(userKey string) (string, error)
	HasServerKey() bool
}

// Config holds the server's listen address and tuning.
type Config struct {
	Host string
	Port int

	// StaticDir holds index.html and the /static tree.
	StaticDir string

	// RequestsPerMinute limits the LLM-backed routes - defaults to 120
	RequestsPerMinute int

	// ShutdownTimeout bounds the drain on stop - defaults to 10s
	ShutdownTimeout time.Duration

	// UploadDir for multipart spools - defaults to the system temp dir
	UploadDir string
}

// Server is the HTTP front end.
type Server struct {
	cfg       Config
	engine    *gin.Engine
	processor NotesProcessor
	completer Completer
	keys      KeyResolver
	jobs      *queue.Queue
	limiter   *rate.Limiter
}

// New creates a server and builds its routes. Jobs is optional; without
// it interactive completions run inline instead of through the pool.
func New(cfg Config, processor NotesProcessor, completer Completer, keys KeyResolver, jobs *queue.Queue) *Server {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 120
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(), corsMiddleware())

	s := &Server{
		cfg:       cfg,
		engine:    engine,
		processor: processor,
		completer: completer,
		keys:      keys,
		jobs:      jobs,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute),
	}
	s.routes()

	return s
}

func (s *Server) routes() {
	s.engine.GET("/", s.handleIndex)
	s.engine.GET("/healthz", s.handleHealthz)
	s.engine.GET("/api-status", s.handleAPIStatus)

	if s.cfg.StaticDir != "" {
		s.engine.Static("/static", s.cfg.StaticDir)
	}

	generate := s.engine.Group("/", rateLimit(s.limiter))
	generate.POST("/process-lecture", s.handleProcessLecture)
	generate.POST("/chat", s.handleChat)
	generate.POST("/generate-quiz", s.handleGenerateQuiz)
	generate.POST("/generate-mindmap", s.handleGenerateMindmap)
	generate.POST("/generate-pdf", s.handleGeneratePDF)
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is cancelled, then drains.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", s.cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
