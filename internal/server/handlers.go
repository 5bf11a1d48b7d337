package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	lldomain "github.com/lexlapax/go-llms/pkg/llm/domain"

	"github.com/MONKEYM4N9/notesai3.0/internal/media"
	"github.com/MONKEYM4N9/notesai3.0/internal/mindmap"
	"github.com/MONKEYM4N9/notesai3.0/internal/notes"
	"github.com/MONKEYM4N9/notesai3.0/internal/pdf"
	"github.com/MONKEYM4N9/notesai3.0/internal/quiz"
)

// Message aliases the LLM message type so handlers and fakes share it.
type Message = lldomain.Message

// chatRequest is the /chat payload.
type chatRequest struct {
	Notes   string `json:"notes"`
	Message string `json:"message"`
	APIKey  string `json:"api_key"`
}

// notesRequest is the /generate-quiz and /generate-mindmap payload.
type notesRequest struct {
	Notes  string `json:"notes"`
	APIKey string `json:"api_key"`
}

// pdfRequest is the /generate-pdf payload.
type pdfRequest struct {
	Notes string `json:"notes"`
}

// abortDetail writes a FastAPI-style error body.
func abortDetail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

// dispatch runs an interactive completion through the job queue so it
// is scheduled ahead of batch chunk work. Without a queue it runs
// inline.
func (s *Server) dispatch(ctx context.Context, fn func() error) error {
	if s.jobs == nil {
		return fn()
	}
	return s.jobs.Do(ctx, true, fn)
}

func (s *Server) handleIndex(c *gin.Context) {
	path := filepath.Join(s.cfg.StaticDir, "index.html")
	if _, err := os.Stat(path); err != nil {
		c.String(http.StatusOK, "Error: index.html not found")
		return
	}
	c.File(path)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleAPIStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"has_key": s.keys.HasServerKey()})
}

func (s *Server) handleProcessLecture(c *gin.Context) {
	detailLevel := c.PostForm("detail_level")
	if detailLevel == "" {
		abortDetail(c, http.StatusBadRequest, "detail_level is required")
		return
	}

	apiKey, err := s.keys.Resolve(c.PostForm("api_key"))
	if err != nil {
		abortDetail(c, http.StatusBadRequest, err.Error())
		return
	}

	mode := c.PostForm("mode")
	if mode == "" {
		mode = string(notes.ModeTranscript)
	}
	switch notes.SourceMode(mode) {
	case notes.ModeTranscript, notes.ModeAudio, notes.ModeVideo:
	default:
		abortDetail(c, http.StatusBadRequest, "unknown mode: "+mode)
		return
	}

	req := notes.Request{
		URL:         strings.TrimSpace(c.PostForm("url")),
		Mode:        notes.SourceMode(mode),
		Detail:      notes.ParseDetailLevel(detailLevel),
		CustomFocus: c.PostForm("custom_focus"),
		APIKey:      apiKey,
	}

	if req.URL == "" {
		upload, err := c.FormFile("file")
		if err != nil {
			abortDetail(c, http.StatusBadRequest, "either url or file must be provided")
			return
		}

		spoolDir := s.cfg.UploadDir
		if spoolDir == "" {
			spoolDir = os.TempDir()
		}
		spool := filepath.Join(spoolDir, "upload_"+uuid.NewString()+filepath.Ext(upload.Filename))
		if err := c.SaveUploadedFile(upload, spool); err != nil {
			abortDetail(c, http.StatusInternalServerError, "unable to save upload: "+err.Error())
			return
		}
		defer os.Remove(spool)

		req.FilePath = spool
		req.FileName = upload.Filename
	}

	result, err := s.processor.Process(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, notes.ErrDownloadFailed) || errors.Is(err, media.ErrInvalidMedia) {
			status = http.StatusBadRequest
		}
		log.Error("lecture processing failed", "err", err)
		abortDetail(c, status, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "notes": result})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	apiKey, err := s.keys.Resolve(req.APIKey)
	if err != nil {
		abortDetail(c, http.StatusBadRequest, err.Error())
		return
	}

	prompt := notes.ChatPrompt(req.Notes, req.Message)
	var reply string
	err = s.dispatch(c.Request.Context(), func() error {
		var cerr error
		reply, cerr = s.completer.Complete(c.Request.Context(), apiKey,
			[]Message{lldomain.NewTextMessage(lldomain.RoleUser, prompt)})
		return cerr
	})
	if err != nil {
		abortDetail(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": reply})
}

func (s *Server) handleGenerateQuiz(c *gin.Context) {
	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	apiKey, err := s.keys.Resolve(req.APIKey)
	if err != nil {
		abortDetail(c, http.StatusBadRequest, err.Error())
		return
	}

	var raw string
	err = s.dispatch(c.Request.Context(), func() error {
		var cerr error
		raw, cerr = s.completer.CompleteQuiz(c.Request.Context(), apiKey,
			[]Message{lldomain.NewTextMessage(lldomain.RoleUser, quiz.Prompt(req.Notes))})
		return cerr
	})
	if err != nil {
		abortDetail(c, http.StatusInternalServerError, err.Error())
		return
	}

	questions, err := quiz.Parse(raw, nil)
	if err != nil {
		abortDetail(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, questions)
}

func (s *Server) handleGenerateMindmap(c *gin.Context) {
	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	apiKey, err := s.keys.Resolve(req.APIKey)
	if err != nil {
		abortDetail(c, http.StatusBadRequest, err.Error())
		return
	}

	var raw string
	err = s.dispatch(c.Request.Context(), func() error {
		var cerr error
		raw, cerr = s.completer.Complete(c.Request.Context(), apiKey,
			[]Message{lldomain.NewTextMessage(lldomain.RoleUser, mindmap.Prompt(req.Notes))})
		return cerr
	})
	if err != nil {
		abortDetail(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"dot_code": mindmap.CleanDOT(raw)})
}

func (s *Server) handleGeneratePDF(c *gin.Context) {
	var req pdfRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDetail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	data, err := pdf.Render(req.Notes)
	if err != nil {
		abortDetail(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.Data(http.StatusOK, "application/pdf", data)
}
