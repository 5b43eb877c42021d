// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/adapters/loader"
	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/usecases"
)

// internalErrorMessage is returned to clients in place of pipeline errors.
const internalErrorMessage = "Unable to process your request."

const unsupportedMessage = "unsupported document type"

const maxUploadBytes = 32 << 20

// Answerer answers questions within sessions.
type Answerer interface {
	Query(ctx context.Context, req *entities.ChatRequest) (*entities.ChatResponse, error)
	ClearSession(ctx context.Context, sessionID string) error
}

// Ingester stores an uploaded file.
type Ingester interface {
	IngestFile(ctx context.Context, path string) (usecases.IngestResult, error)
}

// Options configures a Server.
type Options struct {
	Addr      string
	UploadDir string       // where uploaded documents are kept; defaults under os.TempDir
	Metrics   http.Handler // served on /metrics when set
	Logger    *zap.Logger
}

// Server is the HTTP server for the QA API.
type Server struct {
	answerer  Answerer
	ingester  Ingester
	addr      string
	uploadDir string
	metrics   http.Handler
	logger    *zap.Logger
}

// NewServer creates a new HTTP server. ingester may be nil, which disables
// document uploads.
func NewServer(answerer Answerer, ingester Ingester, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.UploadDir == "" {
		opts.UploadDir = filepath.Join(os.TempDir(), "docqa-uploads")
	}
	return &Server{
		answerer:  answerer,
		ingester:  ingester,
		addr:      opts.Addr,
		uploadDir: opts.UploadDir,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /predict", s.handlePredict)
	mux.HandleFunc("POST /api/documents", s.handleUpload)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleClearSession)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return corsMiddleware(s.loggingMiddleware(mux))
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second, // generation can be slow
	}

	s.logger.Info("server starting", zap.String("addr", s.addr))

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

type predictRequest struct {
	Ques      string `json:"ques"`
	SessionID string `json:"session_id"`
}

type predictResponse struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
}

// handlePredict answers one question. A session ID is minted when the
// client does not supply one.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Ques) == "" {
		writeError(w, http.StatusUnprocessableEntity, "field 'ques' is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	resp, err := s.answerer.Query(r.Context(), &entities.ChatRequest{SessionID: req.SessionID, Question: req.Ques})
	if err != nil {
		s.logger.Error("answering question", zap.String("session_id", req.SessionID), zap.Error(err))
		writeError(w, http.StatusOK, internalErrorMessage)
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		Question:  resp.Question,
		Answer:    resp.Answer,
		SessionID: resp.SessionID,
	})
}

// handleUpload stores a multipart "file" under the upload directory and
// ingests it. Re-uploading the same name replaces the earlier chunks.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.ingester == nil {
		writeError(w, http.StatusNotImplemented, "document upload is disabled")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return
	}

	path, err := s.save(name, file)
	if err != nil {
		s.logger.Error("saving upload", zap.String("name", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	res, err := s.ingester.IngestFile(r.Context(), path)
	if err != nil {
		s.logger.Error("ingesting upload", zap.String("path", path), zap.Error(err))
		if errors.Is(err, loader.ErrUnsupported) {
			writeError(w, http.StatusUnprocessableEntity, unsupportedMessage)
			return
		}
		writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": res.DocumentID,
		"name":        res.Name,
		"chunks":      res.Chunks,
	})
}

func (s *Server) save(name string, src io.Reader) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.uploadDir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", err
	}
	return path, dst.Close()
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.answerer.ClearSession(r.Context(), id); err != nil {
		s.logger.Error("clearing session", zap.String("session_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
