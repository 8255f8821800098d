package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/cv-refiner/internal/session"
)

// Pinger reports whether a backing store is reachable. *db.DB implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds server configuration
type Config struct {
	Port int
	// MaxUploadBytes bounds CV uploads
	MaxUploadBytes int64
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration
	// KeepAlive is the interval between SSE keep-alive comments
	KeepAlive time.Duration
}

// Default limits
const (
	DefaultMaxUploadBytes  = 10 << 20
	DefaultShutdownTimeout = 30 * time.Second
	DefaultKeepAlive       = 15 * time.Second
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	service    *session.Service
	db         Pinger
	logger     *zap.Logger
	validator  *validator.Validate
	cfg        Config
}

// New creates a new server instance. database may be nil when sessions are kept in memory only.
func New(cfg Config, service *session.Service, database Pinger, logger *zap.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = DefaultKeepAlive
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		service:   service,
		db:        database,
		logger:    logger,
		validator: validator.New(),
		cfg:       cfg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Session lifecycle
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /sessions/{id}/reset", s.handleResetSession)
	mux.HandleFunc("POST /sessions/{id}/cv", s.handleUploadCV)

	// Analysis
	mux.HandleFunc("GET /sessions/{id}/analysis", s.handleGetAnalysis)
	mux.HandleFunc("PUT /sessions/{id}/analysis", s.handlePutAnalysis)
	mux.HandleFunc("PATCH /sessions/{id}/analysis", s.handlePatchAnalysis)
	mux.HandleFunc("GET /sessions/{id}/snapshot", s.handleSnapshot)

	// Sections
	mux.HandleFunc("PUT /sessions/{id}/sections/{name}", s.handleReplaceSection)
	mux.HandleFunc("PUT /sessions/{id}/sections/{name}/content", s.handleUpdateContent)
	mux.HandleFunc("POST /sessions/{id}/sections/{name}/edit", s.handleEditSection)
	mux.HandleFunc("POST /sessions/{id}/renames", s.handleRenameSections)
	mux.HandleFunc("POST /sessions/{id}/chat", s.handleChat)

	// Observation
	mux.HandleFunc("GET /sessions/{id}/highlights", s.handleGetHighlights)
	mux.HandleFunc("DELETE /sessions/{id}/highlights", s.handleClearHighlights)
	mux.HandleFunc("GET /sessions/{id}/score-history", s.handleScoreHistory)
	mux.HandleFunc("GET /sessions/{id}/events", s.handleEvents)

	// Export
	mux.HandleFunc("GET /sessions/{id}/export.html", s.handleExportHTML)
	mux.HandleFunc("GET /sessions/{id}/export.pdf", s.handleExportPDF)
	mux.HandleFunc("GET /sessions/{id}/export.txt", s.handleExportText)

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.withLogging(s.withCORS(mux)),
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: event streams stay open and model calls are bounded by their own contexts
		IdleTimeout: 60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gCtx := errgroup.WithContext(ctx)
	s.httpServer.BaseContext = func(net.Listener) context.Context { return gCtx }

	g.Go(func() error {
		s.logger.Info("server starting", zap.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err := g.Wait()
	s.logger.Info("server stopped")
	return err
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code for request logs
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps event streams working through the recorder
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":   "ok",
		"sessions": s.service.Sessions().Count(),
	}
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			s.logger.Warn("health check: database unreachable", zap.Error(err))
			resp["status"] = "degraded"
			resp["database"] = "unreachable"
			s.jsonResponse(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp["database"] = "ok"
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("error encoding JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, ErrorResponse{Error: message})
}

// failure reports err with the status and retry hint it maps to
func (s *Server) failure(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	s.jsonResponse(w, status, newErrorResponse(err))
}
