// Package server exposes the audit operations over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/checkmarxDev/audit-wrapper/internal/metrics"
	"github.com/checkmarxDev/audit-wrapper/pkg/auth"
	"github.com/checkmarxDev/audit-wrapper/pkg/wrapper"
)

const transportName = "http"

// Auditor is the part of *wrapper.AuditWrapper the server needs.
type Auditor interface {
	IdentifySensitiveFiles(ctx context.Context, files []wrapper.File) (string, error)
	InDepthAnalysis(ctx context.Context, code string, opts ...wrapper.AnalysisOption) (string, error)
}

type SensitiveFilesRequest struct {
	Files []wrapper.File `json:"files"`
}

type AnalysisRequest struct {
	Code      string            `json:"code"`
	Language  string            `json:"language,omitempty"`
	AuditType wrapper.AuditType `json:"auditType,omitempty"`
}

type Response struct {
	Result string `json:"result"`
}

type Server struct {
	auditor Auditor
	logger  zerolog.Logger
	metrics *metrics.Metrics
	mux     *http.ServeMux
}

func New(auditor Auditor, logger zerolog.Logger, m *metrics.Metrics) *Server {
	s := &Server{
		auditor: auditor,
		logger:  logger.With().Str("component", "http").Logger(),
		metrics: m,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("POST /sensitive-files", s.authenticated(s.handleSensitiveFiles))
	s.mux.Handle("POST /analysis", s.authenticated(s.handleAnalysis))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// authenticated puts the token checks in front of h and counts rejections.
func (s *Server) authenticated(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		passed := false
		auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			h(w, r)
		})).ServeHTTP(w, r)
		if !passed {
			s.metrics.RecordAuthRejection(transportName)
		}
	})
}

func (s *Server) handleSensitiveFiles(w http.ResponseWriter, r *http.Request) {
	var req SensitiveFilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := s.auditor.IdentifySensitiveFiles(r.Context(), req.Files)
	s.metrics.RecordAPIRequest(transportName, "sensitive-files", err)
	if err != nil {
		s.writeRemoteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Result: result})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := s.auditor.InDepthAnalysis(r.Context(), req.Code,
		wrapper.WithLanguage(req.Language),
		wrapper.WithAuditType(req.AuditType))
	s.metrics.RecordAPIRequest(transportName, "analysis", err)
	if err != nil {
		s.writeRemoteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Result: result})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeRemoteError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("completion call failed")
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request completed")
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
