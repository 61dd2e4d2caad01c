// Package server exposes the report pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/violation-assistant/internal/model"
	"github.com/sells-group/violation-assistant/internal/pipeline"
	"github.com/sells-group/violation-assistant/internal/transcribe"
	"github.com/sells-group/violation-assistant/internal/validate"
)

const maxUploadBytes = 25 << 20

// Runner executes report turns.
type Runner interface {
	Run(ctx context.Context, text string) (*pipeline.Outcome, error)
	LogError(ctx context.Context, message string, userID *int64) bool
}

// Transcriber converts uploaded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, durationSecs int) transcribe.Result
}

// Config holds request limits and CORS origins.
type Config struct {
	MaxDurationSecs int
	MinTextLength   int
	MaxTextLength   int
	AllowedOrigins  []string
}

// Server is a stateless HTTP front end: every request is one report turn.
type Server struct {
	runner      Runner
	transcriber Transcriber
	cfg         Config
}

// New creates a Server. transcriber may be nil, which disables the voice
// endpoint.
func New(runner Runner, transcriber Transcriber, cfg Config) *Server {
	if cfg.MaxDurationSecs <= 0 {
		cfg.MaxDurationSecs = validate.DefaultMaxVoiceSecs
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = validate.DefaultMinTextLen
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = validate.DefaultMaxTextLen
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return &Server{runner: runner, transcriber: transcriber, cfg: cfg}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1/reports", func(r chi.Router) {
		r.Post("/", s.handleText)
		r.Post("/voice", s.handleVoice)
	})
	return r
}

// ReportRequest is the body of POST /v1/reports.
type ReportRequest struct {
	Text string `json:"text"`
}

// ReportResponse is returned by both report endpoints.
type ReportResponse struct {
	OriginalText         string                    `json:"original_text"`
	CorrectedDescription string                    `json:"corrected_description"`
	DocumentInfo         string                    `json:"document_info"`
	Suggestions          string                    `json:"suggestions"`
	Success              bool                      `json:"success"`
	ErrorMessage         string                    `json:"error_message,omitempty"`
	Fragments            []model.RetrievedFragment `json:"fragments"`
	Response             string                    `json:"response"`
	Logged               bool                      `json:"logged"`
	Phases               []pipeline.PhaseTiming    `json:"phases,omitempty"`
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := validate.Sanitize(req.Text)
	if msg := validate.TextLength(text, s.cfg.MinTextLength, s.cfg.MaxTextLength); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	s.runTurn(w, r, text)
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		writeError(w, http.StatusNotImplemented, "voice transcription is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	duration, err := strconv.Atoi(r.FormValue("duration"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "duration must be an integer number of seconds")
		return
	}
	if msg := validate.VoiceDuration(duration, s.cfg.MaxDurationSecs); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close() //nolint:errcheck

	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read audio")
		return
	}

	res := s.transcriber.Transcribe(r.Context(), audio, duration)
	if !res.OK {
		writeError(w, http.StatusUnprocessableEntity, res.Error)
		return
	}
	if msg := validate.TextLength(res.Text, s.cfg.MinTextLength, s.cfg.MaxTextLength); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}
	s.runTurn(w, r, res.Text)
}

func (s *Server) runTurn(w http.ResponseWriter, r *http.Request, text string) {
	out, err := s.runner.Run(r.Context(), text)
	if err != nil {
		zap.L().Error("server: report failed", zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
		s.runner.LogError(r.Context(), err.Error(), nil)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ReportResponse{
		OriginalText:         out.Record.OriginalText,
		CorrectedDescription: out.Result.CorrectedDescription,
		DocumentInfo:         out.Result.DocumentInfo,
		Suggestions:          out.Result.Suggestions,
		Success:              out.Result.Success,
		ErrorMessage:         out.Result.ErrorMessage,
		Fragments:            out.Record.Fragments,
		Response:             out.Response,
		Logged:               out.Logged,
		Phases:               out.Phases,
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
