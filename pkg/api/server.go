// Package api exposes puzzle sessions over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyerfyer/logic-blocks/pkg/algorithm"
	"github.com/fyerfyer/logic-blocks/pkg/circuit"
	"github.com/fyerfyer/logic-blocks/pkg/puzzle"
	"github.com/fyerfyer/logic-blocks/pkg/surface"
	"github.com/fyerfyer/logic-blocks/pkg/utils"
)

const (
	maxBodyBytes = 1 << 20

	// DefaultPlayerID records completions for sessions that name no player
	DefaultPlayerID = "anonymous"
)

// Config configures the HTTP server
type Config struct {
	Addr       string
	Level      *puzzle.Level  // played by sessions created without a body
	Session    puzzle.Options // template for every new session
	SessionTTL time.Duration  // zero disables eviction
	Gatherer   prometheus.Gatherer
	Logger     *utils.Logger
}

// Server encapsulates the HTTP API server
type Server struct {
	cfg      Config
	logger   *utils.Logger
	sessions *Registry
	server   *http.Server
}

// NewServer creates a new API server instance
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Level == nil {
		cfg.Level = puzzle.DefaultLevel()
	}
	if cfg.Logger == nil {
		cfg.Logger = utils.NewNopLogger()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Session.PlayerID == "" {
		cfg.Session.PlayerID = DefaultPlayerID
	}

	s := &Server{
		cfg:      cfg,
		logger:   cfg.Logger,
		sessions: NewRegistry(cfg.Session.Metrics),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /v1/sessions", s.handleCreate)
	mux.HandleFunc("GET /v1/sessions/{id}", s.handleGet)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleDelete)
	mux.HandleFunc("POST /v1/sessions/{id}/toggle", s.handleToggle)
	mux.HandleFunc("POST /v1/sessions/{id}/connections", s.handleConnect)
	mux.HandleFunc("POST /v1/sessions/{id}/pointer", s.handlePointer)
	mux.HandleFunc("POST /v1/sessions/{id}/reset", s.handleReset)
	mux.HandleFunc("POST /v1/sessions/{id}/submit", s.handleSubmit)
	mux.HandleFunc("GET /v1/sessions/{id}/hint", s.handleHint)
	mux.HandleFunc("GET /v1/sessions/{id}/netlist", s.handleNetlist)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.withLogging(s.withRecovery(mux)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
		ErrorLog:     zap.NewStdLog(cfg.Logger.Zap().Named("http")),
	}
	return s
}

// Handler returns the server's root handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Sessions returns the session registry
func (s *Server) Sessions() *Registry {
	return s.sessions
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		s.sweep(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening on %s", s.cfg.Addr)
		serveErr <- s.server.ListenAndServe()
	}()

	var err error
	select {
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		s.logger.Info("Server stopping")
		err = s.server.Shutdown(shutdownCtx)
		if serr := <-serveErr; serr != nil && !errors.Is(serr, http.ErrServerClosed) && err == nil {
			err = serr
		}
	case err = <-serveErr:
		cancel()
	}

	<-sweeperDone
	return err
}

func (s *Server) sweep(ctx context.Context) {
	if s.cfg.SessionTTL <= 0 {
		<-ctx.Done()
		return
	}

	interval := s.cfg.SessionTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Sweep(s.cfg.SessionTTL); n > 0 {
				s.logger.Info("Evicted %d idle sessions", n)
			}
		}
	}
}

type createResponse struct {
	ID      string          `json:"id"`
	Session puzzle.Snapshot `json:"session"`
}

type toggleRequest struct {
	Input int `json:"input"`
}

type connectRequest struct {
	Source circuit.Source `json:"source"`
	Gate   int            `json:"gate"`
	Slot   int            `json:"slot"`
}

type pointerRequest struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type pointerResponse struct {
	Event   surface.Event   `json:"event"`
	Session puzzle.Snapshot `json:"session"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// handleCreate starts a session. An empty body plays the configured level,
// a YAML body (Content-Type application/yaml) or a BENCH netlist defines
// a custom one.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable_body", err)
		return
	}

	level := s.cfg.Level
	if len(bytes.TrimSpace(body)) > 0 {
		level, err = decodeLevel(r.Header.Get("Content-Type"), body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_level", err)
			return
		}
	}

	opts := s.cfg.Session
	opts.Logger = s.logger
	if player := strings.TrimSpace(r.URL.Query().Get("player")); player != "" {
		opts.PlayerID = player
	}

	session, err := puzzle.NewSession(level, opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_level", err)
		return
	}

	id := s.sessions.Add(session, s.logger)
	s.logger.Info("Created session %s for level %s", id, level.ID)
	writeJSON(w, http.StatusCreated, createResponse{ID: id, Session: session.Snapshot()})
}

func decodeLevel(contentType string, body []byte) (*puzzle.Level, error) {
	if strings.Contains(contentType, "yaml") {
		return puzzle.LoadLevel(bytes.NewReader(body))
	}
	c, err := utils.ParseBench(bytes.NewReader(body), "custom")
	if err != nil {
		return nil, err
	}
	return puzzle.LevelFromCircuit(c), nil
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(e *entry) (any, error) {
		return e.session.Snapshot(), nil
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "session_not_found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withSession(w, r, func(e *entry) (any, error) {
		if err := e.session.ToggleInput(req.Input); err != nil {
			return nil, err
		}
		return e.session.Snapshot(), nil
	})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withSession(w, r, func(e *entry) (any, error) {
		if err := e.session.AddConnection(req.Source, req.Gate, req.Slot); err != nil {
			return nil, err
		}
		return e.session.Snapshot(), nil
	})
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withSession(w, r, func(e *entry) (any, error) {
		ev, err := e.surface.Dispatch(req.Type, circuit.Point{X: req.X, Y: req.Y})
		if err != nil {
			return nil, badRequest{err}
		}
		return pointerResponse{Event: ev, Session: e.session.Snapshot()}, nil
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(e *entry) (any, error) {
		e.session.Reset()
		return e.session.Snapshot(), nil
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(e *entry) (any, error) {
		if err := e.session.Submit(r.Context()); err != nil {
			return nil, err
		}
		return e.session.Snapshot(), nil
	})
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(e *entry) (any, error) {
		return e.session.Hint()
	})
}

func (s *Server) handleNetlist(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := s.sessions.With(r.PathValue("id"), func(e *entry) error {
		return utils.WriteBench(&buf, e.session.Circuit())
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// withSession runs fn under the session lock and writes its result as JSON
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*entry) (any, error)) {
	var out any
	err := s.sessions.With(r.PathValue("id"), func(e *entry) error {
		var err error
		out, err = fn(e)
		return err
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type badRequest struct{ error }

func (b badRequest) Unwrap() error { return b.error }

// writeFailure maps domain errors to status codes
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	var br badRequest
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", nil)
	case errors.As(err, &br):
		writeError(w, http.StatusBadRequest, "bad_request", br.error)
	case errors.Is(err, circuit.ErrInvalidConnection):
		var invalid *circuit.InvalidConnectionError
		if errors.As(err, &invalid) {
			err = invalid.Reason
		}
		writeError(w, http.StatusUnprocessableEntity, "invalid_connection", err)
	case errors.Is(err, circuit.ErrUnknownInput):
		writeError(w, http.StatusUnprocessableEntity, "unknown_input", err)
	case errors.Is(err, puzzle.ErrNotSolved):
		writeError(w, http.StatusConflict, "not_solved", err)
	case errors.Is(err, algorithm.ErrUnjustifiable), errors.Is(err, algorithm.ErrCyclicCircuit),
		errors.Is(err, algorithm.ErrUnsettled):
		writeError(w, http.StatusConflict, "no_hint", err)
	default:
		s.logger.Error("Request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_server_error", nil)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json_body", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	resp := errorResponse{Error: code}
	if err != nil {
		resp.Reason = err.Error()
	}
	writeJSON(w, status, resp)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Middleware: Panic Recovery
func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("Panic recovered on %s: %v", r.URL.Path, err)
				writeError(w, http.StatusInternalServerError, "internal_server_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Middleware: Request Logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Debug("%s %s -> %d (%s)", r.Method, r.URL.Path, ww.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
