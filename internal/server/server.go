// Package server exposes a run controller over HTTP.
//
// Routes:
//
//	GET  /health          build information
//	GET  /status          controller status
//	POST /run?steps=N     start a background run, unbounded when steps is absent or 0
//	POST /pause           request a pause at the next step boundary
//	POST /resume          resume a paused run
//	POST /stop            stop the run at the next step boundary
//	POST /hurt?n=K        remove up to K random non-seed tiles between runs
//	GET  /snapshot        latest snapshot of the run
//
// Errors are JSON objects with "error" and "code" fields.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/tilesim/pkg/buildinfo"
	"github.com/matzehuels/tilesim/pkg/control"
	"github.com/matzehuels/tilesim/pkg/errors"
	"github.com/matzehuels/tilesim/pkg/observability"
	"github.com/matzehuels/tilesim/pkg/tile"
)

const shutdownTimeout = 5 * time.Second

// Server serves the control API of one controller.
type Server struct {
	ctrl   *control.Controller
	logger *log.Logger
	router chi.Router

	mu      sync.Mutex
	baseCtx context.Context
}

// New builds the router for ctrl. A nil logger uses log.Default().
func New(ctrl *control.Controller, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{ctrl: ctrl, logger: logger, baseCtx: context.Background()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/snapshot", s.handleSnapshot)
	r.Post("/run", s.handleRun)
	r.Post("/pause", s.signal(ctrl.Pause, "pause"))
	r.Post("/resume", s.signal(ctrl.Resume, "resume"))
	r.Post("/stop", s.signal(ctrl.Stop, "stop"))
	r.Post("/hurt", s.handleHurt)
	s.router = r
	return s
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler { return s.router }

// Run listens on addr until ctx ends, then stops the controller and shuts the
// listener down. Runs started over HTTP live as long as ctx.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("control API listening", "addr", addr, "run", s.ctrl.RunID())

	select {
	case err := <-errc:
		return errors.Wrap(errors.ErrCodeInternal, err, "listen on %s", addr)
	case <-ctx.Done():
	}

	s.ctrl.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "shutdown")
	}
	if err := s.ctrl.Wait(); err != nil && !stderrors.Is(err, context.Canceled) {
		s.logger.Warn("run ended with error", "err", err)
	}
	return ctx.Err()
}

func (s *Server) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}

// instrument reports each request to the HTTP hooks and the debug log.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		dur := time.Since(start)
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, dur)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", status,
			"duration", dur, "id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	steps := 0
	if v := r.URL.Query().Get("steps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest,
				errors.New(errors.ErrCodeInvalidConfig, "steps must be a non-negative integer, got %q", v))
			return
		}
		steps = n
	}
	if err := s.ctrl.Start(s.runContext(), steps); err != nil {
		switch {
		case errors.Is(err, errors.ErrCodeInvalidState):
			writeError(w, http.StatusConflict, err)
		case errors.IsValidation(err):
			writeError(w, http.StatusBadRequest, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	s.logger.Info("run started", "run", s.ctrl.RunID(), "steps", steps)
	writeJSON(w, http.StatusAccepted, s.ctrl.Status())
}

type hurtBody struct {
	Removed []tile.ID `json:"removed"`
}

func (s *Server) handleHurt(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query().Get("n")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest,
			errors.New(errors.ErrCodeInvalidConfig, "n must be a non-negative integer, got %q", v))
		return
	}
	removed, err := s.ctrl.Hurt(n)
	if err != nil {
		switch {
		case errors.Is(err, errors.ErrCodeInvalidState):
			writeError(w, http.StatusConflict, err)
		case errors.IsValidation(err):
			writeError(w, http.StatusBadRequest, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	if removed == nil {
		removed = []tile.ID{}
	}
	s.logger.Info("tiles removed", "run", s.ctrl.RunID(), "count", len(removed))
	writeJSON(w, http.StatusOK, hurtBody{Removed: removed})
}

func (s *Server) signal(fn func(), name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn()
		s.logger.Info("run "+name+" requested", "run", s.ctrl.RunID())
		writeJSON(w, http.StatusAccepted, s.ctrl.Status())
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ctrl.Sink.Latest(r.Context(), s.ctrl.RunID())
	if err != nil {
		s.logger.Warn("read latest snapshot", "err", err)
	}
	if snap == nil {
		snap = s.ctrl.LastSnapshot()
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, errors.New(errors.ErrCodeInvalidState, "no snapshot yet"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type errorBody struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: errors.UserMessage(err), Code: errors.GetCode(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
