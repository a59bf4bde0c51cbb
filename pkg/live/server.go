package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cellgraph-dev/cellgraph/pkg/store"
)

// Server exposes a cell registry over HTTP and WebSocket.
//
// Routes:
//   - GET  /cells        — JSON snapshot of all registered cells
//   - GET  /cells/{name} — single cell value
//   - POST /cells/{name} — set a registered source from a JSON body
//   - GET  /live         — WebSocket stream of cell changes
//   - GET  /healthz      — liveness probe
//   - GET  /metrics      — Prometheus exposition (when a collector is set)
type Server struct {
	store  *store.Store
	config *Config
	logger *slog.Logger

	upgrader websocket.Upgrader
	router   chi.Router

	httpServer *http.Server
}

// New creates a live server over the given registry.
func New(st *store.Store, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	} else {
		defaults := DefaultConfig()
		if config.Address == "" {
			config.Address = defaults.Address
		}
		if config.ReadBufferSize == 0 {
			config.ReadBufferSize = defaults.ReadBufferSize
		}
		if config.WriteBufferSize == 0 {
			config.WriteBufferSize = defaults.WriteBufferSize
		}
		if config.CheckOrigin == nil {
			config.CheckOrigin = defaults.CheckOrigin
		}
		if config.PingInterval == 0 {
			config.PingInterval = defaults.PingInterval
		}
		if config.WriteTimeout == 0 {
			config.WriteTimeout = defaults.WriteTimeout
		}
		if config.ShutdownTimeout == 0 {
			config.ShutdownTimeout = defaults.ShutdownTimeout
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:  st,
		config: config,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
	}

	s.router = s.buildRouter()
	return s
}

// Handler returns the server's router for mounting in external muxes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("live server starting", "address", s.config.Address)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully, bounded by ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("live server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// buildRouter assembles the route table.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	if s.config.Tracing {
		r.Use(Tracing())
	}
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/cells", s.handleSnapshot)
	r.Get("/cells/{name}", s.handleGetCell)
	r.Post("/cells/{name}", s.handleSetCell)
	r.Get("/live", s.handleLive)

	if s.config.Collector != nil {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// requestLogger logs each request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleSnapshot returns the current value of every registered cell.
// Cells whose derivation currently fails are omitted and logged; the
// healthy ones are still served.
func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap, err := s.store.Snapshot()
	if err != nil {
		s.logger.Warn("partial snapshot", "error", err)
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetCell(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	value, err := s.store.Get(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, changeFrame{Name: name, Value: value})
}

func (s *Server) handleSetCell(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body"))
		return
	}

	// Propagation failures in watchers or forced recomputes surface as
	// a panic from Set; report them without taking the server down.
	err = func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				if rerr, ok := rec.(error); ok {
					err = rerr
					return
				}
				err = fmt.Errorf("propagation failed: %v", rec)
			}
		}()
		return s.store.SetJSON(name, body)
	}()

	var typeErr *json.UnmarshalTypeError
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
		return
	case errors.Is(err, store.ErrReadOnly):
		writeError(w, http.StatusConflict, err)
		return
	case errors.As(err, &typeErr):
		writeError(w, http.StatusBadRequest, err)
		return
	default:
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	value, err := s.store.Get(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, changeFrame{Name: name, Value: value})
}

// changeFrame is one cell update on the wire.
type changeFrame struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// errorFrame is an error response body.
type errorFrame struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorFrame{Error: err.Error()})
}
