// Package api exposes the skill catalog and execution engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/skillet-ai/skillet/pkg/engine"
	"github.com/skillet-ai/skillet/pkg/logger"
	"github.com/skillet-ai/skillet/pkg/presenter"
	"github.com/skillet-ai/skillet/pkg/runlog"
	"github.com/skillet-ai/skillet/pkg/skills"
)

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Host string
	Port int
}

// Validate checks the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

// Server serves the skill API: listing skills, running them, and browsing
// the run log.
type Server struct {
	router  *mux.Router
	engine  *engine.Engine
	catalog *skills.Catalog
	runs    *runlog.Store
	config  *ServerConfig
	server  *http.Server
}

// NewServer creates an API server. The run log store may be nil, in which
// case the run endpoints return 404.
func NewServer(config *ServerConfig, eng *engine.Engine, catalog *skills.Catalog, runs *runlog.Store) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}

	s := &Server{
		router:  mux.NewRouter(),
		engine:  eng,
		catalog: catalog,
		runs:    runs,
		config:  config,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/skills", s.handleListSkills).Methods("GET")
	api.HandleFunc("/skills/{name}", s.handleGetSkill).Methods("GET")
	api.HandleFunc("/skills/{name}/run", s.handleRunSkill).Methods("POST")
	api.HandleFunc("/runs", s.handleListRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")

	s.router.Use(s.loggingMiddleware)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: 200}
		next.ServeHTTP(rw, r)

		logger.G(r.Context()).WithFields(map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration":    time.Since(start),
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request")
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSONResponse(w, map[string]any{"status": "ok", "skills": s.catalog.Len()})
}

type skillSummary struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Inputs      []skills.InputSpec `json:"inputs,omitempty"`
	Steps       int               `json:"steps"`
}

func (s *Server) handleListSkills(w http.ResponseWriter, _ *http.Request) {
	defs := s.catalog.List()
	summaries := make([]skillSummary, 0, len(defs))
	for _, def := range defs {
		summaries = append(summaries, skillSummary{
			Name:        def.Name,
			Description: def.Description,
			Inputs:      def.Inputs,
			Steps:       len(def.Steps),
		})
	}
	s.writeJSONResponse(w, map[string]any{"skills": summaries})
}

func (s *Server) handleGetSkill(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	def, ok := s.catalog.Get(name)
	if !ok {
		s.writeErrorResponse(w, http.StatusNotFound, fmt.Sprintf("skill %q not found", name), nil)
		return
	}
	s.writeJSONResponse(w, def)
}

type runRequest struct {
	Inputs map[string]any `json:"inputs"`
}

func (s *Server) handleRunSkill(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req runRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}

	result, err := s.engine.Run(r.Context(), name, req.Inputs)
	if err != nil && result == nil {
		if skills.IsValidationError(err) {
			s.writeErrorResponse(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		s.writeErrorResponse(w, http.StatusInternalServerError, "skill run failed", err)
		return
	}

	status := http.StatusOK
	if result.Aborted {
		// The run itself completed; the skill did not. 422 distinguishes
		// skill-level failure from transport errors.
		status = http.StatusUnprocessableEntity
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.G(r.Context()).WithError(err).Error("failed to encode run result")
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.writeErrorResponse(w, http.StatusNotFound, "run log not enabled", nil)
		return
	}
	records, err := s.runs.ListRuns(r.Context(), r.URL.Query().Get("skill"), 50)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to list runs", err)
		return
	}
	s.writeJSONResponse(w, map[string]any{"runs": records})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.writeErrorResponse(w, http.StatusNotFound, "run log not enabled", nil)
		return
	}
	id := mux.Vars(r)["id"]
	record, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, runlog.ErrRunNotFound) {
			s.writeErrorResponse(w, http.StatusNotFound, fmt.Sprintf("run %q not found", id), nil)
			return
		}
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to load run", err)
		return
	}
	s.writeJSONResponse(w, record)
}

func (s *Server) writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.G(context.TODO()).WithError(err).Error("failed to encode JSON response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		logger.G(context.TODO()).WithError(err).Error(message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]any{
		"error":   message,
		"status":  statusCode,
		"success": false,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.G(context.TODO()).WithError(err).Error("failed to encode error response")
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:    address,
		Handler: s.router,
	}

	presenter.Info(fmt.Sprintf("Starting API server on http://%s", address))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.G(ctx).WithError(err).Error("API server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}
