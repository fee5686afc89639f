package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxBodyBytes caps the size of a graph document.
const DefaultMaxBodyBytes = 10 << 20

// Engine is the part of lattice.Engine the HTTP adapter serves.
type Engine interface {
	Compile(ctx context.Context, raw *domain.RawState) *domain.Result
	Validate(raw *domain.RawState) (*domain.BuilderState, []string, error)
	PutProject(ctx context.Context, raw *domain.RawState) (*domain.BuilderState, error)
	GetProject(ctx context.Context, projectID string) (*domain.BuilderState, error)
	ListProjects(ctx context.Context) ([]string, error)
	CompileProject(ctx context.Context, projectID string) (*domain.Result, error)
	Archive(ctx context.Context, key string) ([]byte, string, error)
}

var _ Engine = (*lattice.Engine)(nil)

// Server holds the handlers of the HTTP adapter.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	parser   *compiler.Parser
	logger   *slog.Logger
	metrics  prometheus.Gatherer
	maxBytes int64
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics exposes gatherer on GET /metrics.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = gatherer
	}
}

// WithStreams serves compile progress from streams on GET /projects/{id}/events.
// The engine must be built with streams.Hooks() for events to flow.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		s.Streams = streams
	}
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		s.maxBytes = n
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:   engine,
		parser:   compiler.NewParser(),
		logger:   logging.NewNop(),
		maxBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Post("/compile", s.Compile)
	r.Post("/validate", s.Validate)
	r.Get("/projects", s.ListProjects)
	r.Route("/projects/{id}", func(r chi.Router) {
		r.Get("/", s.GetProject)
		r.Put("/", s.PutProject)
		r.Post("/compile", s.CompileProject)
		if s.Streams != nil {
			r.Get("/events", s.SubscribeEvents)
		}
	})
	r.Get("/archives/*", s.GetArchive)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":        "lattice-http",
		"version":    strings.TrimSpace(lattice.Version),
		"node_types": domain.NodeTypes,
	})
}

// Compile handles the POST /compile request. A failed compile is still a
// structured result, returned with 422.
func (s *Server) Compile(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readGraph(w, r)
	if !ok {
		return
	}
	res := s.Engine.Compile(r.Context(), raw)
	s.writeResult(w, res)
}

// Validate handles the POST /validate request.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readGraph(w, r)
	if !ok {
		return
	}
	state, warnings, err := s.Engine.Validate(raw)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	if warnings == nil {
		warnings = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"state": state, "warnings": warnings})
}

// ListProjects handles the GET /projects request.
func (s *Server) ListProjects(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.ListProjects(r.Context())
	if err != nil {
		s.logger.Error("List projects failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"projects": ids})
}

// GetProject handles the GET /projects/{id} request.
func (s *Server) GetProject(w http.ResponseWriter, r *http.Request) {
	state, err := s.Engine.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

// PutProject handles the PUT /projects/{id} request. The path id wins over the body's project_id.
func (s *Server) PutProject(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readGraph(w, r)
	if !ok {
		return
	}
	raw.ProjectID = chi.URLParam(r, "id")
	state, err := s.Engine.PutProject(r.Context(), raw)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

// CompileProject handles the POST /projects/{id}/compile request.
func (s *Server) CompileProject(w http.ResponseWriter, r *http.Request) {
	res, err := s.Engine.CompileProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeResult(w, res)
}

// GetArchive handles the GET /archives/* request.
func (s *Server) GetArchive(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	data, mimeType, err := s.Engine.Archive(r.Context(), key)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	if mimeType == "" {
		mimeType = domain.ArchiveMIME
	}
	w.Header().Set("Content-Type", mimeType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("Archive write failed", "key", key, "err", err)
	}
}

// readGraph decodes the request body as JSON, YAML or HCL depending on Content-Type.
func (s *Server) readGraph(w http.ResponseWriter, r *http.Request) (*domain.RawState, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, err)
			return nil, false
		}
		s.writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	raw, err := s.parser.Parse(body, formatOf(r))
	if err != nil {
		s.logger.Warn("Invalid graph document", "path", r.URL.Path, "err", err)
		s.writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return raw, true
}

func formatOf(r *http.Request) compiler.Format {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml":
		return compiler.FormatYAML
	case "application/hcl", "text/x-hcl":
		return compiler.FormatHCL
	default:
		return compiler.FormatJSON
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrProjectNotFound), errors.Is(err, domain.ErrBlobNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSchema), errors.Is(err, domain.ErrGraphIntegrity):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeResult(w http.ResponseWriter, res *domain.Result) {
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, res)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "status", status, "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", fmt.Errorf("encode %T: %w", v, err))
	}
}
