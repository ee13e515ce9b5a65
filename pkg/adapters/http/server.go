package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/sieve"
	"github.com/aretw0/sieve/api"
	"github.com/aretw0/sieve/internal/sanitize"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/graph"
	"github.com/aretw0/sieve/pkg/ports"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine defines what the HTTP adapter needs from the sieve core.
type Engine interface {
	RunReport(ctx context.Context, sourcePath string) (*domain.Report, error)
	Inspect() []graph.NodeInfo
	Mermaid() string
}

// Server serves the pipeline over HTTP.
type Server struct {
	Engine   Engine
	Store    ports.ReportStore
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	// DataDir is the directory source paths are resolved in. Empty means
	// the working directory.
	DataDir string

	doc    *openapi3.T
	router routers.Router
}

// Option configures a Server.
type Option func(*Server)

// WithReportStore enables the /runs read endpoints.
func WithReportStore(store ports.ReportStore) Option {
	return func(s *Server) {
		s.Store = store
	}
}

// WithGatherer exposes the given registry on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// WithDataDir confines POST /runs to files under dir.
func WithDataDir(dir string) Option {
	return func(s *Server) {
		s.DataDir = dir
	}
}

// WithLogger sets the request logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// RunRequest is the body of POST /runs.
type RunRequest struct {
	SourcePath string `json:"source_path"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Step  string `json:"step,omitempty"`
}

// NewHandler creates a new HTTP handler for the engine. Requests are
// validated against the embedded OpenAPI document before they reach a handler.
func NewHandler(engine Engine, opts ...Option) (http.Handler, error) {
	s := &Server{Engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	doc, err := openapi3.NewLoader().LoadFromData(api.Spec)
	if err != nil {
		return nil, err
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, err
	}
	s.doc = doc
	s.router = router

	r := chi.NewRouter()
	r.Use(enableCORS)
	r.Use(s.validate)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(api.Spec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graph", s.GetGraph)
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.ListRuns)
		r.Post("/", s.CreateRun)
		r.Get("/{runID}", s.GetRun)
		r.Delete("/{runID}", s.DeleteRun)
	})

	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// validate checks requests for documented routes. Undocumented routes such
// as /metrics pass through untouched.
func (s *Server) validate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := s.router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			s.Logger.Warn("Request rejected", "method", r.Method, "path", r.URL.Path, "error", err)
			writeError(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Sieve API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.doc != nil && s.doc.Info != nil {
		apiVersion = s.doc.Info.Version
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "sieve-http",
		"version":     strings.TrimSpace(sieve.Version),
		"api_version": apiVersion,
	})
}

// GetGraph handles the GET /graph request. The Mermaid source is returned
// unless format=json asks for the step list.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, s.Engine.Inspect())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(s.Engine.Mermaid()))
}

// CreateRun handles the POST /runs request.
func (s *Server) CreateRun(w http.ResponseWriter, r *http.Request) {
	var body RunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	source, err := sanitize.Path(s.DataDir, body.SourcePath)
	if err != nil {
		s.Logger.Warn("CreateRun: Input rejected", "error", err, "size", len(body.SourcePath))
		status := http.StatusBadRequest
		if errors.Is(err, sanitize.ErrOutsideRoot) {
			status = http.StatusForbidden
		}
		writeError(w, status, ErrorResponse{Error: "invalid source_path: " + err.Error()})
		return
	}

	report, err := s.Engine.RunReport(r.Context(), source)
	if err != nil {
		var stepErr *domain.StepExecutionError
		if errors.As(err, &stepErr) {
			s.Logger.Warn("Run failed", "step", stepErr.StepName, "error", stepErr.Cause)
			writeError(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Step: stepErr.StepName})
			return
		}
		s.Logger.Error("Run failed", "error", err)
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, report)
}

// ListRuns handles the GET /runs request.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	ids, err := s.Store.List(r.Context())
	if err != nil {
		s.Logger.Error("List runs failed", "error", err)
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"runs": ids})
}

// GetRun handles the GET /runs/{runID} request.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	runID, ok := bindRunID(w, r)
	if !ok {
		return
	}

	report, err := s.Store.Load(r.Context(), runID.String())
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			writeError(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		s.Logger.Error("Load run failed", "run_id", runID, "error", err)
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// DeleteRun handles the DELETE /runs/{runID} request.
func (s *Server) DeleteRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	runID, ok := bindRunID(w, r)
	if !ok {
		return
	}

	if err := s.Store.Delete(r.Context(), runID.String()); err != nil {
		s.Logger.Error("Delete run failed", "run_id", runID, "error", err)
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.Store == nil {
		writeError(w, http.StatusServiceUnavailable, ErrorResponse{Error: "no report store configured"})
		return false
	}
	return true
}

func bindRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "runID", chi.URLParam(r, "runID"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid run id: " + err.Error()})
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	writeJSON(w, status, resp)
}
