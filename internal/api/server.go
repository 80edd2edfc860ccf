// Package api exposes the summarizer over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/lexsum/internal/config"
	"github.com/dgallion1/lexsum/internal/document"
	"github.com/dgallion1/lexsum/internal/errhandler"
	"github.com/dgallion1/lexsum/internal/metrics"
	"github.com/dgallion1/lexsum/internal/model"
	"github.com/dgallion1/lexsum/internal/pipeline"
	"github.com/dgallion1/lexsum/internal/security"
	"github.com/dgallion1/lexsum/internal/summarizer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Session is what a client can export after summarizing a document.
type Session struct {
	Result   *summarizer.Result
	Metadata document.Metadata
	Warnings []string
}

// Deps are the collaborators of a Server. Pipeline, Sessions, Errors and
// Log are required; the rest may be nil.
type Deps struct {
	Pipeline     *pipeline.Pipeline
	Orchestrator *pipeline.Orchestrator
	Security     *security.Service
	Sessions     *security.SessionStore[Session]
	Limiter      *security.ClientLimiter
	Errors       *errhandler.Handler
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	ModelStats   *model.LatencyStats
	ModelLoaded  func() bool
	Log          *slog.Logger
	Config       config.Config
}

// Server is the HTTP API server for lexsum.
type Server struct {
	handler   http.Handler
	deps      Deps
	log       *slog.Logger
	cfg       config.Config
	validator security.RequestValidator
}

// NewServer creates and configures the HTTP server. When an orchestrator
// is given, completed jobs are stored as sessions; NewServer must then be
// called before the orchestrator is started.
func NewServer(deps Deps) *Server {
	s := &Server{
		deps: deps,
		log:  deps.Log,
		cfg:  deps.Config,
	}
	if deps.Orchestrator != nil {
		deps.Orchestrator.OnComplete(func(job *pipeline.Job, out *pipeline.Outcome) {
			s.deps.Sessions.Put(job.SessionID, sessionFrom(out))
		})
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(SecurityHeaders(s.cfg.HTTPSEnabled))
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Middleware)
	}

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	if s.deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(s.deps.Gatherer))
	}

	r.Group(func(r chi.Router) {
		if s.deps.Limiter != nil {
			r.Use(RateLimit(s.deps.Limiter, s.log))
		}
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Get("/api/options", s.handleOptions)
		r.Post("/api/summarize", s.handleSummarize)
		if s.deps.Orchestrator != nil {
			r.Post("/api/jobs", s.handleSubmitJob)
			r.Get("/api/jobs/{jobID}", s.handleJobStatus)
		}
		r.Get("/api/sessions/{sessionID}/export", s.handleExport)
		r.Delete("/api/sessions/{sessionID}", s.handleDeleteSession)
		r.Get("/api/stats", s.handleStats)
	})

	s.handler = otelhttp.NewHandler(r, "lexsum-api")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	modelLoaded := false
	if s.deps.ModelLoaded != nil {
		modelLoaded = s.deps.ModelLoaded()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"model_loaded": modelLoaded,
	})
}
