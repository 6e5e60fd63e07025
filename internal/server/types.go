package server

import (
	"net/http"
	"time"

	"github.com/MeKo-Tech/docflow/internal/approval"
	"github.com/MeKo-Tech/docflow/internal/events"
	"github.com/MeKo-Tech/docflow/internal/ingest"
	"github.com/MeKo-Tech/docflow/internal/queue"
	"github.com/MeKo-Tech/docflow/internal/status"
	"github.com/MeKo-Tech/docflow/internal/tables"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	docs        *status.Service
	ingest      *ingest.Service
	forwarder   *queue.Forwarder
	hub         *events.Hub
	rules       approval.Rules
	rateLimiter *RateLimiter

	corsOrigin     string
	maxUploadMB    int64
	timeoutSec     int
	matchThreshold float64
	failFastRows   bool
}

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	CORSOrigin     string
	MaxUploadMB    int64
	TimeoutSec     int
	MatchThreshold float64
	FailFastRows   bool
	RateLimiter    *RateLimiter
}

// Deps are the services the HTTP handlers delegate to. Docs, Ingest and Hub
// are required; a nil Forwarder disables the queue endpoint and nil Rules
// selects the built-in approval rules.
type Deps struct {
	Docs      *status.Service
	Ingest    *ingest.Service
	Forwarder *queue.Forwarder
	Hub       *events.Hub
	Rules     approval.Rules
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ErrorResponse is the body of every JSON error reply.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// StatusResponse acknowledges a document status operation.
type StatusResponse struct {
	Status     string `json:"status"`
	StatusCode int    `json:"status_code,omitempty"`
	CaseID     string `json:"case_id,omitempty"`
	UID        string `json:"uid,omitempty"`
}

// NewServer creates a server instance.
func NewServer(cfg Config, deps Deps) *Server {
	rules := deps.Rules
	if rules == nil {
		rules = approval.DefaultRules()
	}
	threshold := cfg.MatchThreshold
	if threshold <= 0 {
		threshold = tables.MatchThreshold
	}
	maxUpload := cfg.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 50
	}
	return &Server{
		docs:           deps.Docs,
		ingest:         deps.Ingest,
		forwarder:      deps.Forwarder,
		hub:            deps.Hub,
		rules:          rules,
		rateLimiter:    cfg.RateLimiter,
		corsOrigin:     cfg.CORSOrigin,
		maxUploadMB:    maxUpload,
		timeoutSec:     cfg.TimeoutSec,
		matchThreshold: threshold,
		failFastRows:   cfg.FailFastRows,
	}
}

// Router returns the HTTP handler with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(metricsMiddleware)

	r.Get("/health", s.healthHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/events", s.eventsWebSocketHandler)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)
		if s.timeoutSec > 0 {
			r.Use(middleware.Timeout(time.Duration(s.timeoutSec) * time.Second))
		}

		r.Post("/extraction/v1/extract", s.extractHandler)
		r.Post("/extraction/v1/evaluate", s.evaluateHandler)

		r.Route("/document_status_service/v1", func(r chi.Router) {
			r.Post("/create_document", s.createDocumentHandler)
			r.Post("/create_document_json_input", s.createDocumentJSONHandler)
			r.Post("/update_classification_status", s.updateClassificationHandler)
			r.Post("/update_extraction_status", s.updateExtractionHandler)
			r.Post("/update_validation_status", s.updateValidationHandler)
			r.Post("/update_matching_status", s.updateMatchingHandler)
			r.Post("/update_autoapproved_status", s.updateAutoApprovalHandler)
			r.Get("/documents/{uid}", s.getDocumentHandler)
			r.Get("/cases/{case_id}", s.listCaseHandler)
		})

		r.Route("/upload_service/v1", func(r chi.Router) {
			r.Post("/upload_files", s.uploadFilesHandler)
			r.Post("/upload_json", s.uploadJSONHandler)
		})

		r.Post("/start-pipeline/run", s.startPipelineHandler)
		if s.forwarder != nil {
			r.Method(http.MethodPost, "/queue/publish", queue.NewHandler(s.forwarder))
		}
	})
	return r
}
