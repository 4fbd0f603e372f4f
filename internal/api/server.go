package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dgallion1/checkgest/internal/config"
	"github.com/dgallion1/checkgest/internal/pipeline"
	"github.com/dgallion1/checkgest/internal/store"
	"github.com/dgallion1/checkgest/internal/structurer"
)

// ConversionReader is the read side of the result store.
type ConversionReader interface {
	Get(ctx context.Context, id string) (*store.Conversion, error)
	List(ctx context.Context, filter store.ListFilter) ([]store.Conversion, error)
}

// Server is the HTTP API server for checkgest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	converter    *pipeline.Converter
	store        ConversionReader
	llmStats     *structurer.Stats
	log          *zap.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. st and llmStats may be
// nil when the store or the structurer is disabled.
func NewServer(orch *pipeline.Orchestrator, conv *pipeline.Converter, st ConversionReader, llmStats *structurer.Stats, log *zap.Logger, cfg config.Config) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		orchestrator: orch,
		converter:    conv,
		store:        st,
		llmStats:     llmStats,
		log:          log.Named("api"),
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.Server.APIKey, s.log))

		r.Post("/api/convert", s.handleConvert)

		r.Post("/api/jobs", s.handleSubmitJob)
		r.Post("/api/jobs/batch", s.handleSubmitBatch)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
		r.Get("/api/jobs/{jobID}/result", s.handleJobResult)

		r.Post("/api/evaluate", s.handleEvaluate)
		r.Post("/api/score", s.handleScore)

		r.Get("/api/conversions", s.handleListConversions)
		r.Get("/api/conversions/{id}", s.handleGetConversion)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.orchestrator != nil {
		body["workers"] = s.orchestrator.Workers()
		body["queue_depth"] = s.orchestrator.QueueDepth()
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
