/**
 * HTTP API for the pdfocr service
 *
 * Serves synchronous extraction, health and, when Redis is configured,
 * asynchronous job submission and status.
 */

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/pdfocr/internal/extract"
	"github.com/adverant/nexus/pdfocr/internal/logging"
	"github.com/adverant/nexus/pdfocr/internal/queue"
	"github.com/adverant/nexus/pdfocr/internal/storage"
)

// multipartMemory is how much of an upload ParseMultipartForm keeps in memory
// before spilling to temporary files.
const multipartMemory = 32 << 20

// Extractor runs one extraction
type Extractor interface {
	Run(ctx context.Context, req extract.Request) (*extract.Result, error)
}

// JobStore tracks asynchronous jobs
type JobStore interface {
	CreateJob(ctx context.Context, jobID, filename string) (*storage.Job, error)
	GetJob(ctx context.Context, jobID string) (*storage.Job, error)
	UpdateJobStatus(ctx context.Context, update *storage.JobUpdate) error
	ListJobs(ctx context.Context, statuses []storage.Status, limit int) ([]*storage.Job, error)
	Ping(ctx context.Context) error
	GetStats() map[string]interface{}
}

// StatsSource reports worker statistics for the health endpoint
type StatsSource interface {
	GetStatistics() map[string]interface{}
}

// Enqueuer submits jobs to the worker queue
type Enqueuer interface {
	Enqueue(ctx context.Context, data *queue.JobData) (*asynq.TaskInfo, error)
}

// Config holds server collaborators and request limits
type Config struct {
	Extractor       Extractor
	AllowedOrigins  []string
	MaxUploadSize   int64
	MaxPages        int
	ExtractDiagrams bool
	// InBandErrors reports failures with HTTP 200 and an error body.
	InBandErrors bool

	// Jobs and Queue are both set or both nil; without them the job routes are not mounted.
	Jobs  JobStore
	Queue Enqueuer

	// Worker is the in-process consumer, when one runs.
	Worker StatsSource

	Logger *logging.Logger
}

// Server handles HTTP requests
type Server struct {
	cfg    Config
	logger *logging.Logger
}

// New creates the HTTP server handlers
func New(cfg Config) (*Server, error) {
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if (cfg.Jobs == nil) != (cfg.Queue == nil) {
		return nil, fmt.Errorf("job store and queue must be configured together")
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = 50 << 20
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	return &Server{cfg: cfg, logger: cfg.Logger.Named("api")}, nil
}

// JobsEnabled reports whether the job routes are mounted.
func (s *Server) JobsEnabled() bool {
	return s.cfg.Jobs != nil
}

// Router builds the route tree
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.health)
	r.Post("/extract-text", s.extractText)

	if s.JobsEnabled() {
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.listJobs)
			r.Post("/extract-text", s.submitJob)
			r.Get("/{jobID}", s.getJob)
		})
	}

	return r
}
