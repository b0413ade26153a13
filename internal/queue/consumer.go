/**
 * Queue Consumer for the pdfocr worker
 *
 * Consumes extraction jobs from Redis through asynq, runs the extraction
 * pipeline under a processing timeout and records status and results.
 */

package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/pdfocr/internal/errors"
	"github.com/adverant/nexus/pdfocr/internal/extract"
	"github.com/adverant/nexus/pdfocr/internal/logging"
	"github.com/adverant/nexus/pdfocr/internal/storage"
)

// DefaultProcessingTimeout applies when no timeout is configured.
const DefaultProcessingTimeout = 300000 * time.Millisecond

// Extractor runs one extraction
type Extractor interface {
	Run(ctx context.Context, req extract.Request) (*extract.Result, error)
}

// JobStore records job progress
type JobStore interface {
	UpdateJobStatus(ctx context.Context, update *storage.JobUpdate) error
	CompleteJob(ctx context.Context, update *storage.JobUpdate, result *extract.Result) error
}

// Handler processes extraction tasks
type Handler struct {
	extractor Extractor
	store     JobStore
	timeout   time.Duration
	logger    *logging.Logger

	completed atomic.Int64
	failed    atomic.Int64
}

// NewHandler creates the task handler
func NewHandler(extractor Extractor, store JobStore, timeout time.Duration, logger *logging.Logger) *Handler {
	if timeout <= 0 {
		timeout = DefaultProcessingTimeout
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Handler{extractor: extractor, store: store, timeout: timeout, logger: logger.Named("queue")}
}

// ProcessTask implements asynq.Handler
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	startTime := time.Now()

	var jobData JobData
	if err := json.Unmarshal(task.Payload(), &jobData); err != nil {
		return fmt.Errorf("failed to unmarshal job data: %v: %w", err, asynq.SkipRetry)
	}
	logger := h.logger.With("job_id", jobData.JobID, "filename", jobData.Filename)
	logger.Info("Processing extraction job", "bytes", len(jobData.FileBuffer), "diagrams", jobData.Diagrams)

	h.update(ctx, logger, &storage.JobUpdate{JobID: jobData.JobID, Status: storage.StatusProcessing})

	processCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	result, err := h.extractor.Run(processCtx, extract.Request{
		JobID:    jobData.JobID,
		Filename: jobData.Filename,
		Data:     jobData.FileBuffer,
		Diagrams: jobData.Diagrams,
		OnPage: func(done, total int) {
			h.update(ctx, logger, &storage.JobUpdate{
				JobID:    jobData.JobID,
				Status:   storage.StatusProcessing,
				Progress: done * 100 / total,
				Pages:    total,
			})
		},
	})
	duration := time.Since(startTime)

	if err != nil {
		perr := errors.As(err).WithJobID(jobData.JobID)
		if stderrors.Is(processCtx.Err(), context.DeadlineExceeded) && perr.Code != errors.ErrorProcessingTimeout {
			perr = errors.NewProcessingTimeoutError(jobData.JobID, h.timeout, err)
		}
		logger.Error("Extraction job failed", "error_code", string(perr.Code), "error", perr, "duration_ms", duration.Milliseconds())

		h.update(ctx, logger, &storage.JobUpdate{
			JobID:            jobData.JobID,
			Status:           storage.StatusFailed,
			Progress:         100,
			ProcessingTimeMs: duration.Milliseconds(),
			ErrorCode:        string(perr.Code),
			ErrorMessage:     perr.Message,
			Metadata:         perr.ToMap(),
		})
		h.failed.Add(1)
		return fmt.Errorf("extraction failed: %v: %w", perr, asynq.SkipRetry)
	}

	if err := h.store.CompleteJob(ctx, &storage.JobUpdate{
		JobID:            jobData.JobID,
		ProcessingTimeMs: duration.Milliseconds(),
	}, result); err != nil {
		serr := errors.NewStorageFailedError(jobData.JobID, err)
		logger.Error("Failed to store extraction result", "error", serr)
		h.failed.Add(1)
		return fmt.Errorf("%v: %w", serr, asynq.SkipRetry)
	}

	logger.Info("Extraction job completed",
		"pages", len(result.Images),
		"crops", len(result.CroppedImages),
		"duration_ms", duration.Milliseconds(),
	)
	h.completed.Add(1)
	return nil
}

func (h *Handler) update(ctx context.Context, logger *logging.Logger, update *storage.JobUpdate) {
	if err := h.store.UpdateJobStatus(ctx, update); err != nil {
		logger.Warn("Failed to update job status", "status", string(update.Status), "error", err)
	}
}

// Consumer handles job consumption from the Redis queue
type Consumer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	config *ConsumerConfig
	logger *logging.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL    string
	QueueName   string
	Concurrency int
	Handler     *Handler
	Logger      *logging.Logger
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	if cfg.Handler == nil {
		return nil, fmt.Errorf("Handler is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10, // Priority 10 for main queue
				"default":     1,  // Priority 1 for fallback
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task processing error", "type", task.Type(), "error", err)
			}),
			Logger: logger.Named("asynq").ForAsynq(),
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(TypeExtractText, cfg.Handler)

	return &Consumer{server: server, mux: mux, config: cfg, logger: logger}, nil
}

// Start starts processing in background goroutines
func (c *Consumer) Start() error {
	c.logger.Info("Starting queue consumer", "concurrency", c.config.Concurrency, "queue", c.config.QueueName)
	if err := c.server.Start(c.mux); err != nil {
		return fmt.Errorf("failed to start queue consumer: %w", err)
	}
	return nil
}

// Stop waits for in-flight tasks and stops the consumer
func (c *Consumer) Stop() {
	c.logger.Info("Stopping queue consumer")
	c.server.Shutdown()
	c.logger.Info("Queue consumer stopped")
}

// GetStatistics returns consumer statistics
func (c *Consumer) GetStatistics() map[string]interface{} {
	return map[string]interface{}{
		"concurrency": c.config.Concurrency,
		"queue":       c.config.QueueName,
		"completed":   c.config.Handler.completed.Load(),
		"failed":      c.config.Handler.failed.Load(),
	}
}
