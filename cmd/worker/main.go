/**
 * pdfocr Worker - Main Entry Point
 *
 * Standalone consumer for asynchronous extraction jobs.
 *
 * Architecture:
 * - asynq consumer for the Redis-backed job queue
 * - Same extraction pipeline as the HTTP service (rasterize, OCR, diagram crops)
 * - Results kept in Redis for RESULT_TTL, history in PostgreSQL when configured
 */

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/adverant/nexus/pdfocr/internal/app"
	"github.com/adverant/nexus/pdfocr/internal/config"
	"github.com/adverant/nexus/pdfocr/internal/logging"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env not found, using system environment variables")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.JobsEnabled() {
		log.Fatalf("REDIS_URL is required to run the worker")
	}

	logger := app.NewLogger(cfg, "worker")
	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

func run(cfg *config.Config, logger *logging.Logger) error {
	logger.Info("pdfocr worker starting",
		"queue", cfg.JobQueue,
		"workers", cfg.WorkerConcurrency,
		"rasterizer", cfg.Rasterizer,
		"timeout_ms", cfg.ProcessingTimeout,
	)

	// Initialize storage manager (Redis + optional PostgreSQL)
	storageManager, err := app.NewStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage manager: %w", err)
	}
	defer func() {
		if err := storageManager.Close(); err != nil {
			logger.Warn("Error closing storage manager", "error", err)
		}
	}()

	if err := healthCheck(storageManager.Ping); err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}
	logger.Info("Storage manager initialized", "job_log", storageManager.HasJobLog())

	// Initialize extraction pipeline
	pipeline, err := app.NewPipeline(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize extraction pipeline: %w", err)
	}

	// Initialize and start queue consumer
	queueConsumer, err := app.NewConsumer(cfg, pipeline, storageManager, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize queue consumer: %w", err)
	}
	if err := queueConsumer.Start(); err != nil {
		return err
	}
	logger.Info("Waiting for jobs...")

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Received signal, initiating graceful shutdown", "signal", sig.String())

	queueConsumer.Stop()
	logger.Info("Worker statistics", "stats", queueConsumer.GetStatistics())
	return nil
}

func healthCheck(ping func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ping(ctx)
}
