/**
 * pdfocr Server - Main Entry Point
 *
 * HTTP service that rasterizes uploaded PDFs, OCRs every page and crops
 * diagram regions found below question markers.
 *
 * Architecture:
 * - chi router serving POST /extract-text synchronously
 * - Optional async job API backed by asynq (Redis) with an in-process worker
 * - Optional PostgreSQL job log
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/adverant/nexus/pdfocr/internal/api"
	"github.com/adverant/nexus/pdfocr/internal/app"
	"github.com/adverant/nexus/pdfocr/internal/config"
	"github.com/adverant/nexus/pdfocr/internal/logging"
	"github.com/adverant/nexus/pdfocr/internal/queue"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env not found, using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := app.NewLogger(cfg, "server")
	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

// run serves until a signal arrives; deferred cleanup runs on every return.
func run(cfg *config.Config, logger *logging.Logger) error {
	logger.Info("pdfocr server starting",
		"addr", cfg.HTTPAddr,
		"rasterizer", cfg.Rasterizer,
		"dpi", cfg.RasterDPI,
		"diagrams", cfg.ExtractDiagrams,
		"jobs", cfg.JobsEnabled(),
	)

	pipeline, err := app.NewPipeline(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize extraction pipeline: %w", err)
	}

	apiCfg := api.Config{
		Extractor:       pipeline,
		AllowedOrigins:  cfg.AllowedOrigins,
		MaxUploadSize:   cfg.MaxUploadSize,
		MaxPages:        cfg.MaxPages,
		ExtractDiagrams: cfg.ExtractDiagrams,
		InBandErrors:    cfg.InBandErrors,
		Logger:          logger,
	}

	var consumer *queue.Consumer
	if cfg.JobsEnabled() {
		storageManager, err := app.NewStorage(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize storage manager: %w", err)
		}
		defer func() {
			if err := storageManager.Close(); err != nil {
				logger.Warn("Error closing storage manager", "error", err)
			}
		}()

		producer, err := app.NewProducer(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize queue producer: %w", err)
		}
		defer producer.Close()

		consumer, err = app.NewConsumer(cfg, pipeline, storageManager, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize queue consumer: %w", err)
		}

		apiCfg.Jobs = storageManager
		apiCfg.Queue = producer
		apiCfg.Worker = consumer
		logger.Info("Async jobs enabled", "queue", cfg.JobQueue, "job_log", storageManager.HasJobLog())
	}

	server, err := api.New(apiCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP API: %w", err)
	}

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.Router(),
	}

	if consumer != nil {
		if err := consumer.Start(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", "timeout", cfg.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)

		if consumer != nil {
			consumer.Stop()
		}
		return err
	})

	return g.Wait()
}
