// Package app wires configuration into the components shared by the
// server, worker and CLI binaries.
package app

import (
	"fmt"
	"time"

	"github.com/adverant/nexus/pdfocr/internal/config"
	"github.com/adverant/nexus/pdfocr/internal/extract"
	"github.com/adverant/nexus/pdfocr/internal/logging"
	"github.com/adverant/nexus/pdfocr/internal/ocr"
	"github.com/adverant/nexus/pdfocr/internal/queue"
	"github.com/adverant/nexus/pdfocr/internal/raster"
	"github.com/adverant/nexus/pdfocr/internal/regions"
	"github.com/adverant/nexus/pdfocr/internal/storage"
)

// NewLogger builds the root logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg *config.Config, component string) *logging.Logger {
	return logging.New(component, logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
}

// RegionConfig returns the detector parameters from cfg.
func RegionConfig(cfg *config.Config) regions.Config {
	return regions.Config{
		PaddingX: cfg.RegionPaddingX,
		PaddingY: cfg.RegionPaddingY,
		MinArea:  cfg.RegionMinArea,
	}
}

// NewRasterizer returns the renderer named by RASTERIZER.
func NewRasterizer(cfg *config.Config) (raster.Rasterizer, error) {
	rasterizer, err := raster.New(cfg.Rasterizer, cfg.RasterDPI, cfg.PdftoppmPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create rasterizer: %w", err)
	}
	return rasterizer, nil
}

// NewEngine returns the Tesseract engine.
func NewEngine(cfg *config.Config) ocr.Engine {
	return ocr.NewTesseract(ocr.TesseractConfig{
		TessdataPrefix: cfg.TessdataPrefix,
		Languages:      cfg.OCRLanguages,
	})
}

// NewPipeline builds the extraction pipeline with the configured renderer and Tesseract.
func NewPipeline(cfg *config.Config, logger *logging.Logger) (*extract.Pipeline, error) {
	rasterizer, err := NewRasterizer(cfg)
	if err != nil {
		return nil, err
	}
	return extract.New(extract.Config{
		Rasterizer: rasterizer,
		Engine:     NewEngine(cfg),
		Detector:   regions.NewDetector(RegionConfig(cfg), logger),
		MaxPages:   cfg.MaxPages,
		Logger:     logger,
	})
}

// ProcessingTimeout converts PROCESSING_TIMEOUT (milliseconds) to a duration.
func ProcessingTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.ProcessingTimeout) * time.Millisecond
}

// NewStorage connects the job stores. Requires REDIS_URL.
func NewStorage(cfg *config.Config) (*storage.StorageManager, error) {
	if !cfg.JobsEnabled() {
		return nil, fmt.Errorf("REDIS_URL is required for async jobs")
	}
	return storage.NewStorageManager(storage.ManagerConfig{
		RedisURL:    cfg.RedisURL,
		DatabaseURL: cfg.DatabaseURL,
		ResultTTL:   cfg.ResultTTL,
	})
}

// NewConsumer builds the asynq worker that runs pipeline for queued jobs.
func NewConsumer(cfg *config.Config, pipeline *extract.Pipeline, store *storage.StorageManager, logger *logging.Logger) (*queue.Consumer, error) {
	handler := queue.NewHandler(pipeline, store, ProcessingTimeout(cfg), logger)
	return queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:    cfg.RedisURL,
		QueueName:   cfg.JobQueue,
		Concurrency: cfg.WorkerConcurrency,
		Handler:     handler,
		Logger:      logger,
	})
}

// NewProducer builds the asynq client used by the job API.
func NewProducer(cfg *config.Config) (*queue.Producer, error) {
	return queue.NewProducer(queue.ProducerConfig{
		RedisURL:          cfg.RedisURL,
		QueueName:         cfg.JobQueue,
		ProcessingTimeout: ProcessingTimeout(cfg),
	})
}
