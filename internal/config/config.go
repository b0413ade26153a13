/**
 * Configuration for the pdfocr service
 *
 * Loads configuration from environment variables (optionally seeded from a
 * .env file by the binaries). The resulting Config is passed explicitly to
 * every component; nothing reads the environment after startup.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultAllowedOrigins are the local development front-ends.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://localhost:4173",
	"http://localhost:8080",
}

// Config holds service configuration
type Config struct {
	// HTTP configuration
	HTTPAddr        string
	AllowedOrigins  []string
	MaxUploadSize   int64
	InBandErrors    bool
	ShutdownTimeout time.Duration

	// Rasterization
	Rasterizer   string // "fitz" or "poppler"
	RasterDPI    int
	PdftoppmPath string
	MaxPages     int

	// OCR
	TessdataPrefix string
	OCRLanguages   []string

	// Diagram region detection
	ExtractDiagrams bool
	RegionPaddingX  int
	RegionPaddingY  int
	RegionMinArea   float64

	// Async jobs (enabled when RedisURL is set)
	RedisURL          string
	DatabaseURL       string
	JobQueue          string
	WorkerConcurrency int
	ProcessingTimeout int // milliseconds
	ResultTTL         time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		HTTPAddr:          getEnvOrDefault("HTTP_ADDR", ":8000"),
		AllowedOrigins:    getEnvAsListOrDefault("ALLOWED_ORIGINS", DefaultAllowedOrigins),
		MaxUploadSize:     getEnvAsInt64OrDefault("MAX_UPLOAD_SIZE", 50<<20), // 50MB
		InBandErrors:      getEnvAsBoolOrDefault("IN_BAND_ERRORS", false),
		ShutdownTimeout:   getEnvAsDurationOrDefault("SHUTDOWN_TIMEOUT", 15*time.Second),
		Rasterizer:        getEnvOrDefault("RASTERIZER", "fitz"),
		RasterDPI:         getEnvAsIntOrDefault("RASTER_DPI", 200),
		PdftoppmPath:      getEnvOrDefault("PDFTOPPM_PATH", "pdftoppm"),
		MaxPages:          getEnvAsIntOrDefault("MAX_PAGES", 200),
		TessdataPrefix:    getEnvOrDefault("TESSDATA_PREFIX", ""),
		OCRLanguages:      getEnvAsListOrDefault("OCR_LANGUAGES", []string{"eng"}),
		ExtractDiagrams:   getEnvAsBoolOrDefault("EXTRACT_DIAGRAMS", true),
		RegionPaddingX:    getEnvAsIntOrDefault("REGION_PADDING_X", 600),
		RegionPaddingY:    getEnvAsIntOrDefault("REGION_PADDING_Y", 600),
		RegionMinArea:     getEnvAsFloatOrDefault("REGION_MIN_AREA", 1000),
		RedisURL:          getEnvOrDefault("REDIS_URL", ""),
		DatabaseURL:       getEnvOrDefault("DATABASE_URL", ""),
		JobQueue:          getEnvOrDefault("JOB_QUEUE", "pdfocr"),
		WorkerConcurrency: getEnvAsIntOrDefault("WORKER_CONCURRENCY", 4),
		ProcessingTimeout: getEnvAsIntOrDefault("PROCESSING_TIMEOUT", 300000), // 5 minutes
		ResultTTL:         getEnvAsDurationOrDefault("RESULT_TTL", 24*time.Hour),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         getEnvOrDefault("LOG_FORMAT", "json"),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}

	if c.Rasterizer != "fitz" && c.Rasterizer != "poppler" {
		return fmt.Errorf("RASTERIZER must be fitz or poppler, got %q", c.Rasterizer)
	}

	if c.RasterDPI < 50 || c.RasterDPI > 600 {
		return fmt.Errorf("RASTER_DPI must be between 50 and 600, got %d", c.RasterDPI)
	}

	if c.MaxPages < 1 || c.MaxPages > 5000 {
		return fmt.Errorf("MAX_PAGES must be between 1 and 5000, got %d", c.MaxPages)
	}

	if c.MaxUploadSize < 1024 || c.MaxUploadSize > 1<<30 { // 1KB to 1GB
		return fmt.Errorf("MAX_UPLOAD_SIZE must be between 1KB and 1GB, got %d", c.MaxUploadSize)
	}

	if len(c.OCRLanguages) == 0 {
		return fmt.Errorf("OCR_LANGUAGES must name at least one language")
	}

	if c.RegionPaddingX < 0 || c.RegionPaddingY < 0 {
		return fmt.Errorf("REGION_PADDING_X/Y must not be negative")
	}

	if c.RegionMinArea < 0 {
		return fmt.Errorf("REGION_MIN_AREA must not be negative, got %v", c.RegionMinArea)
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.ProcessingTimeout < 1000 {
		return fmt.Errorf("PROCESSING_TIMEOUT must be at least 1000ms, got %d", c.ProcessingTimeout)
	}

	if c.DatabaseURL != "" && c.RedisURL == "" {
		return fmt.Errorf("DATABASE_URL requires REDIS_URL (the job log is only written by async jobs)")
	}

	return nil
}

// JobsEnabled reports whether the async job API and worker are configured
func (c *Config) JobsEnabled() bool {
	return c.RedisURL != ""
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsInt64OrDefault gets environment variable as int64 or returns default
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsListOrDefault splits a comma separated variable, dropping blanks
func getEnvAsListOrDefault(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return append([]string(nil), defaultValue...)
	}

	var items []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if len(items) == 0 {
		return append([]string(nil), defaultValue...)
	}
	return items
}
