package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/pdfocr/internal/config"
	"github.com/adverant/nexus/pdfocr/internal/logging"
)

func testConfig() *config.Config {
	return &config.Config{
		Rasterizer:        "fitz",
		RasterDPI:         200,
		PdftoppmPath:      "pdftoppm",
		MaxPages:          50,
		OCRLanguages:      []string{"eng"},
		RegionPaddingX:    400,
		RegionPaddingY:    500,
		RegionMinArea:     1500,
		JobQueue:          "pdfocr",
		WorkerConcurrency: 2,
		ProcessingTimeout: 90000,
		ResultTTL:         time.Hour,
	}
}

func TestRegionConfig(t *testing.T) {
	rc := RegionConfig(testConfig())
	assert.Equal(t, 400, rc.PaddingX)
	assert.Equal(t, 500, rc.PaddingY)
	assert.Equal(t, 1500.0, rc.MinArea)
}

func TestProcessingTimeout(t *testing.T) {
	assert.Equal(t, 90*time.Second, ProcessingTimeout(testConfig()))
}

func TestNewPipeline(t *testing.T) {
	cfg := testConfig()
	p, err := NewPipeline(cfg, logging.Nop())
	require.NoError(t, err)
	assert.NotNil(t, p)

	cfg.Rasterizer = "ghostscript"
	_, err = NewPipeline(cfg, logging.Nop())
	assert.Error(t, err)
}

func TestJobComponentsNeedRedis(t *testing.T) {
	cfg := testConfig()
	_, err := NewStorage(cfg)
	assert.Error(t, err)

	cfg.RedisURL = "redis://localhost:6379/0"
	producer, err := NewProducer(cfg)
	require.NoError(t, err)
	defer producer.Close()

	p, err := NewPipeline(cfg, logging.Nop())
	require.NoError(t, err)
	consumer, err := NewConsumer(cfg, p, nil, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, consumer.GetStatistics()["concurrency"])
}
