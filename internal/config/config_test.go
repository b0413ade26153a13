package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, DefaultAllowedOrigins, cfg.AllowedOrigins)
	assert.Equal(t, "fitz", cfg.Rasterizer)
	assert.Equal(t, 200, cfg.RasterDPI)
	assert.Equal(t, []string{"eng"}, cfg.OCRLanguages)
	assert.True(t, cfg.ExtractDiagrams)
	assert.Equal(t, 600, cfg.RegionPaddingX)
	assert.Equal(t, 600, cfg.RegionPaddingY)
	assert.Equal(t, 1000.0, cfg.RegionMinArea)
	assert.False(t, cfg.InBandErrors)
	assert.False(t, cfg.JobsEnabled())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RASTERIZER", "poppler")
	t.Setenv("REGION_MIN_AREA", "2500.5")
	t.Setenv("IN_BAND_ERRORS", "true")
	t.Setenv("RESULT_TTL", "90m")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("OCR_LANGUAGES", "eng,deu")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "poppler", cfg.Rasterizer)
	assert.Equal(t, 2500.5, cfg.RegionMinArea)
	assert.True(t, cfg.InBandErrors)
	assert.Equal(t, 90*time.Minute, cfg.ResultTTL)
	assert.Equal(t, []string{"eng", "deu"}, cfg.OCRLanguages)
	assert.True(t, cfg.JobsEnabled())
}

func TestLoadConfigMalformedNumbersFallBack(t *testing.T) {
	t.Setenv("RASTER_DPI", "high")
	t.Setenv("EXTRACT_DIAGRAMS", "maybe")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.RasterDPI)
	assert.True(t, cfg.ExtractDiagrams)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"unknown rasterizer", map[string]string{"RASTERIZER": "ghostscript"}, "RASTERIZER"},
		{"dpi too low", map[string]string{"RASTER_DPI": "10"}, "RASTER_DPI"},
		{"negative padding", map[string]string{"REGION_PADDING_X": "-1"}, "REGION_PADDING"},
		{"negative min area", map[string]string{"REGION_MIN_AREA": "-5"}, "REGION_MIN_AREA"},
		{"database without redis", map[string]string{"DATABASE_URL": "postgres://x"}, "DATABASE_URL"},
		{"zero workers", map[string]string{"WORKER_CONCURRENCY": "0"}, "WORKER_CONCURRENCY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
