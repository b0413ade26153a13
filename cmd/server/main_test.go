package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/pdfocr/internal/config"
	"github.com/adverant/nexus/pdfocr/internal/logging"
)

func TestRunReturnsSetupErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
		want string
	}{
		{
			name: "unknown rasterizer",
			cfg:  &config.Config{Rasterizer: "ghostscript"},
			want: "failed to initialize extraction pipeline",
		},
		{
			name: "unreachable redis",
			cfg:  &config.Config{Rasterizer: "poppler", RedisURL: "redis://127.0.0.1:1/0"},
			want: "failed to initialize storage manager",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(tt.cfg, logging.Nop())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
