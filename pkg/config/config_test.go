package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTP.Server.Port)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "filesystem", cfg.Cache.Backend)
	assert.Equal(t, "tiles", cfg.Cache.Dir)
	assert.Equal(t, "png", cfg.Cache.Ext)
	assert.Equal(t, DefaultTileURLTemplate, cfg.Upstream.URLTemplate)
	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, uint(3), cfg.Upstream.MaxRetries)
	assert.Equal(t, 256, cfg.Mosaic.TileSize)
	assert.Equal(t, 8, cfg.Mosaic.Workers)
	assert.Equal(t, "best-effort", cfg.Mosaic.FailurePolicy)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("CACHE_REDIS_ADDR", "redis:6379")
	t.Setenv("CACHE_REDIS_DB", "3")
	t.Setenv("MOSAIC_WORKERS", "2")
	t.Setenv("MOSAIC_FAILURE_POLICY", "fail-fast")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 3, cfg.Cache.Redis.DB)
	assert.Equal(t, 2, cfg.Mosaic.Workers)
	assert.Equal(t, "fail-fast", cfg.Mosaic.FailurePolicy)
}

func TestParseRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown backend", "CACHE_BACKEND", "s3"},
		{"unknown policy", "MOSAIC_FAILURE_POLICY", "retry-forever"},
		{"zero workers", "MOSAIC_WORKERS", "0"},
		{"jpeg quality", "MOSAIC_JPEG_QUALITY", "101"},
		{"not a duration", "UPSTREAM_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Parse()
			assert.Error(t, err)
		})
	}
}
