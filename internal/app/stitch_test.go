package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jaennil/guide_helper/backend/mosaic/internal/entity"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/config"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func tileBody(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 256, 256))
	img.Set(10, 10, color.RGBA{G: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testConfig(t *testing.T, upstreamURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Cache: config.Cache{
			Backend: "filesystem",
			Dir:     t.TempDir(),
			Ext:     "png",
		},
		Upstream: config.Upstream{
			URLTemplate:   upstreamURL + "/vt?x={x}&y={y}&z={z}",
			Timeout:       5 * time.Second,
			UserAgent:     "mosaic-test",
			MaxRetries:    1,
			RetryInterval: time.Millisecond,
		},
		Mosaic: config.Mosaic{
			TileSize:      256,
			Workers:       4,
			MaxTiles:      1024,
			FailurePolicy: "best-effort",
			JPEGQuality:   90,
		},
	}
}

func TestStitchWritesMosaic(t *testing.T) {
	body := tileBody(t)
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "mosaic-test", r.UserAgent())
		w.Write(body)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	out := filepath.Join(t.TempDir(), "map_output.png")

	m, err := Stitch(context.Background(), cfg, logger.NewNoOp(), StitchParams{
		Top: 40.7128, Left: -74.0100, Bottom: 40.7000, Right: -74.0000, Zoom: 15, Out: out,
	})
	require.NoError(t, err)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	written, err := png.DecodeConfig(f)
	require.NoError(t, err)

	assert.Equal(t, m.Rect.Cols()*256, written.Width)
	assert.Equal(t, m.Rect.Rows()*256, written.Height)
	assert.Equal(t, int32(m.Rect.Count()), requests.Load())

	cached, err := filepath.Glob(filepath.Join(cfg.Cache.Dir, "15_*_*.png"))
	require.NoError(t, err)
	assert.Len(t, cached, m.Rect.Count())
}

func TestStitchTIFFOutput(t *testing.T) {
	body := tileBody(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "world.tiff")
	_, err := Stitch(context.Background(), testConfig(t, srv.URL), logger.NewNoOp(), StitchParams{
		Top: 60, Left: -100, Bottom: -60, Right: 100, Zoom: 1, Out: out,
	})
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	written, err := tiff.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 512, written.Width)
	assert.Equal(t, 512, written.Height)
}

func TestStitchInvalidInputWritesNothing(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer srv.Close()

	tests := []struct {
		name string
		p    StitchParams
	}{
		{"pole", StitchParams{Top: 90, Left: 0, Bottom: 10, Right: 10, Zoom: 3}},
		{"zoom", StitchParams{Top: 10, Left: 0, Bottom: 0, Right: 10, Zoom: 31}},
		{"format", StitchParams{Top: 10, Left: 0, Bottom: 0, Right: 10, Zoom: 3, Out: "map.bmp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.p.Out == "" {
				tt.p.Out = "map.png"
			}
			tt.p.Out = filepath.Join(dir, tt.p.Out)

			_, err := Stitch(context.Background(), testConfig(t, srv.URL), logger.NewNoOp(), tt.p)

			var inputErr *entity.InputError
			require.True(t, errors.As(err, &inputErr), "got %v", err)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}

	assert.Zero(t, requests.Load())
}

func TestStitchRejectsMalformedURLTemplate(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Upstream.URLTemplate = "tiles/{z}/{x}/{y}.png"
	dir := t.TempDir()

	_, err := Stitch(context.Background(), cfg, logger.NewNoOp(), StitchParams{
		Top: 10, Left: 0, Bottom: 0, Right: 10, Zoom: 3, Out: filepath.Join(dir, "map.png"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an absolute http(s) url")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStitchFailFastWritesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Mosaic.FailurePolicy = "fail-fast"
	dir := t.TempDir()

	_, err := Stitch(context.Background(), cfg, logger.NewNoOp(), StitchParams{
		Top: 10, Left: 0, Bottom: 0, Right: 10, Zoom: 3, Out: filepath.Join(dir, "map.png"),
	})

	var assemblyErr *entity.AssemblyError
	require.True(t, errors.As(err, &assemblyErr), "got %v", err)
	assert.Equal(t, entity.FetchServerError, assemblyErr.Failures[0].Kind)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
