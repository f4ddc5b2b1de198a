package raster

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"map_output.png", PNG},
		{"out/map.JPG", JPEG},
		{"map.jpeg", JPEG},
		{"map.tif", TIFF},
		{"map", PNG},
	}

	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := FormatFromPath("map.bmp")
	assert.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	src.Set(3, 4, color.RGBA{R: 200, G: 10, B: 20, A: 255})

	for _, f := range []Format{PNG, TIFF, JPEG} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, src, f, 90))

			img, _, err := Decode(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, src.Bounds(), img.Bounds())
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, _, err := Decode([]byte("<html>rate limited</html>"))
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", PNG.ContentType())
	assert.Equal(t, "image/jpeg", JPEG.ContentType())
	assert.Equal(t, "image/tiff", TIFF.ContentType())
}
