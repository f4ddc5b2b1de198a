package usecase

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"github.com/jaennil/guide_helper/backend/mosaic/internal/entity"
	"github.com/stretchr/testify/require"
)

func colorFor(t entity.TileIndex) color.RGBA {
	return color.RGBA{R: uint8(40*t.X + 10), G: uint8(40*t.Y + 10), B: uint8(t.Z + 1), A: 255}
}

func solidTile(size int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func pngTile(t *testing.T, size int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidTile(size, c)))
	return buf.Bytes()
}

// regionIs reports whether every pixel of r in img equals c.
func regionIs(img *image.RGBA, r image.Rectangle, c color.RGBA) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y) != c {
				return false
			}
		}
	}
	return true
}

func cell(col, row, size int) image.Rectangle {
	return image.Rect(col*size, row*size, (col+1)*size, (row+1)*size)
}
