package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/jaennil/guide_helper/backend/mosaic/internal/entity"
	"github.com/jaennil/guide_helper/backend/mosaic/internal/raster"
	"github.com/jaennil/guide_helper/backend/mosaic/internal/usecase"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/config"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/logger"
)

const DefaultOutput = "map_output.png"

type StitchParams struct {
	Top    float64
	Bottom float64
	Left   float64
	Right  float64
	Zoom   int
	Out    string
}

// Stitch assembles the mosaic for p and writes it to p.Out, whose extension
// picks the image format. Nothing is written when assembly fails.
func Stitch(ctx context.Context, cfg *config.Config, l logger.Logger, p StitchParams) (*usecase.Mosaic, error) {
	if p.Out == "" {
		p.Out = DefaultOutput
	}
	format, err := raster.FormatFromPath(p.Out)
	if err != nil {
		return nil, &entity.InputError{Field: "out", Reason: err.Error()}
	}

	d, err := newDeps(cfg, l, progressObserver(l))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer d.close(l)

	topLeft := entity.GeoPoint{Lat: p.Top, Lon: p.Left}
	bottomRight := entity.GeoPoint{Lat: p.Bottom, Lon: p.Right}

	m, err := d.mosaics.Assemble(ctx, topLeft, bottomRight, p.Zoom)
	if err != nil {
		return nil, err
	}

	size, err := writeImage(p.Out, m, format, cfg.Mosaic.JPEGQuality)
	if err != nil {
		return nil, err
	}

	l.Info("mosaic written",
		"path", p.Out,
		"format", format,
		"width", m.Image.Bounds().Dx(),
		"height", m.Image.Bounds().Dy(),
		"size", humanize.Bytes(uint64(size)),
		"failed_tiles", len(m.Failed),
	)

	return m, nil
}

// writeImage encodes next to path and renames into place, so a failed
// encode never leaves a truncated file behind.
func writeImage(path string, m *usecase.Mosaic, format raster.Format, quality int) (int64, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".mosaic-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := raster.Encode(tmp, m.Image, format, quality); err != nil {
		tmp.Close()
		return 0, err
	}

	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to stat output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return 0, fmt.Errorf("failed to chmod output file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return info.Size(), nil
}

func progressObserver(l logger.Logger) usecase.Observer {
	return func(e usecase.Event) {
		switch e.Kind {
		case usecase.EventRectComputed:
			l.Info("downloading tiles", "rect", e.Rect.String(), "tiles", humanize.Comma(int64(e.Total)))
		case usecase.EventTileFetched:
			l.Debug("tile fetched", "tile", e.Tile.String(), "progress", fmt.Sprintf("%d/%d", e.Done, e.Total))
		case usecase.EventTileFailed:
			l.Warn("tile skipped", "tile", e.Tile.String(), "progress", fmt.Sprintf("%d/%d", e.Done, e.Total), "error", e.Err)
		case usecase.EventAssemblyComplete:
			l.Info("all tiles placed", "tiles", e.Total)
		}
	}
}
