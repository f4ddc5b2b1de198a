package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sort"
	"sync"
	"time"

	"github.com/jaennil/guide_helper/backend/mosaic/internal/entity"
	"github.com/jaennil/guide_helper/backend/mosaic/internal/slippy"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/logger"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/metrics"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/telemetry"
	"github.com/paulmach/orb"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

type FailurePolicy string

const (
	// BestEffort leaves failed cells blank and reports them in Mosaic.Failed.
	// A mosaic in which every cell failed is still an AssemblyError.
	BestEffort FailurePolicy = "best-effort"
	// FailFast aborts the assembly on the first failed tile.
	FailFast FailurePolicy = "fail-fast"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(s); p {
	case BestEffort, FailFast:
		return p, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q", s)
	}
}

type EventKind string

const (
	EventRectComputed     EventKind = "rect_computed"
	EventTileFetched      EventKind = "tile_fetched"
	EventTileFailed       EventKind = "tile_failed"
	EventAssemblyComplete EventKind = "assembly_complete"
)

// Event reports assembly progress. Done and Total count cells.
type Event struct {
	Kind  EventKind
	Rect  entity.TileRect
	Tile  entity.TileIndex
	Err   error
	Done  int
	Total int
}

// Observer receives progress events. Calls are serialized.
type Observer func(Event)

// TileImageSource returns decoded tiles.
type TileImageSource interface {
	GetTileImage(ctx context.Context, t entity.TileIndex) (image.Image, error)
}

type MosaicOptions struct {
	TileSize      int
	Workers       int
	MaxTiles      int
	FailurePolicy FailurePolicy
	Observer      Observer
}

// Mosaic is a finished assembly. Image is not modified after Assemble returns.
type Mosaic struct {
	Rect   entity.TileRect
	Image  *image.RGBA
	Bound  orb.Bound
	Failed []*entity.FetchError
}

type MosaicUseCase struct {
	tiles  TileImageSource
	opts   MosaicOptions
	logger logger.Logger
}

func NewMosaicUseCase(tiles TileImageSource, opts MosaicOptions, l logger.Logger) *MosaicUseCase {
	if opts.TileSize <= 0 {
		opts.TileSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.MaxTiles <= 0 {
		opts.MaxTiles = 1024
	}
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = BestEffort
	}

	return &MosaicUseCase{
		tiles:  tiles,
		opts:   opts,
		logger: l,
	}
}

// Plan computes the tile rectangle for a bounding box without any I/O.
func (uc *MosaicUseCase) Plan(a, b entity.GeoPoint, zoom int) (entity.TileRect, error) {
	rect, err := slippy.ProjectRect(a, b, zoom)
	if err != nil {
		return entity.TileRect{}, err
	}

	last := slippy.GridSize(zoom) - 1
	if rect.XMin < 0 || rect.XMax > last {
		return entity.TileRect{}, &entity.InputError{
			Field:  "longitude",
			Reason: fmt.Sprintf("tile columns %d-%d leave the grid 0-%d; wrapping across the antimeridian is unsupported", rect.XMin, rect.XMax, last),
		}
	}
	if rect.YMin < 0 || rect.YMax > last {
		return entity.TileRect{}, &entity.InputError{
			Field:  "latitude",
			Reason: fmt.Sprintf("tile rows %d-%d leave the grid 0-%d; Web Mercator ends at ±85.0511°", rect.YMin, rect.YMax, last),
		}
	}
	if rect.Count() > uc.opts.MaxTiles {
		return entity.TileRect{}, &entity.InputError{
			Reason: fmt.Sprintf("%d tiles requested, limit is %d; lower the zoom or shrink the box", rect.Count(), uc.opts.MaxTiles),
		}
	}

	return rect, nil
}

// Assemble fetches every tile covering the box spanned by a and b and
// composites them into one raster. Corner order does not matter.
//
// Input problems fail with *entity.InputError before any tile is requested.
// Fetch failures are handled per the configured FailurePolicy; a cancelled
// context returns ctx.Err() and no mosaic.
func (uc *MosaicUseCase) Assemble(ctx context.Context, a, b entity.GeoPoint, zoom int) (*Mosaic, error) {
	start := time.Now()

	ctx, span := telemetry.Tracer().Start(ctx, "MosaicUseCase.Assemble")
	defer span.End()

	rect, err := uc.Plan(a, b, zoom)
	if err != nil {
		metrics.MosaicAssemblies.WithLabelValues("invalid").Inc()
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("mosaic.zoom", rect.Z),
		attribute.Int("mosaic.tiles", rect.Count()),
	)
	uc.logger.Info("tile rectangle computed",
		"x_min", rect.XMin, "x_max", rect.XMax,
		"y_min", rect.YMin, "y_max", rect.YMax,
		"zoom", rect.Z, "tiles", rect.Count(),
	)
	uc.emit(Event{Kind: EventRectComputed, Rect: rect, Total: rect.Count()})

	size := uc.opts.TileSize
	canvas := image.NewRGBA(image.Rect(0, 0, rect.Cols()*size, rect.Rows()*size))

	failed, err := uc.fill(ctx, canvas, rect)
	if err == nil && len(failed) == rect.Count() {
		err = &entity.AssemblyError{Failures: failed}
	}
	if err != nil {
		outcome := "failed"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = "cancelled"
		}
		metrics.MosaicAssemblies.WithLabelValues(outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		uc.logger.Error("mosaic assembly failed", "rect", rect.String(), "error", err)
		return nil, err
	}

	outcome := "ok"
	if len(failed) > 0 {
		outcome = "partial"
	}
	metrics.MosaicAssemblies.WithLabelValues(outcome).Inc()
	metrics.MosaicTiles.Observe(float64(rect.Count()))
	metrics.MosaicDuration.Observe(time.Since(start).Seconds())

	uc.logger.Info("mosaic assembled",
		"rect", rect.String(),
		"width", canvas.Bounds().Dx(),
		"height", canvas.Bounds().Dy(),
		"failed", len(failed),
		"duration", time.Since(start),
	)
	uc.emit(Event{Kind: EventAssemblyComplete, Rect: rect, Done: rect.Count(), Total: rect.Count()})

	return &Mosaic{
		Rect:   rect,
		Image:  canvas,
		Bound:  slippy.RectBound(rect),
		Failed: failed,
	}, nil
}

// fill runs the worker pool. Every cell owns a disjoint region of canvas,
// so pasting needs no lock.
func (uc *MosaicUseCase) fill(ctx context.Context, canvas *image.RGBA, rect entity.TileRect) ([]*entity.FetchError, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.opts.Workers)

	var (
		mu     sync.Mutex
		failed []*entity.FetchError
		done   int
	)
	total := rect.Count()

	for _, t := range rect.Tiles() {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			img, err := uc.tiles.GetTileImage(gctx, t)
			if err != nil {
				fe, ok := entity.AsFetchError(err)
				if !ok {
					return err
				}

				uc.logger.Warn("tile fetch failed", "tile", t.String(), "kind", fe.Kind, "status", fe.StatusCode, "error", fe.Err)

				mu.Lock()
				failed = append(failed, fe)
				done++
				uc.emit(Event{Kind: EventTileFailed, Rect: rect, Tile: t, Err: fe, Done: done, Total: total})
				mu.Unlock()

				if uc.opts.FailurePolicy == FailFast {
					return &entity.AssemblyError{Failures: []*entity.FetchError{fe}}
				}
				return nil
			}

			paste(canvas, img, rect, t, uc.opts.TileSize)

			mu.Lock()
			done++
			uc.emit(Event{Kind: EventTileFetched, Rect: rect, Tile: t, Done: done, Total: total})
			mu.Unlock()

			uc.logger.Debug("tile placed", "tile", t.String())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(failed, func(i, j int) bool {
		if failed[i].Tile.Y != failed[j].Tile.Y {
			return failed[i].Tile.Y < failed[j].Tile.Y
		}
		return failed[i].Tile.X < failed[j].Tile.X
	})

	return failed, nil
}

func paste(canvas *image.RGBA, tile image.Image, rect entity.TileRect, t entity.TileIndex, size int) {
	offset := image.Pt((t.X-rect.XMin)*size, (t.Y-rect.YMin)*size)
	cell := image.Rectangle{Min: offset, Max: offset.Add(image.Pt(size, size))}
	draw.Draw(canvas, cell, tile, tile.Bounds().Min, draw.Src)
}

func (uc *MosaicUseCase) emit(e Event) {
	if uc.opts.Observer != nil {
		uc.opts.Observer(e)
	}
}
