package usecase

import (
	"context"
	"errors"
	"image"

	"github.com/jaennil/guide_helper/backend/mosaic/internal/entity"
	"github.com/jaennil/guide_helper/backend/mosaic/internal/raster"
	"github.com/jaennil/guide_helper/backend/mosaic/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/logger"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/metrics"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

// TileSource downloads raw tile bodies.
type TileSource interface {
	Fetch(ctx context.Context, t entity.TileIndex) ([]byte, error)
}

type tile struct {
	data []byte
	img  image.Image
}

type TileUseCase struct {
	cache    cache.TileCache
	upstream TileSource
	inflight singleflight.Group
	logger   logger.Logger
}

func NewTileUseCase(c cache.TileCache, upstream TileSource, l logger.Logger) *TileUseCase {
	return &TileUseCase{
		cache:    c,
		upstream: upstream,
		logger:   l,
	}
}

// GetTile returns the raw body of tile t, from the cache when present.
func (uc *TileUseCase) GetTile(ctx context.Context, t entity.TileIndex) ([]byte, error) {
	res, err := uc.load(ctx, t)
	if err != nil {
		return nil, err
	}
	return res.data, nil
}

// GetTileImage returns the decoded tile t. The image is shared and must not be mutated.
func (uc *TileUseCase) GetTileImage(ctx context.Context, t entity.TileIndex) (image.Image, error) {
	res, err := uc.load(ctx, t)
	if err != nil {
		return nil, err
	}
	return res.img, nil
}

// load collapses concurrent requests for the same tile into one cache lookup
// and at most one upstream fetch.
func (uc *TileUseCase) load(ctx context.Context, t entity.TileIndex) (*tile, error) {
	metrics.TileRequests.Inc()

	key := cache.KeyFor(t).String()
	for attempt := 0; ; attempt++ {
		v, err, shared := uc.inflight.Do(key, func() (any, error) {
			return uc.loadOnce(ctx, t)
		})
		if err != nil {
			// The leader's context was cancelled, not ours: try again as leader.
			if shared && attempt < 3 && ctx.Err() == nil && isContextErr(err) {
				continue
			}
			return nil, err
		}
		return v.(*tile), nil
	}
}

func (uc *TileUseCase) loadOnce(ctx context.Context, t entity.TileIndex) (*tile, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "TileUseCase.load")
	defer span.End()
	span.SetAttributes(
		attribute.Int("tile.z", t.Z),
		attribute.Int("tile.x", t.X),
		attribute.Int("tile.y", t.Y),
	)

	key := cache.KeyFor(t)

	data, exists, err := uc.cache.Get(ctx, key)
	if err != nil {
		uc.logger.Warn("failed to check cache, will fetch from upstream", "tile", t.String(), "error", err)
	}
	if exists {
		metrics.TileCacheHits.Inc()
		span.SetAttributes(attribute.Bool("tile.cache_hit", true))

		img, _, err := raster.Decode(data)
		if err != nil {
			uc.logger.Error("cached tile is not decodable", "tile", t.String(), "error", err)
			span.SetStatus(codes.Error, err.Error())
			return nil, &entity.FetchError{Tile: t, Kind: entity.FetchDecodeError, Err: err}
		}

		uc.logger.Debug("cache hit", "tile", t.String(), "size", len(data))
		return &tile{data: data, img: img}, nil
	}

	metrics.TileCacheMisses.Inc()
	span.SetAttributes(attribute.Bool("tile.cache_hit", false))

	data, err = uc.upstream.Fetch(ctx, t)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	img, format, err := raster.Decode(data)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues(string(entity.FetchDecodeError)).Inc()
		span.SetStatus(codes.Error, err.Error())
		return nil, &entity.FetchError{Tile: t, Kind: entity.FetchDecodeError, Err: err}
	}

	if err := uc.cache.Set(ctx, key, data); err != nil {
		uc.logger.Warn("failed to store tile in cache", "tile", t.String(), "error", err)
	} else {
		metrics.TileCacheStores.Inc()
		uc.logger.Debug("stored tile in cache", "tile", t.String(), "format", format, "size", len(data))
	}

	return &tile{data: data, img: img}, nil
}

func isContextErr(err error) bool {
	if _, ok := entity.AsFetchError(err); ok {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
