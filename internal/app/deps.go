package app

import (
	"context"

	"github.com/jaennil/guide_helper/backend/mosaic/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/mosaic/internal/repository/upstream"
	"github.com/jaennil/guide_helper/backend/mosaic/internal/usecase"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/config"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/logger"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/telemetry"
)

type deps struct {
	tiles      *usecase.TileUseCase
	mosaics    *usecase.MosaicUseCase
	closeCache func() error
}

func newDeps(cfg *config.Config, l logger.Logger, observer usecase.Observer) (*deps, error) {
	if err := upstream.ValidateURLTemplate(cfg.Upstream.URLTemplate); err != nil {
		return nil, err
	}

	tileCache, closeCache, err := cache.New(cfg.Cache, l)
	if err != nil {
		return nil, err
	}

	policy, err := usecase.ParseFailurePolicy(cfg.Mosaic.FailurePolicy)
	if err != nil {
		_ = closeCache()
		return nil, err
	}

	client := upstream.NewClient(upstream.Config{
		URLTemplate:   cfg.Upstream.URLTemplate,
		UserAgent:     cfg.Upstream.UserAgent,
		Timeout:       cfg.Upstream.Timeout,
		MaxRetries:    cfg.Upstream.MaxRetries,
		RetryInterval: cfg.Upstream.RetryInterval,
	}, l)

	tiles := usecase.NewTileUseCase(tileCache, client, l)
	mosaics := usecase.NewMosaicUseCase(tiles, usecase.MosaicOptions{
		TileSize:      cfg.Mosaic.TileSize,
		Workers:       cfg.Mosaic.Workers,
		MaxTiles:      cfg.Mosaic.MaxTiles,
		FailurePolicy: policy,
		Observer:      observer,
	}, l)

	return &deps{
		tiles:      tiles,
		mosaics:    mosaics,
		closeCache: closeCache,
	}, nil
}

func (d *deps) close(l logger.Logger) {
	if err := d.closeCache(); err != nil {
		l.Error("failed to close tile cache", "error", err)
	}
}

// initTelemetry installs the tracer provider when enabled. The returned
// function is never nil.
func initTelemetry(cfg config.Telemetry, l logger.Logger) (func(), error) {
	if !cfg.Enabled {
		return func() {}, nil
	}

	shutdown, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
	}, l)
	if err != nil {
		return nil, err
	}
	l.Info("telemetry initialized", "service", cfg.ServiceName)

	return func() {
		if err := shutdown(context.Background()); err != nil {
			l.Error("failed to shutdown telemetry", "error", err)
		}
	}, nil
}
