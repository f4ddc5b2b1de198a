package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	v1 "github.com/jaennil/guide_helper/backend/mosaic/internal/infrastructure/http/v1"
	"github.com/jaennil/guide_helper/backend/mosaic/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/config"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/http_server"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/logger"
)

// RunServer serves the HTTP API until SIGINT or SIGTERM.
func RunServer(cfg *config.Config, l logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := initTelemetry(cfg.Telemetry, l)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer shutdownTelemetry()

	d, err := newDeps(cfg, l, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer d.close(l)

	gin.SetMode(gin.ReleaseMode)

	h := handler.NewHandler(validator.New(), d.tiles, d.mosaics, cfg.Mosaic.JPEGQuality)
	router := v1.NewRouter(h, l, cfg.Telemetry.Enabled)

	httpServer := http_server.NewServer(cfg.HTTP.Server, router)
	httpServer.BaseContext = func(net.Listener) context.Context {
		return logger.WithLogger(context.Background(), l)
	}

	serverErr := make(chan error, 1)
	go func() {
		l.Info("starting http server...", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		l.Info("received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	l.Info("shutting down http server...", "address", httpServer.Addr)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Error("http server shutdown failed", "error", err)
		return err
	}

	l.Info("application shutdown completed")
	return nil
}
