package cache

import (
	"fmt"

	"github.com/jaennil/guide_helper/backend/mosaic/pkg/config"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/logger"
)

// New builds the backend selected by cfg.Backend. The returned close function
// is never nil.
func New(cfg config.Cache, l logger.Logger) (TileCache, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "filesystem":
		c, err := NewFilesystemCache(cfg.Dir, cfg.Ext)
		if err != nil {
			return nil, nil, err
		}
		l.Info("filesystem cache initialized", "dir", cfg.Dir, "ext", cfg.Ext)
		return c, noop, nil
	case "sqlite":
		c, err := NewSQLiteCache(cfg.SQLitePath, l)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	case "redis":
		c, err := NewRedisCache(RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		l.Info("redis cache initialized", "addr", cfg.Redis.Addr)
		return c, c.Close, nil
	case "memory":
		c, err := NewMemoryCache(cfg.MemorySize)
		if err != nil {
			return nil, nil, err
		}
		l.Info("memory cache initialized", "size", cfg.MemorySize)
		return c, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
