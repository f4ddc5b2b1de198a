package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jaennil/guide_helper/backend/mosaic/pkg/config"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]TileCache {
	t.Helper()

	fsCache, err := NewFilesystemCache(t.TempDir(), "png")
	require.NoError(t, err)

	memCache, err := NewMemoryCache(16)
	require.NoError(t, err)

	sqliteCache, err := NewSQLiteCache(filepath.Join(t.TempDir(), "tiles.db"), logger.NewNoOp())
	require.NoError(t, err)
	t.Cleanup(func() { sqliteCache.Close() })

	return map[string]TileCache{
		"filesystem": fsCache,
		"memory":     memCache,
		"sqlite":     sqliteCache,
	}
}

func TestTileCacheMissThenHit(t *testing.T) {
	ctx := context.Background()
	key := TileCacheKey{X: 9647, Y: 12318, Z: 15}

	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, exists, err := c.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, exists)

			require.NoError(t, c.Set(ctx, key, TileCacheValue("tile-bytes")))

			v, exists, err := c.Get(ctx, key)
			require.NoError(t, err)
			assert.True(t, exists)
			assert.Equal(t, TileCacheValue("tile-bytes"), v)
		})
	}
}

func TestTileCacheFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	key := TileCacheKey{X: 1, Y: 2, Z: 3}

	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Set(ctx, key, TileCacheValue("first")))
			require.NoError(t, c.Set(ctx, key, TileCacheValue("second")))

			v, exists, err := c.Get(ctx, key)
			require.NoError(t, err)
			assert.True(t, exists)
			assert.Equal(t, TileCacheValue("first"), v)
		})
	}
}

func TestTileCacheConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	key := TileCacheKey{X: 4, Y: 5, Z: 6}
	body := TileCacheValue("same content for every writer")

	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.NoError(t, c.Set(ctx, key, body))
					_, _, err := c.Get(ctx, key)
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			v, exists, err := c.Get(ctx, key)
			require.NoError(t, err)
			assert.True(t, exists)
			assert.Equal(t, body, v)
		})
	}
}

func TestFilesystemCacheLayout(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFilesystemCache(dir, "png")
	require.NoError(t, err)

	key := TileCacheKey{X: 301, Y: 385, Z: 10}
	require.NoError(t, c.Set(context.Background(), key, TileCacheValue("x")))

	path := filepath.Join(dir, "10_301_385.png")
	assert.Equal(t, path, c.Path(key))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "10_301_385.png", entries[0].Name())
}

func TestFilesystemCacheTrustsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2_1_1.png"), []byte("seeded"), 0644))

	c, err := NewFilesystemCache(dir, "png")
	require.NoError(t, err)

	v, exists, err := c.Get(context.Background(), TileCacheKey{X: 1, Y: 1, Z: 2})
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, TileCacheValue("seeded"), v)
}

func TestMemoryCacheEvicts(t *testing.T) {
	c, err := NewMemoryCache(2)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(ctx, TileCacheKey{X: i}, TileCacheValue("v")))
	}

	assert.Equal(t, 2, c.Len())
	_, exists, _ := c.Get(ctx, TileCacheKey{X: 0})
	assert.False(t, exists)
}

func TestRedisKey(t *testing.T) {
	c := &RedisCache{}
	assert.Equal(t, "tile:15:9647:12318", c.keyFor(TileCacheKey{X: 9647, Y: 12318, Z: 15}))
}

func TestNewSelectsBackend(t *testing.T) {
	l := logger.NewNoOp()

	c, closeFn, err := New(config.Cache{Backend: "memory", MemorySize: 4}, l)
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)
	assert.NoError(t, closeFn())

	c, closeFn, err = New(config.Cache{Backend: "filesystem", Dir: t.TempDir(), Ext: "png"}, l)
	require.NoError(t, err)
	assert.IsType(t, &FilesystemCache{}, c)
	assert.NoError(t, closeFn())

	_, _, err = New(config.Cache{Backend: "s3"}, l)
	assert.Error(t, err)
}
