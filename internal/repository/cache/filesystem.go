package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FilesystemCache keeps one file per tile at {dir}/{z}_{x}_{y}.{ext}.
// The presence of the file is the only hit signal.
type FilesystemCache struct {
	dir string
	ext string
}

var _ TileCache = (*FilesystemCache)(nil)

func NewFilesystemCache(dir, ext string) (*FilesystemCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &FilesystemCache{dir: dir, ext: ext}, nil
}

func (c *FilesystemCache) Get(_ context.Context, k TileCacheKey) (TileCacheValue, bool, error) {
	content, err := os.ReadFile(c.Path(k))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return content, true, nil
}

// Set publishes the tile atomically: the body goes to a temp file which is
// then hard-linked into place. Linking fails if the file already exists, so
// the first writer wins and readers never observe a partial file.
func (c *FilesystemCache) Set(_ context.Context, k TileCacheKey, v TileCacheValue) error {
	tmp, err := os.CreateTemp(c.dir, ".tile-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(v); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	err = os.Link(tmp.Name(), c.Path(k))
	if err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("failed to publish tile: %w", err)
	}

	return nil
}

func (c *FilesystemCache) Path(k TileCacheKey) string {
	return filepath.Join(c.dir, fmt.Sprintf("%d_%d_%d.%s", k.Z, k.X, k.Y, c.ext))
}
