package cache

import (
	"context"
	"fmt"

	"github.com/jaennil/guide_helper/backend/mosaic/internal/entity"
)

type TileCacheKey struct {
	X int
	Y int
	Z int
}

func KeyFor(t entity.TileIndex) TileCacheKey {
	return TileCacheKey{X: t.X, Y: t.Y, Z: t.Z}
}

func (k TileCacheKey) String() string {
	return fmt.Sprintf("%d_%d_%d", k.Z, k.X, k.Y)
}

type TileCacheValue []byte

// TileCache stores raw tile bodies. Entries are immutable: Set on an
// existing key keeps the first value and reports no error.
type TileCache interface {
	Get(context.Context, TileCacheKey) (TileCacheValue, bool, error)
	Set(context.Context, TileCacheKey, TileCacheValue) error
}
