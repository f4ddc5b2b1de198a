// Package slippy maps WGS84 coordinates onto the Web Mercator (Slippy Map) tile grid.
package slippy

import (
	"fmt"
	"math"

	"github.com/jaennil/guide_helper/backend/mosaic/internal/entity"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// MaxZoom keeps 1<<zoom inside int range on every platform.
const MaxZoom = 30

// Project returns the tile containing p at the given zoom.
//
// Coordinates that Web Mercator cannot represent (poles, non-finite values)
// fail with *entity.InputError. Longitude 180 maps to the last column.
// Latitudes between ~85.0511 and 90 are still projected and yield rows
// outside [0, 2^zoom-1]; callers must check GridSize.
func Project(p entity.GeoPoint, zoom int) (entity.TileIndex, error) {
	if err := ValidatePoint(p); err != nil {
		return entity.TileIndex{}, err
	}
	if err := ValidateZoom(zoom); err != nil {
		return entity.TileIndex{}, err
	}

	n := math.Exp2(float64(zoom))
	x := math.Floor((p.Lon + 180.0) / 360.0 * n)
	// The east edge belongs to the last column.
	if x >= n {
		x = n - 1
	}

	latRad := p.Lat * math.Pi / 180.0
	y := math.Floor((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n)
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return entity.TileIndex{}, &entity.InputError{
			Field:  "latitude",
			Reason: fmt.Sprintf("%v has no Web Mercator row", p.Lat),
		}
	}

	return entity.TileIndex{X: int(x), Y: int(y), Z: zoom}, nil
}

func ValidatePoint(p entity.GeoPoint) error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) {
		return &entity.InputError{Field: "latitude", Reason: "must be a finite number"}
	}
	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return &entity.InputError{Field: "longitude", Reason: "must be a finite number"}
	}
	if math.Abs(p.Lat) >= 90 {
		return &entity.InputError{Field: "latitude", Reason: fmt.Sprintf("%v is outside (-90, 90)", p.Lat)}
	}
	if math.Abs(p.Lon) > 180 {
		return &entity.InputError{Field: "longitude", Reason: fmt.Sprintf("%v is outside [-180, 180]", p.Lon)}
	}
	return nil
}

func ValidateZoom(zoom int) error {
	if zoom < 0 || zoom > MaxZoom {
		return &entity.InputError{Field: "zoom", Reason: fmt.Sprintf("%d is outside [0, %d]", zoom, MaxZoom)}
	}
	return nil
}

// GridSize is the number of tiles along one axis at zoom.
func GridSize(zoom int) int {
	return 1 << zoom
}

// InGrid reports whether t addresses an existing tile.
func InGrid(t entity.TileIndex) bool {
	n := GridSize(t.Z)
	return t.X >= 0 && t.X < n && t.Y >= 0 && t.Y < n
}

// NewTileRect builds the rectangle spanned by two tiles in any corner order.
func NewTileRect(a, b entity.TileIndex) (entity.TileRect, error) {
	if a.Z != b.Z {
		return entity.TileRect{}, &entity.InputError{
			Field:  "zoom",
			Reason: fmt.Sprintf("corners at different zoom levels %d and %d", a.Z, b.Z),
		}
	}

	return entity.TileRect{
		XMin: min(a.X, b.X),
		XMax: max(a.X, b.X),
		YMin: min(a.Y, b.Y),
		YMax: max(a.Y, b.Y),
		Z:    a.Z,
	}, nil
}

// ProjectRect projects two opposite corners of a bounding box and normalizes
// the result, so which corner is passed first does not matter.
func ProjectRect(a, b entity.GeoPoint, zoom int) (entity.TileRect, error) {
	ta, err := Project(a, zoom)
	if err != nil {
		return entity.TileRect{}, err
	}
	tb, err := Project(b, zoom)
	if err != nil {
		return entity.TileRect{}, err
	}
	return NewTileRect(ta, tb)
}

// TileBound is the geographic extent of one in-grid tile.
func TileBound(t entity.TileIndex) orb.Bound {
	return maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Z)).Bound()
}

// RectBound is the geographic extent covered by an in-grid rectangle.
func RectBound(r entity.TileRect) orb.Bound {
	topLeft := TileBound(entity.TileIndex{X: r.XMin, Y: r.YMin, Z: r.Z})
	bottomRight := TileBound(entity.TileIndex{X: r.XMax, Y: r.YMax, Z: r.Z})
	return topLeft.Union(bottomRight)
}
