package entity

import (
	"fmt"

	"github.com/paulmach/orb"
)

// GeoPoint is a WGS84 coordinate in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p GeoPoint) Point() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// TileIndex addresses one Slippy Map tile. X grows eastward, Y grows southward.
type TileIndex struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (t TileIndex) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// TileRect is an inclusive rectangle of tiles at one zoom level.
// XMin <= XMax and YMin <= YMax always hold.
type TileRect struct {
	XMin int `json:"x_min"`
	XMax int `json:"x_max"`
	YMin int `json:"y_min"`
	YMax int `json:"y_max"`
	Z    int `json:"z"`
}

func (r TileRect) Cols() int {
	return r.XMax - r.XMin + 1
}

func (r TileRect) Rows() int {
	return r.YMax - r.YMin + 1
}

func (r TileRect) Count() int {
	return r.Cols() * r.Rows()
}

func (r TileRect) Contains(t TileIndex) bool {
	return t.Z == r.Z &&
		t.X >= r.XMin && t.X <= r.XMax &&
		t.Y >= r.YMin && t.Y <= r.YMax
}

// Tiles lists every tile of the rectangle in row-major order.
func (r TileRect) Tiles() []TileIndex {
	tiles := make([]TileIndex, 0, r.Count())
	for y := r.YMin; y <= r.YMax; y++ {
		for x := r.XMin; x <= r.XMax; x++ {
			tiles = append(tiles, TileIndex{X: x, Y: y, Z: r.Z})
		}
	}
	return tiles
}

func (r TileRect) String() string {
	return fmt.Sprintf("x:%d-%d y:%d-%d z:%d", r.XMin, r.XMax, r.YMin, r.YMax, r.Z)
}
