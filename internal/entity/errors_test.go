package entity

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchErrorMessage(t *testing.T) {
	err := &FetchError{Tile: TileIndex{X: 3, Y: 4, Z: 5}, Kind: FetchServerError, StatusCode: 503}
	assert.Equal(t, "fetch tile 5/3/4: server_error (HTTP 503)", err.Error())

	err = &FetchError{Tile: TileIndex{X: 1, Y: 2, Z: 3}, Kind: FetchTransportError, Err: io.ErrUnexpectedEOF}
	assert.Equal(t, "fetch tile 3/1/2: transport_error: unexpected EOF", err.Error())
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestAssemblyErrorUnwrapsFailures(t *testing.T) {
	inner := &FetchError{Tile: TileIndex{X: 1, Y: 1, Z: 2}, Kind: FetchNotFound, StatusCode: 404, Err: io.EOF}
	err := error(&AssemblyError{Failures: []*FetchError{inner}})

	fe, ok := AsFetchError(err)
	require.True(t, ok)
	assert.Same(t, inner, fe)
	assert.True(t, errors.Is(err, io.EOF))

	multi := &AssemblyError{Failures: []*FetchError{inner, {Tile: TileIndex{X: 2, Y: 1, Z: 2}, Kind: FetchNotFound}}}
	assert.Equal(t, "assemble mosaic: 2 tiles failed: 2/1/1, 2/2/1", multi.Error())
}

func TestTileRect(t *testing.T) {
	r := TileRect{XMin: 2, XMax: 4, YMin: 7, YMax: 8, Z: 5}

	assert.Equal(t, 3, r.Cols())
	assert.Equal(t, 2, r.Rows())
	assert.Equal(t, 6, r.Count())
	assert.True(t, r.Contains(TileIndex{X: 3, Y: 8, Z: 5}))
	assert.False(t, r.Contains(TileIndex{X: 3, Y: 8, Z: 6}))
	assert.False(t, r.Contains(TileIndex{X: 5, Y: 8, Z: 5}))

	tiles := r.Tiles()
	require.Len(t, tiles, 6)
	assert.Equal(t, TileIndex{X: 2, Y: 7, Z: 5}, tiles[0])
	assert.Equal(t, TileIndex{X: 3, Y: 7, Z: 5}, tiles[1])
	assert.Equal(t, TileIndex{X: 4, Y: 8, Z: 5}, tiles[5])
}
