package testsupport

import (
	"testing"

	"thawmark/internal/raster"
)

// NewTile builds an in-memory tile with an identity transform.
func NewTile(t testing.TB, uid string, width, height int) *raster.Tile {
	t.Helper()

	return &raster.Tile{
		UID:       uid,
		Ref:       uid,
		Width:     width,
		Height:    height,
		Transform: raster.Identity(),
	}
}

// MaskFromRows builds a mask from rows of '1' (foreground) and any other byte
// (background). All rows must share one width.
func MaskFromRows(t testing.TB, rows ...string) *raster.Mask {
	t.Helper()

	if len(rows) == 0 {
		return raster.NewMask(0, 0)
	}
	width := len(rows[0])
	mask := raster.NewMask(width, len(rows))
	for y, row := range rows {
		if len(row) != width {
			t.Fatalf("mask row %d width %d, want %d", y, len(row), width)
		}
		for x := 0; x < width; x++ {
			if row[x] == '1' {
				mask.Set(x, y, true)
			}
		}
	}
	return mask
}
