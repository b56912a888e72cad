package raster

// Transform maps pixel coordinates to geographic coordinates using the affine
// convention of ESRI world files: no rotation terms, origin at the center of
// the top-left pixel.
type Transform struct {
	OriginX     float64
	OriginY     float64
	PixelWidth  float64
	PixelHeight float64 // negative for north-up rasters
}

// Identity returns a transform that leaves pixel coordinates unchanged.
func Identity() Transform {
	return Transform{PixelWidth: 1, PixelHeight: 1}
}

// ToGeo converts a pixel coordinate to geographic space.
func (t Transform) ToGeo(px, py float64) (float64, float64) {
	return t.OriginX + px*t.PixelWidth, t.OriginY + py*t.PixelHeight
}

// ToPixel converts a geographic coordinate back to pixel space. The transform
// must have non-zero pixel sizes.
func (t Transform) ToPixel(gx, gy float64) (float64, float64) {
	return (gx - t.OriginX) / t.PixelWidth, (gy - t.OriginY) / t.PixelHeight
}

// Tile is one imagery window covering a single feature. The decoded raster is
// optional; the coordination core only needs dimensions, the transform, and a
// stable reference the segmentation backend can resolve.
type Tile struct {
	UID       string
	Ref       string
	Width     int
	Height    int
	Transform Transform
}

// Contains reports whether an image-space coordinate falls inside the tile.
func (t *Tile) Contains(x, y float64) bool {
	if t == nil {
		return false
	}
	return x >= 0 && y >= 0 && x < float64(t.Width) && y < float64(t.Height)
}
