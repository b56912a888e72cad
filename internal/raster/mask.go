package raster

import "fmt"

// Mask is a binary raster aligned to one tile. Row-major, one byte per pixel,
// zero background. Masks are ephemeral: regenerated on every prompt change and
// never persisted.
type Mask struct {
	Width  int
	Height int
	Pixels []uint8
}

// NewMask allocates an all-background mask.
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{Width: width, Height: height, Pixels: make([]uint8, width*height)}
}

// MaskFromBytes wraps raw row-major pixel data, validating the length.
func MaskFromBytes(width, height int, data []uint8) (*Mask, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("mask dimensions %dx%d invalid", width, height)
	}
	if len(data) != width*height {
		return nil, fmt.Errorf("mask data length %d does not match %dx%d", len(data), width, height)
	}
	return &Mask{Width: width, Height: height, Pixels: data}, nil
}

// At reports whether the pixel is foreground. Out-of-bounds reads are background.
func (m *Mask) At(x, y int) bool {
	if m == nil || x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pixels[y*m.Width+x] != 0
}

// Set assigns a pixel. Out-of-bounds writes are ignored.
func (m *Mask) Set(x, y int, foreground bool) {
	if m == nil || x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	if foreground {
		m.Pixels[y*m.Width+x] = 1
	} else {
		m.Pixels[y*m.Width+x] = 0
	}
}

// Foreground counts the set pixels.
func (m *Mask) Foreground() int {
	if m == nil {
		return 0
	}
	count := 0
	for _, p := range m.Pixels {
		if p != 0 {
			count++
		}
	}
	return count
}

// Empty reports whether the mask has no foreground pixels.
func (m *Mask) Empty() bool {
	return m.Foreground() == 0
}
