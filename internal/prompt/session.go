package prompt

import (
	"fmt"

	"thawmark/internal/raster"
	"thawmark/internal/services"
)

// Label marks a point prompt as foreground or background steering.
type Label int

const (
	Negative Label = 0
	Positive Label = 1
)

// String returns the wire name of the label.
func (l Label) String() string {
	if l == Positive {
		return "positive"
	}
	return "negative"
}

// Point is one user click in image space. SequenceIndex preserves submission
// order; the segmentation engine's output depends on it.
type Point struct {
	X             float64
	Y             float64
	Label         Label
	SequenceIndex int
}

// Session accumulates the ordered point prompts for one active UID. It is
// owned by a single session controller and never shared across goroutines.
type Session struct {
	tile       *raster.Tile
	points     []Point
	generation uint64
}

// NewSession opens an empty prompt session bound to a tile's bounds.
func NewSession(tile *raster.Tile) *Session {
	return &Session{tile: tile}
}

// Add appends a prompt with the next sequence index. Coordinates outside the
// tile bounds are rejected with the invalid-prompt sentinel and do not change
// session state.
func (s *Session) Add(x, y float64, label Label) (Point, error) {
	if !s.tile.Contains(x, y) {
		return Point{}, services.Wrap(services.ErrInvalidPrompt, "prompt", "add",
			fmt.Sprintf("(%.1f, %.1f) outside %dx%d tile", x, y, s.tile.Width, s.tile.Height), nil)
	}
	point := Point{X: x, Y: y, Label: label, SequenceIndex: len(s.points)}
	s.points = append(s.points, point)
	s.generation++
	return point, nil
}

// UndoLast removes the most recent prompt. No-op when the session is empty.
func (s *Session) UndoLast() {
	if len(s.points) == 0 {
		return
	}
	s.points = s.points[:len(s.points)-1]
	s.generation++
}

// Reset clears all prompts, used when switching UID or restarting.
func (s *Session) Reset() {
	if len(s.points) == 0 {
		return
	}
	s.points = s.points[:0]
	s.generation++
}

// Points returns a copy of the ordered prompt sequence.
func (s *Session) Points() []Point {
	cp := make([]Point, len(s.points))
	copy(cp, s.points)
	return cp
}

// Len returns the number of accumulated prompts.
func (s *Session) Len() int {
	return len(s.points)
}

// Generation increments on every mutation. Inference results carry the
// generation they were computed for; a result whose generation no longer
// matches is stale and must be discarded rather than applied.
func (s *Session) Generation() uint64 {
	return s.generation
}

// Tile returns the imagery tile this session is bound to.
func (s *Session) Tile() *raster.Tile {
	return s.tile
}
