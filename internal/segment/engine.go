package segment

import (
	"context"

	"thawmark/internal/prompt"
	"thawmark/internal/raster"
)

// Engine is the black-box point-prompt segmentation contract. Implementations
// hold no state between calls: the full ordered prompt sequence is passed each
// time, so a fixed model produces the same mask for the same tile and prompts.
type Engine interface {
	Infer(ctx context.Context, tile *raster.Tile, points []prompt.Point) (*raster.Mask, error)
}
