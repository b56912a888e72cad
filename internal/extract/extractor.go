package extract

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"

	"thawmark/internal/config"
	"thawmark/internal/raster"
	"thawmark/internal/services"
)

// Extractor converts binary masks into simplified geographic polygons.
type Extractor struct {
	// Tolerance is the Douglas-Peucker threshold in the tile's geographic
	// units. Zero disables simplification.
	Tolerance float64
	// MinAreaPixels discards connected regions smaller than this pixel count.
	MinAreaPixels int
}

// New builds an extractor from the configured thresholds.
func New(cfg *config.Config) *Extractor {
	if cfg == nil {
		return &Extractor{}
	}
	return &Extractor{
		Tolerance:     cfg.Extractor.SimplifyTolerance,
		MinAreaPixels: cfg.Extractor.MinAreaPixels,
	}
}

// Extract traces every connected foreground region of the mask into a polygon:
// the region's outer boundary as the exterior ring and each enclosed hole as
// an interior ring. Regions below the minimum-area threshold are dropped as
// noise. Ring vertices are mapped to geographic space through the tile
// transform, then simplified. The result is deterministic for a fixed mask,
// transform, and tolerance.
//
// A mask with no foreground pixels fails with the degenerate-mask sentinel so
// the caller can distinguish "prompts produced nothing" from an explicit skip.
func (e *Extractor) Extract(mask *raster.Mask, tr raster.Transform) ([]orb.Polygon, error) {
	if mask == nil || mask.Empty() {
		return nil, services.Wrap(services.ErrDegenerateMask, "extract", "trace",
			"mask has no foreground pixels", nil)
	}

	components := labelComponents(mask)

	var polygons []orb.Polygon
	for _, comp := range components {
		if e.MinAreaPixels > 0 && len(comp.pixels) < e.MinAreaPixels {
			continue
		}

		inComp := componentMembership(mask, comp)
		rings := traceRings(comp, inComp)
		if len(rings) == 0 {
			continue
		}

		// The ring enclosing the largest area is the region's outer
		// boundary; every other ring bounds a hole.
		outerIdx := 0
		outerArea := math.Abs(ringArea(rings[0]))
		for i := 1; i < len(rings); i++ {
			if a := math.Abs(ringArea(rings[i])); a > outerArea {
				outerIdx = i
				outerArea = a
			}
		}

		polygon := orb.Polygon{toGeoRing(rings[outerIdx], tr)}
		for i, ring := range rings {
			if i == outerIdx {
				continue
			}
			polygon = append(polygon, toGeoRing(ring, tr))
		}

		if e.Tolerance > 0 {
			polygon = simplify.DouglasPeucker(e.Tolerance).Polygon(polygon)
		}
		polygons = append(polygons, polygon)
	}

	if len(polygons) == 0 {
		return nil, services.Wrap(services.ErrDegenerateMask, "extract", "trace",
			fmt.Sprintf("all regions below %d-pixel area threshold", e.MinAreaPixels), nil)
	}
	return polygons, nil
}

func componentMembership(mask *raster.Mask, comp component) func(x, y int) bool {
	members := make(map[[2]int]struct{}, len(comp.pixels))
	for _, px := range comp.pixels {
		members[px] = struct{}{}
	}
	return func(x, y int) bool {
		if x < 0 || y < 0 || x >= mask.Width || y >= mask.Height {
			return false
		}
		_, ok := members[[2]int{x, y}]
		return ok
	}
}

func toGeoRing(ring []corner, tr raster.Transform) orb.Ring {
	out := make(orb.Ring, 0, len(ring))
	for _, c := range ring {
		gx, gy := tr.ToGeo(float64(c.x), float64(c.y))
		out = append(out, orb.Point{gx, gy})
	}
	return out
}
