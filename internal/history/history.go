package history

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"thawmark/internal/inventory"
	"thawmark/internal/services"
)

// Loader binds a loaded inventory so callers can look up history by UID alone.
type Loader struct {
	ds *inventory.Dataset
}

// NewLoader wraps the dataset for per-UID lookups.
func NewLoader(ds *inventory.Dataset) *Loader {
	return &Loader{ds: ds}
}

// Load returns the historical set for one UID.
func (l *Loader) Load(uid string) (*Set, error) {
	return Load(l.ds, uid)
}

// Set holds everything previously known about one feature: the polygon
// footprints digitized in earlier source years and their combined centroid.
// The centroid is the suggested first positive prompt for a fresh session.
type Set struct {
	UID      string
	Polygons []orb.Polygon
	Centroid orb.Point
}

// Load collects the historical geometries for a UID from the loaded inventory.
// A UID with no positive features fails with the not-found sentinel.
func Load(ds *inventory.Dataset, uid string) (*Set, error) {
	features := ds.ForUID(uid)
	if len(features) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "history", "load",
			fmt.Sprintf("no positive features for %s", uid), nil)
	}

	set := &Set{UID: uid}
	var collection orb.Collection
	for _, feature := range features {
		switch geom := feature.Geometry.(type) {
		case orb.Polygon:
			set.Polygons = append(set.Polygons, geom)
			collection = append(collection, geom)
		case orb.MultiPolygon:
			set.Polygons = append(set.Polygons, geom...)
			collection = append(collection, geom)
		default:
			// Point or line records carry no footprint; they still count
			// toward the centroid so seed prompts land near them.
			collection = append(collection, geom)
		}
	}

	centroid, area := planar.CentroidArea(collection)
	if area == 0 && len(set.Polygons) > 0 {
		return nil, services.Wrap(services.ErrValidation, "history", "load",
			fmt.Sprintf("degenerate historical geometry for %s", uid), nil)
	}
	set.Centroid = centroid
	return set, nil
}
