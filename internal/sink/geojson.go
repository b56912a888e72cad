package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"thawmark/internal/services"
)

// GeoJSONSink writes one feature collection per UID into the output directory.
// Files are written to a temporary sibling and renamed into place so readers
// never observe a partial artifact.
type GeoJSONSink struct {
	dir string
}

// NewGeoJSONSink ensures the output directory exists.
func NewGeoJSONSink(dir string) (*GeoJSONSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "sink", "init",
			fmt.Sprintf("create output directory %s", dir), err)
	}
	return &GeoJSONSink{dir: dir}, nil
}

// Persist writes <uid>.geojson and returns the file name.
func (s *GeoJSONSink) Persist(ctx context.Context, polygons []orb.Polygon, meta Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(polygons) == 0 {
		return "", services.Wrap(services.ErrValidation, "sink", "persist",
			fmt.Sprintf("no polygons to persist for %s", meta.UID), nil)
	}

	collection := geojson.NewFeatureCollection()
	for i, polygon := range polygons {
		feature := geojson.NewFeature(polygon)
		feature.Properties["uid"] = meta.UID
		feature.Properties["part"] = i
		feature.Properties["labeler"] = meta.Labeler
		feature.Properties["prompt_count"] = meta.PromptCount
		if !meta.ClaimedAt.IsZero() {
			feature.Properties["start_time_utc"] = meta.ClaimedAt.UTC().Format(time.RFC3339)
		}
		if !meta.CompletedAt.IsZero() {
			feature.Properties["end_time_utc"] = meta.CompletedAt.UTC().Format(time.RFC3339)
		}
		collection.Append(feature)
	}

	payload, err := collection.MarshalJSON()
	if err != nil {
		return "", services.Wrap(services.ErrPersistence, "sink", "persist",
			fmt.Sprintf("encode label for %s", meta.UID), err)
	}

	name := meta.UID + ".geojson"
	final := filepath.Join(s.dir, name)
	temp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return "", services.Wrap(services.ErrPersistence, "sink", "persist",
			fmt.Sprintf("stage label for %s", meta.UID), err)
	}
	tempName := temp.Name()
	if _, err := temp.Write(payload); err != nil {
		temp.Close()
		os.Remove(tempName)
		return "", services.Wrap(services.ErrPersistence, "sink", "persist",
			fmt.Sprintf("write label for %s", meta.UID), err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempName)
		return "", services.Wrap(services.ErrPersistence, "sink", "persist",
			fmt.Sprintf("flush label for %s", meta.UID), err)
	}
	if err := os.Rename(tempName, final); err != nil {
		os.Remove(tempName)
		return "", services.Wrap(services.ErrPersistence, "sink", "persist",
			fmt.Sprintf("publish label for %s", meta.UID), err)
	}
	return name, nil
}
