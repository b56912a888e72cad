package sink_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"thawmark/internal/services"
	"thawmark/internal/sink"
)

func squarePolygon() orb.Polygon {
	return orb.Polygon{{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}}}
}

func TestPersistWritesFeatureCollection(t *testing.T) {
	dir := t.TempDir()
	s, err := sink.NewGeoJSONSink(dir)
	if err != nil {
		t.Fatalf("NewGeoJSONSink failed: %v", err)
	}

	claimed := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	name, err := s.Persist(context.Background(), []orb.Polygon{squarePolygon()}, sink.Metadata{
		UID:         "RTS-0042",
		Labeler:     "test-labeler",
		ClaimedAt:   claimed,
		CompletedAt: claimed.Add(5 * time.Minute),
		PromptCount: 3,
	})
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if name != "RTS-0042.geojson" {
		t.Fatalf("artifact name = %q", name)
	}

	raw, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	collection, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		t.Fatalf("artifact is not valid GeoJSON: %v", err)
	}
	if len(collection.Features) != 1 {
		t.Fatalf("features = %d, want 1", len(collection.Features))
	}
	props := collection.Features[0].Properties
	if props["uid"] != "RTS-0042" || props["labeler"] != "test-labeler" {
		t.Fatalf("unexpected properties %v", props)
	}
	if props["start_time_utc"] != "2026-08-25T10:00:00Z" {
		t.Fatalf("start_time_utc = %v", props["start_time_utc"])
	}
}

func TestPersistOverwritesPriorArtifact(t *testing.T) {
	dir := t.TempDir()
	s, err := sink.NewGeoJSONSink(dir)
	if err != nil {
		t.Fatalf("NewGeoJSONSink failed: %v", err)
	}
	meta := sink.Metadata{UID: "RTS-0042", Labeler: "a"}
	if _, err := s.Persist(context.Background(), []orb.Polygon{squarePolygon()}, meta); err != nil {
		t.Fatalf("first Persist failed: %v", err)
	}
	meta.Labeler = "b"
	if _, err := s.Persist(context.Background(), []orb.Polygon{squarePolygon()}, meta); err != nil {
		t.Fatalf("second Persist failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "RTS-0042.geojson"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	collection, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		t.Fatalf("artifact is not valid GeoJSON: %v", err)
	}
	if collection.Features[0].Properties["labeler"] != "b" {
		t.Fatal("second write must replace the first artifact")
	}
}

func TestPersistRejectsEmptyPolygonSet(t *testing.T) {
	s, err := sink.NewGeoJSONSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewGeoJSONSink failed: %v", err)
	}
	_, err = s.Persist(context.Background(), nil, sink.Metadata{UID: "RTS-0042"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPersistLeavesNoTempFileOnSuccess(t *testing.T) {
	dir := t.TempDir()
	s, err := sink.NewGeoJSONSink(dir)
	if err != nil {
		t.Fatalf("NewGeoJSONSink failed: %v", err)
	}
	if _, err := s.Persist(context.Background(), []orb.Polygon{squarePolygon()}, sink.Metadata{UID: "RTS-0042"}); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("directory has %d entries, want only the artifact", len(entries))
	}
}
