// Package sink persists finalized label polygons. The GeoJSON sink writes one
// atomically-renamed feature collection per UID; the returned artifact name is
// what the manifest records on commit.
package sink
