// Package tiles resolves the imagery window covering a feature. The directory
// provider reads per-UID rasters with world-file sidecars from local disk; the
// HTTP provider asks a tile service for the same metadata.
package tiles
