// Package services defines the shared error taxonomy used across the labeling
// pipeline. Components tag failures with sentinel markers (conflict, invalid
// prompt, engine unavailable, degenerate mask, persistence) so the session
// controller can map them to recovery states without string matching.
package services
