// Package prompt tracks the ordered positive/negative point clicks that steer
// segmentation inference for one UID. Order matters to the engine, so the
// session preserves submission order and exposes a generation counter that
// lets callers discard inference results superseded by newer edits.
package prompt
