// Package config loads, normalizes, and validates thawmark configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// CLI and coordination daemon need: manifest claim timeouts, extraction
// thresholds, the segmentation backend endpoint, and tile access.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
