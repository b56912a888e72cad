// Package segment adapts the external point-prompt segmentation model behind
// the Engine interface. The HTTP client sends the tile reference and the full
// ordered prompt list on every call; the backend keeps no per-session state,
// which keeps mask generation reproducible for a fixed model.
package segment
