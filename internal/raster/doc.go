// Package raster holds the pixel-space types shared by the prompt, engine, and
// extraction layers: imagery tiles with their pixel-to-geographic transforms,
// and the ephemeral binary masks produced by segmentation inference.
package raster
