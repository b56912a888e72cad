// Package extract converts the binary masks produced by segmentation
// inference into finalized vector polygons: connected regions become exterior
// rings, enclosed holes become interior rings, small regions are suppressed as
// noise, and rings are simplified with a configurable tolerance.
package extract
