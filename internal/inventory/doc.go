// Package inventory loads the ARTS GeoJSON feature dataset that defines which
// slumps need labeling. Only positive-class features are kept; their unique
// UIDs seed the manifest, and their geometries provide historical display
// context per UID.
package inventory
