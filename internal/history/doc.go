// Package history exposes the prior digitizations of a feature: each earlier
// footprint polygon plus the combined centroid, which seeds the first positive
// prompt of a new labeling session.
package history
