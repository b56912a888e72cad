// Command thawmarkd runs the coordination daemon: it owns the shared manifest
// store, serves the labeling HTTP API, and sweeps stale claims.
package main
