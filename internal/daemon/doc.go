// Package daemon hosts the coordination service: the shared manifest store
// behind an HTTP API, a periodic stale-claim sweep, and a file lock that keeps
// a host to one running instance.
package daemon
